package domain

import "github.com/shopspring/decimal"

// PortfolioStats are the portfolio-wide figures derived from a full
// snapshot. Recomputed on every refresh tick; pure and side-effect-free.
type PortfolioStats struct {
	TotalLoaned         decimal.Decimal `json:"total_loaned"`
	TotalScheduled      decimal.Decimal `json:"total_scheduled"`
	TotalCollected      decimal.Decimal `json:"total_collected"`
	Outstanding         decimal.Decimal `json:"outstanding"`
	CollectionRate      float64         `json:"collection_rate"`
	OnTimeRate          float64         `json:"on_time_rate"`
	PendingApplications int             `json:"pending_applications"`
	ActiveBorrowers     int             `json:"active_borrowers"`
	ActiveLoans         int             `json:"active_loans"`
}
