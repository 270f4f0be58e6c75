// Package stats derives portfolio-wide figures from a full snapshot.
// Aggregation is pure: it never writes anywhere and is recomputed from
// scratch on every refresh, so stale or concurrently-mutated snapshots can
// do no lasting damage.
package stats

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yengrand82/Loan-Manager/internal/domain"
	"github.com/yengrand82/Loan-Manager/internal/ledger"
)

// Aggregator computes portfolio statistics. It leans on the ledger for
// per-loan scheduled totals so the regeneration fallback applies here too.
type Aggregator struct {
	ledger *ledger.Ledger
	logger *zap.Logger
}

// New creates an Aggregator.
func New(l *ledger.Ledger, logger *zap.Logger) *Aggregator {
	return &Aggregator{ledger: l, logger: logger}
}

// Aggregate computes the portfolio figures for a snapshot as of now.
func (a *Aggregator) Aggregate(snap *domain.Snapshot, now time.Time) domain.PortfolioStats {
	out := domain.PortfolioStats{
		TotalLoaned:    decimal.Zero,
		TotalScheduled: decimal.Zero,
		TotalCollected: decimal.Zero,
	}

	termSum := 0
	for _, loan := range snap.Loans {
		out.TotalLoaned = out.TotalLoaned.Add(loan.Principal)
		termSum += loan.Term

		view, err := a.ledger.Build(loan, nil, now)
		if err != nil {
			// Schedule unreadable and terms unusable: count the bare
			// principal rather than dropping the loan from the book.
			a.logger.Warn("loan excluded from scheduled totals, using principal",
				zap.String("loan_id", loan.ID),
				zap.Error(err),
			)
			out.TotalScheduled = out.TotalScheduled.Add(loan.Principal)
			continue
		}
		out.TotalScheduled = out.TotalScheduled.Add(view.TotalScheduled)
	}

	completedCount := 0
	for _, p := range snap.Payments {
		if p.Status == domain.PaymentStatusCompleted {
			out.TotalCollected = out.TotalCollected.Add(p.Amount)
			completedCount++
		}
	}

	for _, app := range snap.Applications {
		if app.Status == domain.ApplicationStatusPending {
			out.PendingApplications++
		}
	}

	out.Outstanding = out.TotalScheduled.Sub(out.TotalCollected)
	out.CollectionRate = clampedPercent(out.TotalCollected, out.TotalScheduled)
	if termSum > 0 {
		// Completion ratio across all installments owed; the name is
		// historical and it does not measure timeliness.
		out.OnTimeRate = 100 * float64(completedCount) / float64(termSum)
	}
	out.ActiveBorrowers = len(snap.Borrowers)
	out.ActiveLoans = len(snap.Loans)
	return out
}

func clampedPercent(num, den decimal.Decimal) float64 {
	if den.Sign() <= 0 {
		return 0
	}
	pct, _ := num.Div(den).Mul(decimal.NewFromInt(100)).Float64()
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
