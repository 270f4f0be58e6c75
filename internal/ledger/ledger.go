// Package ledger reconciles a loan's schedule against its payment history.
// It classifies every installment, computes paid totals and keeps working
// even when a loan's persisted schedule is unreadable, by regenerating an
// equivalent schedule from the stored loan terms.
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yengrand82/Loan-Manager/internal/domain"
	"github.com/yengrand82/Loan-Manager/internal/infra/cache"
	"github.com/yengrand82/Loan-Manager/internal/infra/observability"
	"github.com/yengrand82/Loan-Manager/internal/schedule"
)

// InstallmentStatus classifies one schedule entry against payment history.
type InstallmentStatus string

const (
	// StatusPaid: a completed payment exists for the month.
	StatusPaid InstallmentStatus = "paid"
	// StatusPendingReview: at least one borrower submission awaits admin
	// confirmation and no completed payment exists yet.
	StatusPendingReview InstallmentStatus = "pending-review"
	// StatusOverdue: unpaid, nothing pending, due date in the past.
	StatusOverdue InstallmentStatus = "overdue"
	// StatusUpcoming: unpaid, nothing pending, due date in the future.
	StatusUpcoming InstallmentStatus = "upcoming"
)

// ScheduleSource records where the schedule used for reconciliation came
// from, so a recovered ledger is distinguishable from a normal one.
type ScheduleSource string

const (
	SourceStored      ScheduleSource = "stored"
	SourceRegenerated ScheduleSource = "regenerated"
)

// Entry pairs an installment with its classification and the payments
// backing it.
type Entry struct {
	domain.Installment
	Status InstallmentStatus `json:"status"`
	// Completed is the most recent completed payment for the month, used
	// for display provenance. Duplicates are tolerated, not deleted.
	Completed *domain.Payment `json:"completed,omitempty"`
	// Pending holds every unresolved submission for the month. All are
	// retained until an admin resolves one.
	Pending []domain.Payment `json:"pending,omitempty"`
}

// LoanLedger is the reconciled view of one loan.
type LoanLedger struct {
	LoanID          string          `json:"loan_id"`
	Source          ScheduleSource  `json:"schedule_source"`
	Entries         []Entry         `json:"entries"`
	TotalPaid       decimal.Decimal `json:"total_paid"`
	TotalScheduled  decimal.Decimal `json:"total_scheduled"`
	ProgressPercent float64         `json:"progress_percent"`
}

// FullyReconciled reports whether every installment is paid. Loan status in
// the store stays untouched; statistics treat such loans as settled.
func (l *LoanLedger) FullyReconciled() bool {
	for _, e := range l.Entries {
		if e.Status != StatusPaid {
			return false
		}
	}
	return len(l.Entries) > 0
}

// Ledger builds reconciled loan views. Regenerated fallback schedules are
// cached per loan so a malformed schedule column does not cost a full
// regeneration on every refresh tick.
type Ledger struct {
	regenerated *cache.TTL[[]domain.Installment]
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// New creates a Ledger. The cache TTL bounds how long a regenerated
// schedule is reused before being rebuilt.
func New(regenCacheTTL time.Duration, metrics *observability.Metrics, logger *zap.Logger) *Ledger {
	return &Ledger{
		regenerated: cache.NewTTL[[]domain.Installment](regenCacheTTL),
		metrics:     metrics,
		logger:      logger,
	}
}

// Build reconciles a loan against its payments as of now. It only fails
// when the stored schedule is unreadable AND the loan terms themselves
// cannot produce a replacement.
func (l *Ledger) Build(loan domain.Loan, payments []domain.Payment, now time.Time) (*LoanLedger, error) {
	entries, source, err := l.resolveSchedule(loan)
	if err != nil {
		return nil, err
	}

	completedByMonth := make(map[int]domain.Payment)
	pendingByMonth := make(map[int][]domain.Payment)
	totalPaid := decimal.Zero

	for _, p := range payments {
		switch p.Status {
		case domain.PaymentStatusCompleted:
			totalPaid = totalPaid.Add(p.Amount)
			// Duplicate completed payments for a month should not happen,
			// but the most recent one wins for display.
			if prev, ok := completedByMonth[p.Month]; !ok || p.PaymentDate.After(prev.PaymentDate) {
				completedByMonth[p.Month] = p
			}
		case domain.PaymentStatusPending:
			pendingByMonth[p.Month] = append(pendingByMonth[p.Month], p)
		}
	}
	for month := range pendingByMonth {
		sort.Slice(pendingByMonth[month], func(i, j int) bool {
			return pendingByMonth[month][i].PaymentDate.Before(pendingByMonth[month][j].PaymentDate)
		})
	}

	out := &LoanLedger{
		LoanID:         loan.ID,
		Source:         source,
		Entries:        make([]Entry, 0, len(entries)),
		TotalPaid:      totalPaid,
		TotalScheduled: schedule.TotalScheduled(entries),
	}

	for _, inst := range entries {
		entry := Entry{Installment: inst}
		if completed, ok := completedByMonth[inst.Month]; ok {
			entry.Status = StatusPaid
			entry.Completed = &completed
			// Superseded submissions stay visible in history.
			entry.Pending = pendingByMonth[inst.Month]
		} else if pending := pendingByMonth[inst.Month]; len(pending) > 0 {
			entry.Status = StatusPendingReview
			entry.Pending = pending
		} else if inst.DueDate.Before(now) {
			entry.Status = StatusOverdue
		} else {
			entry.Status = StatusUpcoming
		}
		out.Entries = append(out.Entries, entry)
	}

	out.ProgressPercent = ratioPercent(totalPaid, out.TotalScheduled)
	return out, nil
}

// resolveSchedule returns the stored schedule when it is usable, otherwise
// regenerates one from the loan terms. Regeneration is the only implicit
// path that rebuilds a schedule; a healthy stored schedule is never touched.
func (l *Ledger) resolveSchedule(loan domain.Loan) ([]domain.Installment, ScheduleSource, error) {
	if reason, ok := storedScheduleUsable(loan); ok {
		return loan.Schedule, SourceStored, nil
	} else if cached, hit := l.regenerated.Get(loan.ID); hit {
		return cached, SourceRegenerated, nil
	} else {
		regen, err := schedule.Generate(loan.Principal, loan.Rate, loan.Term, loan.ProductType, loan.StartDate)
		if err != nil {
			return nil, "", err
		}
		l.logger.Warn("stored schedule unreadable, regenerated from loan terms",
			zap.String("loan_id", loan.ID),
			zap.String("reason", (&domain.ErrScheduleUnreadable{LoanID: loan.ID, Reason: reason}).Error()),
		)
		l.metrics.IncrScheduleRegenerated()
		l.regenerated.Set(loan.ID, regen)
		return regen, SourceRegenerated, nil
	}
}

// storedScheduleUsable checks the invariants a persisted schedule must hold:
// one entry per month, indices contiguous from 1.
func storedScheduleUsable(loan domain.Loan) (reason string, ok bool) {
	if len(loan.Schedule) == 0 {
		return "schedule missing or undecodable", false
	}
	if len(loan.Schedule) != loan.Term {
		return "schedule length does not match term", false
	}
	for i, inst := range loan.Schedule {
		if inst.Month != i+1 {
			return "installment months not contiguous", false
		}
	}
	return "", true
}

// ratioPercent returns 100*num/den clamped to [0,100], and 0 when den is 0.
func ratioPercent(num, den decimal.Decimal) float64 {
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
