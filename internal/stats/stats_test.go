package stats_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yengrand82/Loan-Manager/internal/domain"
	"github.com/yengrand82/Loan-Manager/internal/infra/observability"
	"github.com/yengrand82/Loan-Manager/internal/ledger"
	"github.com/yengrand82/Loan-Manager/internal/schedule"
	"github.com/yengrand82/Loan-Manager/internal/stats"
)

var now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newAggregator() *stats.Aggregator {
	return stats.New(ledger.New(time.Minute, observability.NewMetrics(), zap.NewNop()), zap.NewNop())
}

func loanWithSchedule(t *testing.T, id string, principal, rate string, term int, product domain.ProductType) domain.Loan {
	t.Helper()
	start := now.Add(-90 * 24 * time.Hour)
	entries, err := schedule.Generate(dec(principal), dec(rate), term, product, start)
	if err != nil {
		t.Fatalf("generating schedule: %v", err)
	}
	return domain.Loan{
		ID: id, BorrowerID: "BRW-1", ProductType: product,
		Principal: dec(principal), Rate: dec(rate), Term: term,
		StartDate: start, Status: domain.LoanStatusActive, Schedule: entries,
	}
}

func TestAggregate_EmptySnapshot(t *testing.T) {
	got := newAggregator().Aggregate(&domain.Snapshot{}, now)

	if !got.TotalLoaned.IsZero() || !got.TotalCollected.IsZero() {
		t.Errorf("expected zero totals, got loaned=%s collected=%s", got.TotalLoaned, got.TotalCollected)
	}
	if got.CollectionRate != 0 {
		t.Errorf("expected collection rate 0 with empty book, got %f", got.CollectionRate)
	}
	if got.OnTimeRate != 0 {
		t.Errorf("expected on-time rate 0 with empty book, got %f", got.OnTimeRate)
	}
}

func TestAggregate_Portfolio(t *testing.T) {
	// 30000 @ 5% x3 interest-only: total scheduled 34500.
	loan := loanWithSchedule(t, "LN-1", "30000", "5", 3, domain.ProductInterestOnly)

	snap := &domain.Snapshot{
		Borrowers: []domain.Borrower{{ID: "BRW-1"}},
		Loans:     []domain.Loan{loan},
		Payments: []domain.Payment{
			{ID: "PAY-1", LoanID: "LN-1", Month: 1, Amount: dec("1500"), Status: domain.PaymentStatusCompleted},
			{ID: "PAY-2", LoanID: "LN-1", Month: 2, Amount: dec("1500"), Status: domain.PaymentStatusPending},
		},
		Applications: []domain.Application{
			{ID: "APP-1", Status: domain.ApplicationStatusPending},
			{ID: "APP-2", Status: domain.ApplicationStatusRejected},
		},
	}

	got := newAggregator().Aggregate(snap, now)

	if !got.TotalLoaned.Equal(dec("30000")) {
		t.Errorf("expected total loaned 30000, got %s", got.TotalLoaned)
	}
	if !got.TotalScheduled.Equal(dec("34500")) {
		t.Errorf("expected total scheduled 34500, got %s", got.TotalScheduled)
	}
	// Pending submissions do not count as collected.
	if !got.TotalCollected.Equal(dec("1500")) {
		t.Errorf("expected total collected 1500, got %s", got.TotalCollected)
	}
	if !got.Outstanding.Equal(dec("33000")) {
		t.Errorf("expected outstanding 33000, got %s", got.Outstanding)
	}
	wantRate := 100 * 1500.0 / 34500.0
	if diff := got.CollectionRate - wantRate; diff > 0.001 || diff < -0.001 {
		t.Errorf("expected collection rate %.3f, got %.3f", wantRate, got.CollectionRate)
	}
	// One completed payment over three installments owed.
	wantOnTime := 100.0 / 3.0
	if diff := got.OnTimeRate - wantOnTime; diff > 0.001 || diff < -0.001 {
		t.Errorf("expected on-time rate %.3f, got %.3f", wantOnTime, got.OnTimeRate)
	}
	if got.PendingApplications != 1 {
		t.Errorf("expected 1 pending application, got %d", got.PendingApplications)
	}
}

func TestAggregate_UnreadableScheduleFallsBackToPrincipal(t *testing.T) {
	// Term 0 makes regeneration impossible: principal is counted instead.
	broken := domain.Loan{
		ID: "LN-broken", Principal: dec("5000"), Rate: dec("3"), Term: 0,
		ProductType: domain.ProductAmortized, Status: domain.LoanStatusActive,
	}
	healthy := loanWithSchedule(t, "LN-ok", "30000", "5", 3, domain.ProductInterestOnly)

	snap := &domain.Snapshot{Loans: []domain.Loan{broken, healthy}}
	got := newAggregator().Aggregate(snap, now)

	if !got.TotalScheduled.Equal(dec("39500")) {
		t.Errorf("expected total scheduled 39500 (34500 + bare 5000), got %s", got.TotalScheduled)
	}
}

func TestAggregate_CollectionRateClamped(t *testing.T) {
	loan := loanWithSchedule(t, "LN-1", "1000", "2", 2, domain.ProductStaggered)
	snap := &domain.Snapshot{
		Loans: []domain.Loan{loan},
		Payments: []domain.Payment{
			{ID: "PAY-over", LoanID: "LN-1", Month: 1, Amount: dec("999999"), Status: domain.PaymentStatusCompleted},
		},
	}

	got := newAggregator().Aggregate(snap, now)
	if got.CollectionRate != 100 {
		t.Errorf("expected clamped 100, got %f", got.CollectionRate)
	}
}
