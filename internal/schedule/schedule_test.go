package schedule_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yengrand82/Loan-Manager/internal/domain"
	"github.com/yengrand82/Loan-Manager/internal/schedule"
)

var start = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestGenerate_InterestOnly(t *testing.T) {
	entries, err := schedule.Generate(dec("30000"), dec("5"), 3, domain.ProductInterestOnly, start)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(entries))
	}

	for _, e := range entries[:2] {
		if !e.PaymentDue.Equal(dec("1500")) {
			t.Errorf("month %d: expected payment 1500, got %s", e.Month, e.PaymentDue)
		}
		if !e.PrincipalPortion.IsZero() {
			t.Errorf("month %d: expected zero principal portion, got %s", e.Month, e.PrincipalPortion)
		}
		if !e.BalanceAfter.Equal(dec("30000")) {
			t.Errorf("month %d: expected balance 30000, got %s", e.Month, e.BalanceAfter)
		}
	}

	last := entries[2]
	if !last.PaymentDue.Equal(dec("31500")) {
		t.Errorf("final month: expected payment 31500, got %s", last.PaymentDue)
	}
	if !last.PrincipalPortion.Equal(dec("30000")) {
		t.Errorf("final month: expected principal portion 30000, got %s", last.PrincipalPortion)
	}
	if !last.BalanceAfter.IsZero() {
		t.Errorf("final month: expected zero balance, got %s", last.BalanceAfter)
	}
}

func TestGenerate_Amortized(t *testing.T) {
	entries, err := schedule.Generate(dec("12000"), dec("2"), 12, domain.ProductAmortized, start)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(entries) != 12 {
		t.Fatalf("expected 12 installments, got %d", len(entries))
	}

	// Closed-form level payment: M = P*r*(1+r)^n / ((1+r)^n - 1)
	r := 0.02
	growth := math.Pow(1+r, 12)
	want := 12000 * r * growth / (growth - 1)

	for _, e := range entries {
		got, _ := e.PaymentDue.Float64()
		if math.Abs(got-want) > 0.01 {
			t.Errorf("month %d: expected payment %.2f, got %s", e.Month, want, e.PaymentDue)
		}
	}

	// Balance is non-increasing and ends at zero.
	prev := dec("12000")
	for _, e := range entries {
		if e.BalanceAfter.GreaterThan(prev) {
			t.Errorf("month %d: balance increased from %s to %s", e.Month, prev, e.BalanceAfter)
		}
		prev = e.BalanceAfter
	}
	if final, _ := entries[11].BalanceAfter.Float64(); math.Abs(final) > 0.01 {
		t.Errorf("expected final balance ~0, got %s", entries[11].BalanceAfter)
	}
}

func TestGenerate_Staggered(t *testing.T) {
	entries, err := schedule.Generate(dec("5000"), dec("4"), 6, domain.ProductStaggered, start)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(entries) != 6 {
		t.Fatalf("expected 6 installments, got %d", len(entries))
	}

	for _, e := range entries {
		if !e.PrincipalPortion.Equal(dec("833.33")) {
			t.Errorf("month %d: expected principal portion 833.33, got %s", e.Month, e.PrincipalPortion)
		}
	}

	// First month interest on the full balance: 5000 * 4% = 200.
	if !entries[0].InterestPortion.Equal(dec("200")) {
		t.Errorf("month 1: expected interest 200, got %s", entries[0].InterestPortion)
	}
	if !entries[5].BalanceAfter.IsZero() {
		t.Errorf("expected zero final balance, got %s", entries[5].BalanceAfter)
	}
}

func TestGenerate_PrincipalSumsAcrossProducts(t *testing.T) {
	products := []domain.ProductType{
		domain.ProductInterestOnly,
		domain.ProductAmortized,
		domain.ProductStaggered,
	}
	for _, product := range products {
		entries, err := schedule.Generate(dec("7500"), dec("3.5"), 9, product, start)
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", product, err)
		}

		sum := decimal.Zero
		for _, e := range entries {
			sum = sum.Add(e.PrincipalPortion)
		}
		diff, _ := sum.Sub(dec("7500")).Abs().Float64()
		if diff > 0.05 {
			t.Errorf("%s: principal portions sum to %s, expected ~7500", product, sum)
		}
	}
}

func TestGenerate_MonthIndicesContiguous(t *testing.T) {
	entries, err := schedule.Generate(dec("1000"), dec("1"), 5, domain.ProductAmortized, start)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for i, e := range entries {
		if e.Month != i+1 {
			t.Errorf("entry %d: expected month %d, got %d", i, i+1, e.Month)
		}
	}
}

func TestGenerate_DueDates30DayCadence(t *testing.T) {
	entries, err := schedule.Generate(dec("1000"), dec("1"), 3, domain.ProductStaggered, start)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, e := range entries {
		want := start.Add(time.Duration(e.Month) * 30 * 24 * time.Hour)
		if !e.DueDate.Equal(want) {
			t.Errorf("month %d: expected due date %s, got %s", e.Month, want, e.DueDate)
		}
	}
}

func TestGenerate_InvalidParameters(t *testing.T) {
	cases := []struct {
		name      string
		principal string
		rate      string
		term      int
		product   domain.ProductType
	}{
		{"zero principal", "0", "5", 3, domain.ProductAmortized},
		{"negative principal", "-100", "5", 3, domain.ProductAmortized},
		{"zero rate", "1000", "0", 3, domain.ProductAmortized},
		{"zero term", "1000", "5", 0, domain.ProductAmortized},
		{"unknown product", "1000", "5", 3, domain.ProductType("balloon")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := schedule.Generate(dec(tc.principal), dec(tc.rate), tc.term, tc.product, start)
			var invalid *domain.ErrInvalidLoanParameters
			if !errors.As(err, &invalid) {
				t.Fatalf("expected ErrInvalidLoanParameters, got %v", err)
			}
		})
	}
}
