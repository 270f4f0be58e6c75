// Package schedule generates amortization schedules for the three loan
// products. Generation is a pure function of the loan terms: the same
// inputs always produce the same schedule, so it is safe to recompute on
// every refresh tick and safe to use as the fallback when a persisted
// schedule cannot be read.
package schedule

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yengrand82/Loan-Manager/internal/domain"
)

// Installments fall due on a fixed 30-day cadence from the loan start,
// not on calendar months. This matches the upstream sheet data.
const installmentInterval = 30 * 24 * time.Hour

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Generate builds the full installment schedule for a loan. The result has
// exactly term entries indexed 1..term, principal portions summing to the
// principal, and a balance that decreases to zero at the final installment.
//
// The rate is applied as a flat per-period percentage. It is NOT divided by
// 12: upstream data already treats it that way and a silent conversion here
// would change every figure in the book.
func Generate(principal, rate decimal.Decimal, term int, product domain.ProductType, start time.Time) ([]domain.Installment, error) {
	if principal.Sign() <= 0 {
		return nil, &domain.ErrInvalidLoanParameters{Reason: fmt.Sprintf("principal must be positive, got %s", principal)}
	}
	if rate.Sign() <= 0 {
		return nil, &domain.ErrInvalidLoanParameters{Reason: fmt.Sprintf("rate must be positive, got %s", rate)}
	}
	if term <= 0 {
		return nil, &domain.ErrInvalidLoanParameters{Reason: fmt.Sprintf("term must be positive, got %d", term)}
	}

	switch product {
	case domain.ProductInterestOnly:
		return interestOnly(principal, rate, term, start), nil
	case domain.ProductAmortized:
		return amortized(principal, rate, term, start), nil
	case domain.ProductStaggered:
		return staggered(principal, rate, term, start), nil
	default:
		return nil, &domain.ErrInvalidLoanParameters{Reason: fmt.Sprintf("unknown product type %q", product)}
	}
}

// interestOnly: months 1..term-1 pay interest only; the final month pays
// interest plus the whole principal.
func interestOnly(principal, rate decimal.Decimal, term int, start time.Time) []domain.Installment {
	interest := principal.Mul(rate).Div(hundred).Round(2)

	entries := make([]domain.Installment, 0, term)
	for month := 1; month <= term; month++ {
		entry := domain.Installment{
			Month:            month,
			PaymentDue:       interest,
			PrincipalPortion: decimal.Zero,
			InterestPortion:  interest,
			BalanceAfter:     principal,
			DueDate:          dueDate(start, month),
		}
		if month == term {
			entry.PaymentDue = principal.Add(interest)
			entry.PrincipalPortion = principal
			entry.BalanceAfter = decimal.Zero
		}
		entries = append(entries, entry)
	}
	return entries
}

// amortized: level payments computed with the closed-form annuity formula
// M = P * r * (1+r)^n / ((1+r)^n - 1).
func amortized(principal, rate decimal.Decimal, term int, start time.Time) []domain.Installment {
	r := rate.Div(hundred)
	growth := one.Add(r).Pow(decimal.NewFromInt(int64(term)))
	payment := principal.Mul(r).Mul(growth).Div(growth.Sub(one))

	balance := principal
	entries := make([]domain.Installment, 0, term)
	for month := 1; month <= term; month++ {
		interest := balance.Mul(r)
		principalPortion := payment.Sub(interest)
		balance = balance.Sub(principalPortion)
		if balance.Sign() < 0 {
			// rounding dust at the tail
			balance = decimal.Zero
		}
		entries = append(entries, domain.Installment{
			Month:            month,
			PaymentDue:       payment.Round(2),
			PrincipalPortion: principalPortion.Round(2),
			InterestPortion:  interest.Round(2),
			BalanceAfter:     balance.Round(2),
			DueDate:          dueDate(start, month),
		})
	}
	return entries
}

// staggered: equal principal slices each month, interest charged on the
// balance remaining before that month's reduction.
func staggered(principal, rate decimal.Decimal, term int, start time.Time) []domain.Installment {
	principalPerMonth := principal.Div(decimal.NewFromInt(int64(term)))

	balance := principal
	entries := make([]domain.Installment, 0, term)
	for month := 1; month <= term; month++ {
		interest := balance.Mul(rate).Div(hundred)
		balance = balance.Sub(principalPerMonth)
		if balance.Sign() < 0 {
			balance = decimal.Zero
		}
		entries = append(entries, domain.Installment{
			Month:            month,
			PaymentDue:       principalPerMonth.Add(interest).Round(2),
			PrincipalPortion: principalPerMonth.Round(2),
			InterestPortion:  interest.Round(2),
			BalanceAfter:     balance.Round(2),
			DueDate:          dueDate(start, month),
		})
	}
	return entries
}

func dueDate(start time.Time, month int) time.Time {
	return start.Add(time.Duration(month) * installmentInterval)
}

// TotalScheduled sums the payment due across all installments. This is the
// basis for outstanding figures: unpaid interest counts, not just principal.
func TotalScheduled(entries []domain.Installment) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.PaymentDue)
	}
	return total
}
