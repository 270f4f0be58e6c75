// Package domain holds the core entities of the loan manager: borrowers,
// loans with their amortization schedules, payments, loan applications and
// borrower/admin messages. All monetary values use decimal.Decimal so that
// schedule math and portfolio totals stay exact.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductType is the closed set of loan products. Schedule generation
// switches exhaustively over it; anything else is rejected up front.
type ProductType string

const (
	ProductInterestOnly ProductType = "interest-only"
	ProductAmortized    ProductType = "amortized"
	ProductStaggered    ProductType = "staggered"
)

// Valid reports whether p is one of the known products.
func (p ProductType) Valid() bool {
	switch p {
	case ProductInterestOnly, ProductAmortized, ProductStaggered:
		return true
	}
	return false
}

// Loan statuses.
const (
	LoanStatusActive = "active"
	LoanStatusClosed = "closed"
)

// Payment statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

// Application statuses.
const (
	ApplicationStatusPending  = "pending"
	ApplicationStatusApproved = "approved"
	ApplicationStatusRejected = "rejected"
)

// Message senders.
const (
	SenderAdmin    = "admin"
	SenderBorrower = "borrower"
)

// Borrower is a person the lender has lent (or may lend) money to.
// The ID is a stable external code; contact fields and the photo
// reference are the only mutable parts.
type Borrower struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Contact   string    `json:"contact,omitempty"`
	Address   string    `json:"address,omitempty"`
	PhotoRef  string    `json:"photo_ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Installment is one scheduled obligation within a loan, indexed by month
// starting at 1. The schedule is generated once at loan creation and never
// regenerated implicitly afterwards.
type Installment struct {
	Month            int             `json:"month"`
	PaymentDue       decimal.Decimal `json:"payment_due"`
	PrincipalPortion decimal.Decimal `json:"principal_portion"`
	InterestPortion  decimal.Decimal `json:"interest_portion"`
	BalanceAfter     decimal.Decimal `json:"balance_after"`
	DueDate          time.Time       `json:"due_date"`
}

// Loan is a funded loan owned by exactly one borrower.
// Schedule is nil when the persisted schedule column could not be decoded;
// the ledger regenerates an equivalent one from the loan terms in that case.
type Loan struct {
	ID          string          `json:"id"`
	BorrowerID  string          `json:"borrower_id"`
	ProductType ProductType     `json:"product_type"`
	Principal   decimal.Decimal `json:"principal"`
	Rate        decimal.Decimal `json:"rate"`
	Term        int             `json:"term"`
	StartDate   time.Time       `json:"start_date"`
	Status      string          `json:"status"`
	Schedule    []Installment   `json:"schedule,omitempty"`
}

// Payment is a record of money received against a loan installment.
// Borrower submissions start pending; an admin resolves them to completed.
// A payment never moves back from completed to pending.
type Payment struct {
	ID          string          `json:"id"`
	LoanID      string          `json:"loan_id"`
	BorrowerID  string          `json:"borrower_id"`
	Amount      decimal.Decimal `json:"amount"`
	Month       int             `json:"month"`
	PaymentDate time.Time       `json:"payment_date"`
	ProofRef    string          `json:"proof_ref,omitempty"`
	Status      string          `json:"status"`
}

// Application is a borrower's request for a new loan. Approval and
// rejection are terminal; approval also creates exactly one Loan.
type Application struct {
	ID         string          `json:"id"`
	BorrowerID string          `json:"borrower_id"`
	Amount     decimal.Decimal `json:"amount"`
	Purpose    string          `json:"purpose,omitempty"`
	Term       int             `json:"term"`
	Income     decimal.Decimal `json:"income"`
	Employment string          `json:"employment,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Status     string          `json:"status"`
}

// Message is one entry in the borrower/admin conversation thread.
type Message struct {
	ID         string    `json:"id"`
	BorrowerID string    `json:"borrower_id"`
	Sender     string    `json:"sender"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// Snapshot is a full point-in-time copy of every entity collection as
// fetched from the remote store. Collections are replaced wholesale on
// refresh, never merged.
type Snapshot struct {
	Borrowers    []Borrower    `json:"borrowers"`
	Loans        []Loan        `json:"loans"`
	Payments     []Payment     `json:"payments"`
	Applications []Application `json:"applications"`
	FetchedAt    time.Time     `json:"fetched_at"`
}

// FindBorrower resolves a borrower by id against this snapshot.
func (s *Snapshot) FindBorrower(id string) (*Borrower, bool) {
	for i := range s.Borrowers {
		if s.Borrowers[i].ID == id {
			return &s.Borrowers[i], true
		}
	}
	return nil, false
}

// FindLoan resolves a loan by id against this snapshot.
func (s *Snapshot) FindLoan(id string) (*Loan, bool) {
	for i := range s.Loans {
		if s.Loans[i].ID == id {
			return &s.Loans[i], true
		}
	}
	return nil, false
}

// FindApplication resolves an application by id against this snapshot.
func (s *Snapshot) FindApplication(id string) (*Application, bool) {
	for i := range s.Applications {
		if s.Applications[i].ID == id {
			return &s.Applications[i], true
		}
	}
	return nil, false
}

// FindPayment resolves a payment by id against this snapshot.
func (s *Snapshot) FindPayment(id string) (*Payment, bool) {
	for i := range s.Payments {
		if s.Payments[i].ID == id {
			return &s.Payments[i], true
		}
	}
	return nil, false
}

// LoanPayments returns the payments recorded against a single loan.
func (s *Snapshot) LoanPayments(loanID string) []Payment {
	var out []Payment
	for _, p := range s.Payments {
		if p.LoanID == loanID {
			out = append(out, p)
		}
	}
	return out
}
