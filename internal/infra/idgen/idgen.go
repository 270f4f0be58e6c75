// Package idgen issues entity identifiers. The legacy sheet used a type
// prefix plus the last digits of the wall clock, which collides under
// concurrent writers; the prefix convention survives here but the suffix is
// a UUID, unique across writers without coordination.
package idgen

import "github.com/google/uuid"

// Entity prefixes kept from the legacy sheet data so old and new rows sort
// together.
const (
	PrefixBorrower    = "BRW"
	PrefixLoan        = "LN"
	PrefixPayment     = "PAY"
	PrefixApplication = "APP"
	PrefixMessage     = "MSG"
)

// New returns prefix-uuid.
func New(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

func Borrower() string    { return New(PrefixBorrower) }
func Loan() string        { return New(PrefixLoan) }
func Payment() string     { return New(PrefixPayment) }
func Application() string { return New(PrefixApplication) }
func Message() string     { return New(PrefixMessage) }
