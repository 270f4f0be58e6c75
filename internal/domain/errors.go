package domain

import "fmt"

// Typed errors shared across the loan manager. Handlers map these to HTTP
// statuses in a single place; services and stores return them as-is.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a malformed request field.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrInvalidLoanParameters indicates schedule inputs that can never produce
// a valid schedule: non-positive principal/rate/term or an unknown product.
type ErrInvalidLoanParameters struct {
	Reason string
}

func (e *ErrInvalidLoanParameters) Error() string {
	return fmt.Sprintf("invalid loan parameters: %s", e.Reason)
}

// ErrApplicationResolved indicates an attempt to transition an application
// that is already in a terminal state.
type ErrApplicationResolved struct {
	ID     string
	Status string
}

func (e *ErrApplicationResolved) Error() string {
	return fmt.Sprintf("application %s already resolved: %s", e.ID, e.Status)
}

// ErrScheduleUnreadable indicates a loan's persisted schedule could not be
// decoded. Recoverable: the ledger regenerates an equivalent schedule from
// the loan terms.
type ErrScheduleUnreadable struct {
	LoanID string
	Reason string
}

func (e *ErrScheduleUnreadable) Error() string {
	return fmt.Sprintf("schedule unreadable for loan %s: %s", e.LoanID, e.Reason)
}

// ErrRemoteStore indicates a read or write against the remote tabular store
// failed. A failed refresh leaves the previous snapshot in place.
type ErrRemoteStore struct {
	Op  string
	Err error
}

func (e *ErrRemoteStore) Error() string {
	return fmt.Sprintf("remote store error [%s]: %v", e.Op, e.Err)
}

func (e *ErrRemoteStore) Unwrap() error {
	return e.Err
}

// ErrPartialApproval indicates an approval where the loan was durably
// created but the application status update failed. The caller should retry
// the status update alone instead of creating a duplicate loan.
type ErrPartialApproval struct {
	ApplicationID string
	LoanID        string
	Err           error
}

func (e *ErrPartialApproval) Error() string {
	return fmt.Sprintf("application %s approved partially: loan %s created but status update failed: %v",
		e.ApplicationID, e.LoanID, e.Err)
}

func (e *ErrPartialApproval) Unwrap() error {
	return e.Err
}

// ErrUnauthorized indicates invalid login credentials or a bad session token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrForbidden indicates the session lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}
