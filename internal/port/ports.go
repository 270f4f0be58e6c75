// Package port defines the interfaces between the service layer and its
// external collaborators: the remote tabular store and the snapshot cache.
// Concrete implementations live under internal/infra and internal/sync.
package port

import (
	"context"

	"github.com/yengrand82/Loan-Manager/internal/domain"
)

// SnapshotReader fetches full entity collections from the remote store.
// Lists come back unordered; callers own any sorting.
type SnapshotReader interface {
	GetBorrowers(ctx context.Context) ([]domain.Borrower, error)
	GetLoans(ctx context.Context) ([]domain.Loan, error)
	GetPayments(ctx context.Context) ([]domain.Payment, error)
	GetApplications(ctx context.Context) ([]domain.Application, error)
}

// MessageStore reads and appends conversation threads.
type MessageStore interface {
	GetMessages(ctx context.Context, borrowerID string) ([]domain.Message, error)
	AddMessage(ctx context.Context, msg domain.Message) error
}

// StoreWriter issues mutations against the remote store. Writes carry no
// read-your-writes guarantee; callers must refresh to observe effects.
type StoreWriter interface {
	AddBorrower(ctx context.Context, b domain.Borrower) error
	AddLoan(ctx context.Context, l domain.Loan) error
	AddPayment(ctx context.Context, p domain.Payment) error
	SubmitApplication(ctx context.Context, a domain.Application) error
	UpdateApplication(ctx context.Context, id, status string) error
	UpdatePaymentStatus(ctx context.Context, id, status string) error
	UpdateBorrower(ctx context.Context, id string, fields map[string]any) error
}

// Store is the full remote tabular store surface.
type Store interface {
	SnapshotReader
	StoreWriter
	MessageStore
}

// SnapshotSource hands out the locally cached snapshot and lets callers
// force a refresh after a write. Implemented by the sync controller.
type SnapshotSource interface {
	// Snapshot returns the last successfully applied snapshot. Never nil.
	Snapshot() *domain.Snapshot
	// Refresh fetches and applies a new snapshot. With composing set the
	// cycle is suppressed and applied is false.
	Refresh(ctx context.Context, composing bool) (applied bool, err error)
}
