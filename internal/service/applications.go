// Package service implements the loan manager's use cases on top of the
// remote store and the snapshot cache. Writes go straight to the store and
// are followed by a best-effort refresh, since the store offers no
// read-your-writes guarantee.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/yengrand82/Loan-Manager/internal/domain"
	"github.com/yengrand82/Loan-Manager/internal/infra/idgen"
	"github.com/yengrand82/Loan-Manager/internal/infra/observability"
	"github.com/yengrand82/Loan-Manager/internal/port"
	"github.com/yengrand82/Loan-Manager/internal/schedule"
)

var tracer = otel.Tracer("service")

// refreshAfterWrite pulls a fresh snapshot so the write becomes visible.
// The write already succeeded, so a failed refresh is only logged; the next
// sync tick will catch up.
func refreshAfterWrite(ctx context.Context, snap port.SnapshotSource, logger *zap.Logger, op string) {
	if _, err := snap.Refresh(ctx, false); err != nil {
		logger.Warn("post-write refresh failed",
			zap.String("operation", op),
			zap.Error(err),
		)
	}
}

// ApplicationService manages loan applications and their approval flow.
type ApplicationService struct {
	store   port.Store
	snap    port.SnapshotSource
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewApplicationService creates an ApplicationService.
func NewApplicationService(store port.Store, snap port.SnapshotSource, metrics *observability.Metrics, logger *zap.Logger) *ApplicationService {
	return &ApplicationService{store: store, snap: snap, metrics: metrics, logger: logger}
}

// SubmitApplicationInput is a borrower's request for a new loan.
type SubmitApplicationInput struct {
	BorrowerID string
	Amount     decimal.Decimal
	Purpose    string
	Term       int
	Income     decimal.Decimal
	Employment string
}

// List returns every application from the current snapshot, optionally
// filtered by status.
func (s *ApplicationService) List(ctx context.Context, status string) ([]domain.Application, error) {
	apps := s.snap.Snapshot().Applications
	if status == "" {
		return apps, nil
	}
	out := make([]domain.Application, 0, len(apps))
	for _, a := range apps {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

// Submit records a new pending application.
func (s *ApplicationService) Submit(ctx context.Context, in SubmitApplicationInput) (domain.Application, error) {
	ctx, span := tracer.Start(ctx, "Applications.Submit")
	defer span.End()
	start := time.Now()

	if in.BorrowerID == "" {
		return domain.Application{}, &domain.ErrValidation{Field: "borrower_id", Message: "must not be empty"}
	}
	if _, ok := s.snap.Snapshot().FindBorrower(in.BorrowerID); !ok {
		return domain.Application{}, &domain.ErrNotFound{Resource: "borrower", ID: in.BorrowerID}
	}
	if in.Amount.Sign() <= 0 {
		return domain.Application{}, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if in.Term <= 0 {
		return domain.Application{}, &domain.ErrValidation{Field: "term", Message: "must be positive"}
	}

	app := domain.Application{
		ID:         idgen.Application(),
		BorrowerID: in.BorrowerID,
		Amount:     in.Amount,
		Purpose:    strings.TrimSpace(in.Purpose),
		Term:       in.Term,
		Income:     in.Income,
		Employment: strings.TrimSpace(in.Employment),
		Timestamp:  time.Now().UTC(),
		Status:     domain.ApplicationStatusPending,
	}
	if err := s.store.SubmitApplication(ctx, app); err != nil {
		return domain.Application{}, err
	}

	s.logger.Info("application submitted",
		zap.String("application_id", app.ID),
		zap.String("borrower_id", app.BorrowerID),
	)
	s.metrics.RecordRequestDuration("application_submit", time.Since(start))
	refreshAfterWrite(ctx, s.snap, s.logger, "application_submit")
	return app, nil
}

// Approve turns a pending application into a funded loan. The rate and
// product are chosen by the admin at approval time; the principal and term
// come from the application itself.
//
// Two writes are involved. When the loan lands but the status update does
// not, the error names the created loan so the caller retries the status
// update instead of approving again and duplicating the loan.
func (s *ApplicationService) Approve(ctx context.Context, appID string, rate decimal.Decimal, product domain.ProductType) (domain.Loan, error) {
	ctx, span := tracer.Start(ctx, "Applications.Approve")
	defer span.End()
	start := time.Now()

	app, ok := s.snap.Snapshot().FindApplication(appID)
	if !ok {
		return domain.Loan{}, &domain.ErrNotFound{Resource: "application", ID: appID}
	}
	if app.Status != domain.ApplicationStatusPending {
		return domain.Loan{}, &domain.ErrApplicationResolved{ID: appID, Status: app.Status}
	}

	startDate := time.Now().UTC()
	entries, err := schedule.Generate(app.Amount, rate, app.Term, product, startDate)
	if err != nil {
		return domain.Loan{}, err
	}

	loan := domain.Loan{
		ID:          idgen.Loan(),
		BorrowerID:  app.BorrowerID,
		ProductType: product,
		Principal:   app.Amount,
		Rate:        rate,
		Term:        app.Term,
		StartDate:   startDate,
		Status:      domain.LoanStatusActive,
		Schedule:    entries,
	}
	if err := s.store.AddLoan(ctx, loan); err != nil {
		return domain.Loan{}, err
	}

	if err := s.store.UpdateApplication(ctx, appID, domain.ApplicationStatusApproved); err != nil {
		s.logger.Error("loan created but application status update failed",
			zap.String("application_id", appID),
			zap.String("loan_id", loan.ID),
			zap.Error(err),
		)
		return loan, &domain.ErrPartialApproval{ApplicationID: appID, LoanID: loan.ID, Err: err}
	}

	s.logger.Info("application approved",
		zap.String("application_id", appID),
		zap.String("loan_id", loan.ID),
		zap.String("product", string(product)),
	)
	s.metrics.RecordRequestDuration("application_approve", time.Since(start))
	refreshAfterWrite(ctx, s.snap, s.logger, "application_approve")
	return loan, nil
}

// Reject marks a pending application rejected. Terminal states stay put.
func (s *ApplicationService) Reject(ctx context.Context, appID string) error {
	ctx, span := tracer.Start(ctx, "Applications.Reject")
	defer span.End()

	app, ok := s.snap.Snapshot().FindApplication(appID)
	if !ok {
		return &domain.ErrNotFound{Resource: "application", ID: appID}
	}
	if app.Status != domain.ApplicationStatusPending {
		return &domain.ErrApplicationResolved{ID: appID, Status: app.Status}
	}

	if err := s.store.UpdateApplication(ctx, appID, domain.ApplicationStatusRejected); err != nil {
		return err
	}

	s.logger.Info("application rejected", zap.String("application_id", appID))
	refreshAfterWrite(ctx, s.snap, s.logger, "application_reject")
	return nil
}
