package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yengrand82/Loan-Manager/internal/domain"
	"github.com/yengrand82/Loan-Manager/internal/infra/idgen"
	"github.com/yengrand82/Loan-Manager/internal/infra/observability"
	"github.com/yengrand82/Loan-Manager/internal/port"
)

// PaymentService handles borrower payment submissions, admin resolution and
// direct admin recording.
type PaymentService struct {
	store   port.Store
	snap    port.SnapshotSource
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewPaymentService creates a PaymentService.
func NewPaymentService(store port.Store, snap port.SnapshotSource, metrics *observability.Metrics, logger *zap.Logger) *PaymentService {
	return &PaymentService{store: store, snap: snap, metrics: metrics, logger: logger}
}

// SubmitPaymentInput is one payment against a loan installment.
type SubmitPaymentInput struct {
	LoanID   string
	Amount   decimal.Decimal
	Month    int
	ProofRef string
}

func (s *PaymentService) validate(in SubmitPaymentInput) (*domain.Loan, error) {
	loan, ok := s.snap.Snapshot().FindLoan(in.LoanID)
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "loan", ID: in.LoanID}
	}
	if in.Amount.Sign() <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if in.Month < 1 || in.Month > loan.Term {
		return nil, &domain.ErrValidation{Field: "month", Message: "outside the loan term"}
	}
	return loan, nil
}

// Submit records a borrower payment in pending state. It stays pending,
// even when duplicates exist for the month, until an admin resolves it.
func (s *PaymentService) Submit(ctx context.Context, in SubmitPaymentInput) (domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "Payments.Submit")
	defer span.End()
	start := time.Now()

	loan, err := s.validate(in)
	if err != nil {
		return domain.Payment{}, err
	}

	payment := domain.Payment{
		ID:          idgen.Payment(),
		LoanID:      loan.ID,
		BorrowerID:  loan.BorrowerID,
		Amount:      in.Amount,
		Month:       in.Month,
		PaymentDate: time.Now().UTC(),
		ProofRef:    in.ProofRef,
		Status:      domain.PaymentStatusPending,
	}
	if err := s.store.AddPayment(ctx, payment); err != nil {
		return domain.Payment{}, err
	}

	s.logger.Info("payment submitted",
		zap.String("payment_id", payment.ID),
		zap.String("loan_id", payment.LoanID),
		zap.Int("month", payment.Month),
	)
	s.metrics.RecordRequestDuration("payment_submit", time.Since(start))
	refreshAfterWrite(ctx, s.snap, s.logger, "payment_submit")
	return payment, nil
}

// Record registers a payment an admin received out of band. It lands
// completed directly, skipping the review queue.
func (s *PaymentService) Record(ctx context.Context, in SubmitPaymentInput) (domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "Payments.Record")
	defer span.End()

	loan, err := s.validate(in)
	if err != nil {
		return domain.Payment{}, err
	}

	payment := domain.Payment{
		ID:          idgen.Payment(),
		LoanID:      loan.ID,
		BorrowerID:  loan.BorrowerID,
		Amount:      in.Amount,
		Month:       in.Month,
		PaymentDate: time.Now().UTC(),
		ProofRef:    in.ProofRef,
		Status:      domain.PaymentStatusCompleted,
	}
	if err := s.store.AddPayment(ctx, payment); err != nil {
		return domain.Payment{}, err
	}

	s.logger.Info("payment recorded by admin",
		zap.String("payment_id", payment.ID),
		zap.String("loan_id", payment.LoanID),
	)
	refreshAfterWrite(ctx, s.snap, s.logger, "payment_record")
	return payment, nil
}

// Resolve confirms a pending payment. Resolving an already-completed
// payment is a no-op, so a double-click or a retried request cannot
// double-count anything.
func (s *PaymentService) Resolve(ctx context.Context, paymentID string) (domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "Payments.Resolve")
	defer span.End()
	start := time.Now()

	payment, ok := s.snap.Snapshot().FindPayment(paymentID)
	if !ok {
		return domain.Payment{}, &domain.ErrNotFound{Resource: "payment", ID: paymentID}
	}
	if payment.Status == domain.PaymentStatusCompleted {
		return *payment, nil
	}

	if err := s.store.UpdatePaymentStatus(ctx, paymentID, domain.PaymentStatusCompleted); err != nil {
		return domain.Payment{}, err
	}

	resolved := *payment
	resolved.Status = domain.PaymentStatusCompleted

	s.logger.Info("payment resolved",
		zap.String("payment_id", paymentID),
		zap.String("loan_id", payment.LoanID),
	)
	s.metrics.RecordRequestDuration("payment_resolve", time.Since(start))
	refreshAfterWrite(ctx, s.snap, s.logger, "payment_resolve")
	return resolved, nil
}

// List returns payments from the snapshot, optionally filtered by loan
// and/or status.
func (s *PaymentService) List(ctx context.Context, loanID, status string) ([]domain.Payment, error) {
	payments := s.snap.Snapshot().Payments
	out := make([]domain.Payment, 0, len(payments))
	for _, p := range payments {
		if loanID != "" && p.LoanID != loanID {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
