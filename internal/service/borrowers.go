package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yengrand82/Loan-Manager/internal/domain"
	"github.com/yengrand82/Loan-Manager/internal/infra/idgen"
	"github.com/yengrand82/Loan-Manager/internal/infra/observability"
	"github.com/yengrand82/Loan-Manager/internal/ledger"
	"github.com/yengrand82/Loan-Manager/internal/port"
	"github.com/yengrand82/Loan-Manager/internal/schedule"
)

// BorrowerService manages borrower records and the loans attached to them.
type BorrowerService struct {
	store   port.Store
	snap    port.SnapshotSource
	ledger  *ledger.Ledger
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewBorrowerService creates a BorrowerService.
func NewBorrowerService(store port.Store, snap port.SnapshotSource, lgr *ledger.Ledger, metrics *observability.Metrics, logger *zap.Logger) *BorrowerService {
	return &BorrowerService{store: store, snap: snap, ledger: lgr, metrics: metrics, logger: logger}
}

// InitialLoanInput describes a loan funded at onboarding time.
type InitialLoanInput struct {
	Principal decimal.Decimal
	Rate      decimal.Decimal
	Term      int
	Product   domain.ProductType
}

// CreateBorrowerInput is a new borrower record, optionally with a first
// loan funded in the same step.
type CreateBorrowerInput struct {
	Name        string
	Email       string
	Contact     string
	Address     string
	PhotoRef    string
	InitialLoan *InitialLoanInput
}

// List returns every borrower sorted by name.
func (s *BorrowerService) List(ctx context.Context) ([]domain.Borrower, error) {
	src := s.snap.Snapshot().Borrowers
	out := make([]domain.Borrower, len(src))
	copy(out, src)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns one borrower by id.
func (s *BorrowerService) Get(ctx context.Context, id string) (domain.Borrower, error) {
	b, ok := s.snap.Snapshot().FindBorrower(id)
	if !ok {
		return domain.Borrower{}, &domain.ErrNotFound{Resource: "borrower", ID: id}
	}
	return *b, nil
}

// Create registers a new borrower and, when an initial loan is given,
// funds it in the same call. The schedule is validated before anything is
// written, so bad loan parameters leave no orphan borrower behind.
func (s *BorrowerService) Create(ctx context.Context, in CreateBorrowerInput) (domain.Borrower, *domain.Loan, error) {
	ctx, span := tracer.Start(ctx, "Borrowers.Create")
	defer span.End()
	start := time.Now()

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Borrower{}, nil, &domain.ErrValidation{Field: "name", Message: "must not be empty"}
	}

	now := time.Now().UTC()
	var entries []domain.Installment
	if in.InitialLoan != nil {
		var err error
		entries, err = schedule.Generate(in.InitialLoan.Principal, in.InitialLoan.Rate, in.InitialLoan.Term, in.InitialLoan.Product, now)
		if err != nil {
			return domain.Borrower{}, nil, err
		}
	}

	borrower := domain.Borrower{
		ID:        idgen.Borrower(),
		Name:      name,
		Email:     strings.TrimSpace(in.Email),
		Contact:   strings.TrimSpace(in.Contact),
		Address:   strings.TrimSpace(in.Address),
		PhotoRef:  in.PhotoRef,
		CreatedAt: now,
	}
	if err := s.store.AddBorrower(ctx, borrower); err != nil {
		return domain.Borrower{}, nil, err
	}

	var loan *domain.Loan
	if in.InitialLoan != nil {
		l := domain.Loan{
			ID:          idgen.Loan(),
			BorrowerID:  borrower.ID,
			ProductType: in.InitialLoan.Product,
			Principal:   in.InitialLoan.Principal,
			Rate:        in.InitialLoan.Rate,
			Term:        in.InitialLoan.Term,
			StartDate:   now,
			Status:      domain.LoanStatusActive,
			Schedule:    entries,
		}
		if err := s.store.AddLoan(ctx, l); err != nil {
			// The borrower row is already durable. Surface the loan failure
			// so the admin funds it again against the existing borrower.
			s.logger.Error("borrower created but initial loan failed",
				zap.String("borrower_id", borrower.ID),
				zap.Error(err),
			)
			return borrower, nil, err
		}
		loan = &l
	}

	s.logger.Info("borrower created",
		zap.String("borrower_id", borrower.ID),
		zap.Bool("with_initial_loan", loan != nil),
	)
	s.metrics.RecordRequestDuration("borrower_create", time.Since(start))
	refreshAfterWrite(ctx, s.snap, s.logger, "borrower_create")
	return borrower, loan, nil
}

// UpdateBorrowerInput carries the mutable borrower fields. Nil pointers
// mean "leave unchanged".
type UpdateBorrowerInput struct {
	Email    *string
	Contact  *string
	Address  *string
	PhotoRef *string
}

// Update patches a borrower's contact fields. Name and id are immutable.
func (s *BorrowerService) Update(ctx context.Context, id string, in UpdateBorrowerInput) error {
	ctx, span := tracer.Start(ctx, "Borrowers.Update")
	defer span.End()

	if _, ok := s.snap.Snapshot().FindBorrower(id); !ok {
		return &domain.ErrNotFound{Resource: "borrower", ID: id}
	}

	fields := map[string]any{}
	if in.Email != nil {
		fields["email"] = *in.Email
	}
	if in.Contact != nil {
		fields["contact"] = *in.Contact
	}
	if in.Address != nil {
		fields["address"] = *in.Address
	}
	if in.PhotoRef != nil {
		fields["photo"] = *in.PhotoRef
	}
	if len(fields) == 0 {
		return &domain.ErrValidation{Field: "body", Message: "no updatable fields given"}
	}

	if err := s.store.UpdateBorrower(ctx, id, fields); err != nil {
		return err
	}

	s.logger.Info("borrower updated", zap.String("borrower_id", id))
	refreshAfterWrite(ctx, s.snap, s.logger, "borrower_update")
	return nil
}

// LoanService reads loans and builds their reconciled ledgers.
type LoanService struct {
	snap   port.SnapshotSource
	ledger *ledger.Ledger
	logger *zap.Logger
}

// NewLoanService creates a LoanService.
func NewLoanService(snap port.SnapshotSource, lgr *ledger.Ledger, logger *zap.Logger) *LoanService {
	return &LoanService{snap: snap, ledger: lgr, logger: logger}
}

// List returns loans, optionally filtered by borrower.
func (s *LoanService) List(ctx context.Context, borrowerID string) ([]domain.Loan, error) {
	loans := s.snap.Snapshot().Loans
	if borrowerID == "" {
		return loans, nil
	}
	out := make([]domain.Loan, 0, len(loans))
	for _, l := range loans {
		if l.BorrowerID == borrowerID {
			out = append(out, l)
		}
	}
	return out, nil
}

// Get returns one loan by id.
func (s *LoanService) Get(ctx context.Context, id string) (domain.Loan, error) {
	l, ok := s.snap.Snapshot().FindLoan(id)
	if !ok {
		return domain.Loan{}, &domain.ErrNotFound{Resource: "loan", ID: id}
	}
	return *l, nil
}

// Ledger builds the reconciled installment view for one loan.
func (s *LoanService) Ledger(ctx context.Context, loanID string) (*ledger.LoanLedger, error) {
	_, span := tracer.Start(ctx, "Loans.Ledger")
	defer span.End()

	snap := s.snap.Snapshot()
	loan, ok := snap.FindLoan(loanID)
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "loan", ID: loanID}
	}
	return s.ledger.Build(*loan, snap.LoanPayments(loanID), time.Now().UTC())
}
