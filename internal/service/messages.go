package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yengrand82/Loan-Manager/internal/domain"
	"github.com/yengrand82/Loan-Manager/internal/infra/idgen"
	"github.com/yengrand82/Loan-Manager/internal/port"
)

// MessageService reads and appends the borrower/admin conversation threads.
// Threads are keyed by borrower; there is exactly one per borrower.
type MessageService struct {
	store  port.Store
	snap   port.SnapshotSource
	logger *zap.Logger
}

// NewMessageService creates a MessageService.
func NewMessageService(store port.Store, snap port.SnapshotSource, logger *zap.Logger) *MessageService {
	return &MessageService{store: store, snap: snap, logger: logger}
}

// List returns a borrower's thread oldest-first.
func (s *MessageService) List(ctx context.Context, borrowerID string) ([]domain.Message, error) {
	ctx, span := tracer.Start(ctx, "Messages.List")
	defer span.End()

	if _, ok := s.snap.Snapshot().FindBorrower(borrowerID); !ok {
		return nil, &domain.ErrNotFound{Resource: "borrower", ID: borrowerID}
	}

	msgs, err := s.store.GetMessages(ctx, borrowerID)
	if err != nil {
		return nil, err
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	return msgs, nil
}

// Send appends one message to a borrower's thread. Sending does not
// trigger a snapshot refresh: messages live outside the snapshot
// collections and a refresh mid-conversation would serve no one.
func (s *MessageService) Send(ctx context.Context, borrowerID, sender, body string) (domain.Message, error) {
	ctx, span := tracer.Start(ctx, "Messages.Send")
	defer span.End()

	if _, ok := s.snap.Snapshot().FindBorrower(borrowerID); !ok {
		return domain.Message{}, &domain.ErrNotFound{Resource: "borrower", ID: borrowerID}
	}
	if sender != domain.SenderAdmin && sender != domain.SenderBorrower {
		return domain.Message{}, &domain.ErrValidation{Field: "sender", Message: "must be admin or borrower"}
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.Message{}, &domain.ErrValidation{Field: "body", Message: "must not be empty"}
	}

	msg := domain.Message{
		ID:         idgen.Message(),
		BorrowerID: borrowerID,
		Sender:     sender,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.AddMessage(ctx, msg); err != nil {
		return domain.Message{}, err
	}

	s.logger.Info("message sent",
		zap.String("borrower_id", borrowerID),
		zap.String("sender", sender),
	)
	return msg, nil
}
