package sheets

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yengrand82/Loan-Manager/internal/domain"
)

// Mutations are fire-and-forget: the web app acknowledges the append but
// offers no read-your-writes guarantee, so callers refresh afterwards to
// observe the effect.

// AddBorrower appends a borrower row.
func (c *Client) AddBorrower(ctx context.Context, b domain.Borrower) error {
	ctx, span := tracer.Start(ctx, "Sheets.AddBorrower")
	defer span.End()

	return c.doPost(ctx, "addBorrower", map[string]any{
		"id":        b.ID,
		"name":      b.Name,
		"email":     b.Email,
		"contact":   b.Contact,
		"address":   b.Address,
		"photo":     b.PhotoRef,
		"createdat": b.CreatedAt.Format(time.RFC3339),
	})
}

// AddLoan appends a loan row. The schedule is stored as a JSON string in a
// single cell, generated exactly once here and never rewritten.
func (c *Client) AddLoan(ctx context.Context, l domain.Loan) error {
	ctx, span := tracer.Start(ctx, "Sheets.AddLoan")
	defer span.End()

	scheduleJSON, err := json.Marshal(l.Schedule)
	if err != nil {
		return &domain.ErrRemoteStore{Op: "addLoan", Err: err}
	}

	return c.doPost(ctx, "addLoan", map[string]any{
		"id":         l.ID,
		"borrowerid": l.BorrowerID,
		"type":       string(l.ProductType),
		"principal":  l.Principal,
		"rate":       l.Rate,
		"term":       l.Term,
		"startdate":  l.StartDate.Format("2006-01-02"),
		"status":     l.Status,
		"schedule":   string(scheduleJSON),
	})
}

// AddPayment appends a payment row.
func (c *Client) AddPayment(ctx context.Context, p domain.Payment) error {
	ctx, span := tracer.Start(ctx, "Sheets.AddPayment")
	defer span.End()

	return c.doPost(ctx, "addPayment", map[string]any{
		"id":          p.ID,
		"loanid":      p.LoanID,
		"borrowerid":  p.BorrowerID,
		"amount":      p.Amount,
		"month":       p.Month,
		"paymentdate": p.PaymentDate.Format(time.RFC3339),
		"proof":       p.ProofRef,
		"status":      p.Status,
	})
}

// SubmitApplication appends a loan application row.
func (c *Client) SubmitApplication(ctx context.Context, a domain.Application) error {
	ctx, span := tracer.Start(ctx, "Sheets.SubmitApplication")
	defer span.End()

	return c.doPost(ctx, "submitApplication", map[string]any{
		"id":         a.ID,
		"borrowerid": a.BorrowerID,
		"amount":     a.Amount,
		"purpose":    a.Purpose,
		"term":       a.Term,
		"income":     a.Income,
		"employment": a.Employment,
		"timestamp":  a.Timestamp.Format(time.RFC3339),
		"status":     a.Status,
	})
}

// UpdateApplication sets an application's status.
func (c *Client) UpdateApplication(ctx context.Context, id, status string) error {
	ctx, span := tracer.Start(ctx, "Sheets.UpdateApplication")
	defer span.End()

	return c.doPost(ctx, "updateApplication", map[string]any{
		"id":     id,
		"status": status,
	})
}

// UpdatePaymentStatus sets a payment's status.
func (c *Client) UpdatePaymentStatus(ctx context.Context, id, status string) error {
	ctx, span := tracer.Start(ctx, "Sheets.UpdatePaymentStatus")
	defer span.End()

	return c.doPost(ctx, "updatePaymentStatus", map[string]any{
		"id":     id,
		"status": status,
	})
}

// UpdateBorrower patches contact/photo fields on a borrower row.
func (c *Client) UpdateBorrower(ctx context.Context, id string, fields map[string]any) error {
	ctx, span := tracer.Start(ctx, "Sheets.UpdateBorrower")
	defer span.End()

	data := map[string]any{"id": id}
	for k, v := range fields {
		data[k] = v
	}
	return c.doPost(ctx, "updateBorrower", data)
}

// AddMessage appends one message to a borrower's thread.
func (c *Client) AddMessage(ctx context.Context, m domain.Message) error {
	ctx, span := tracer.Start(ctx, "Sheets.AddMessage")
	defer span.End()

	return c.doPost(ctx, "addMessage", map[string]any{
		"id":         m.ID,
		"borrowerid": m.BorrowerID,
		"sender":     m.Sender,
		"body":       m.Body,
		"createdat":  m.CreatedAt.Format(time.RFC3339),
	})
}
