package sheets

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yengrand82/Loan-Manager/internal/domain"
)

// The sheet flattens column headers to lowercase, and empty cells come back
// as empty strings even in numeric columns. The row types below absorb both
// quirks so one ragged row cannot poison a whole collection fetch.

// cell is a decimal that tolerates quoted numbers, empty strings and null,
// all of which appear in real sheet exports.
type cell struct {
	decimal.Decimal
}

func (c *cell) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		c.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	c.Decimal = d
	return nil
}

// intCell is an integer with the same tolerance.
type intCell int

func (c *intCell) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	*c = intCell(d.IntPart())
	return nil
}

// parseDate accepts RFC3339 timestamps and bare dates.
func parseDate(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02", s)
	return t
}

type borrowerRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Contact   string `json:"contact"`
	Address   string `json:"address"`
	Photo     string `json:"photo"`
	CreatedAt string `json:"createdat"`
}

// GetBorrowers fetches the borrowers collection.
func (c *Client) GetBorrowers(ctx context.Context) ([]domain.Borrower, error) {
	ctx, span := tracer.Start(ctx, "Sheets.GetBorrowers")
	defer span.End()

	body, err := c.doGet(ctx, "getBorrowers", nil)
	if err != nil {
		return nil, err
	}

	var rows []borrowerRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &domain.ErrRemoteStore{Op: "getBorrowers", Err: err}
	}

	out := make([]domain.Borrower, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Borrower{
			ID:        r.ID,
			Name:      r.Name,
			Email:     r.Email,
			Contact:   r.Contact,
			Address:   r.Address,
			PhotoRef:  r.Photo,
			CreatedAt: parseDate(r.CreatedAt),
		})
	}
	return out, nil
}

type loanRow struct {
	ID         string          `json:"id"`
	BorrowerID string          `json:"borrowerid"`
	Type       string          `json:"type"`
	Principal  cell            `json:"principal"`
	Rate       cell            `json:"rate"`
	Term       intCell         `json:"term"`
	StartDate  string          `json:"startdate"`
	Status     string          `json:"status"`
	Schedule   json.RawMessage `json:"schedule"`
}

// GetLoans fetches the loans collection. A loan whose schedule column fails
// to decode is returned with a nil schedule; the ledger regenerates one
// from the loan terms, so the fetch itself never fails on bad schedule data.
func (c *Client) GetLoans(ctx context.Context) ([]domain.Loan, error) {
	ctx, span := tracer.Start(ctx, "Sheets.GetLoans")
	defer span.End()

	body, err := c.doGet(ctx, "getLoans", nil)
	if err != nil {
		return nil, err
	}

	var rows []loanRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &domain.ErrRemoteStore{Op: "getLoans", Err: err}
	}

	out := make([]domain.Loan, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Loan{
			ID:          r.ID,
			BorrowerID:  r.BorrowerID,
			ProductType: domain.ProductType(r.Type),
			Principal:   r.Principal.Decimal,
			Rate:        r.Rate.Decimal,
			Term:        int(r.Term),
			StartDate:   parseDate(r.StartDate),
			Status:      r.Status,
			Schedule:    c.decodeSchedule(r.ID, r.Schedule),
		})
	}
	return out, nil
}

// decodeSchedule reads the schedule column, which holds either a JSON array
// or a JSON string wrapping one. Returns nil on any decode failure.
func (c *Client) decodeSchedule(loanID string, raw json.RawMessage) []domain.Installment {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == `""` {
		return nil
	}

	payload := []byte(raw)
	if payload[0] == '"' {
		var inner string
		if err := json.Unmarshal(payload, &inner); err != nil {
			c.logger.Warn("schedule column not decodable",
				zap.String("loan_id", loanID),
				zap.Error(err),
			)
			return nil
		}
		payload = []byte(inner)
	}

	var entries []domain.Installment
	if err := json.Unmarshal(payload, &entries); err != nil {
		c.logger.Warn("schedule column not decodable",
			zap.String("loan_id", loanID),
			zap.Error(err),
		)
		return nil
	}
	return entries
}

type paymentRow struct {
	ID          string  `json:"id"`
	LoanID      string  `json:"loanid"`
	BorrowerID  string  `json:"borrowerid"`
	Amount      cell    `json:"amount"`
	Month       intCell `json:"month"`
	PaymentDate string  `json:"paymentdate"`
	Proof       string  `json:"proof"`
	Status      string  `json:"status"`
}

// GetPayments fetches the payments collection.
func (c *Client) GetPayments(ctx context.Context) ([]domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "Sheets.GetPayments")
	defer span.End()

	body, err := c.doGet(ctx, "getPayments", nil)
	if err != nil {
		return nil, err
	}

	var rows []paymentRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &domain.ErrRemoteStore{Op: "getPayments", Err: err}
	}

	out := make([]domain.Payment, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Payment{
			ID:          r.ID,
			LoanID:      r.LoanID,
			BorrowerID:  r.BorrowerID,
			Amount:      r.Amount.Decimal,
			Month:       int(r.Month),
			PaymentDate: parseDate(r.PaymentDate),
			ProofRef:    r.Proof,
			Status:      r.Status,
		})
	}
	return out, nil
}

type applicationRow struct {
	ID         string  `json:"id"`
	BorrowerID string  `json:"borrowerid"`
	Amount     cell    `json:"amount"`
	Purpose    string  `json:"purpose"`
	Term       intCell `json:"term"`
	Income     cell    `json:"income"`
	Employment string  `json:"employment"`
	Timestamp  string  `json:"timestamp"`
	Status     string  `json:"status"`
}

// GetApplications fetches the loan applications collection.
func (c *Client) GetApplications(ctx context.Context) ([]domain.Application, error) {
	ctx, span := tracer.Start(ctx, "Sheets.GetApplications")
	defer span.End()

	body, err := c.doGet(ctx, "getApplications", nil)
	if err != nil {
		return nil, err
	}

	var rows []applicationRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &domain.ErrRemoteStore{Op: "getApplications", Err: err}
	}

	out := make([]domain.Application, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Application{
			ID:         r.ID,
			BorrowerID: r.BorrowerID,
			Amount:     r.Amount.Decimal,
			Purpose:    r.Purpose,
			Term:       int(r.Term),
			Income:     r.Income.Decimal,
			Employment: r.Employment,
			Timestamp:  parseDate(r.Timestamp),
			Status:     r.Status,
		})
	}
	return out, nil
}

type messageRow struct {
	ID         string `json:"id"`
	BorrowerID string `json:"borrowerid"`
	Sender     string `json:"sender"`
	Body       string `json:"body"`
	CreatedAt  string `json:"createdat"`
}

// GetMessages fetches the conversation thread for one borrower.
func (c *Client) GetMessages(ctx context.Context, borrowerID string) ([]domain.Message, error) {
	ctx, span := tracer.Start(ctx, "Sheets.GetMessages")
	defer span.End()

	params := url.Values{}
	params.Set("borrowerId", borrowerID)
	body, err := c.doGet(ctx, "getMessages", params)
	if err != nil {
		return nil, err
	}

	var rows []messageRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &domain.ErrRemoteStore{Op: "getMessages", Err: err}
	}

	out := make([]domain.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Message{
			ID:         r.ID,
			BorrowerID: r.BorrowerID,
			Sender:     r.Sender,
			Body:       r.Body,
			CreatedAt:  parseDate(r.CreatedAt),
		})
	}
	return out, nil
}
