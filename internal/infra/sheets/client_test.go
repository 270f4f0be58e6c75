package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yengrand82/Loan-Manager/internal/domain"
	"github.com/yengrand82/Loan-Manager/internal/infra/observability"
	"github.com/yengrand82/Loan-Manager/internal/infra/resilience"
)

func decimalFromInt(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(
		srv.Client(),
		srv.URL,
		resilience.NewBreaker("test"),
		resilience.Policy{MaxRetries: 0, InitialBackoff: time.Millisecond, MaxConcurrency: 2},
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func TestGetLoans_LenientCellDecoding(t *testing.T) {
	// Quoted numbers, empty numeric cells and a schedule wrapped in a JSON
	// string: all real sheet export quirks.
	payload := `[
		{
			"id": "LN-1", "borrowerid": "BRW-1", "type": "interest-only",
			"principal": "30000", "rate": 5, "term": "3",
			"startdate": "2025-01-15", "status": "active",
			"schedule": "[{\"month\":1,\"payment_due\":\"1500\",\"principal_portion\":\"0\",\"interest_portion\":\"1500\",\"balance_after\":\"30000\",\"due_date\":\"2025-02-14T00:00:00Z\"}]"
		},
		{
			"id": "LN-2", "borrowerid": "BRW-1", "type": "amortized",
			"principal": "", "rate": null, "term": "",
			"startdate": "", "status": "active",
			"schedule": "not json at all"
		}
	]`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("action"); got != "getLoans" {
			t.Errorf("expected action=getLoans, got %q", got)
		}
		w.Write([]byte(payload))
	})

	loans, err := c.GetLoans(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(loans) != 2 {
		t.Fatalf("expected 2 loans, got %d", len(loans))
	}

	first := loans[0]
	if !first.Principal.Equal(decimalFromInt(30000)) || first.Term != 3 {
		t.Errorf("unexpected decoded loan: %+v", first)
	}
	if len(first.Schedule) != 1 || first.Schedule[0].Month != 1 {
		t.Errorf("expected the string-wrapped schedule to decode, got %+v", first.Schedule)
	}

	second := loans[1]
	if !second.Principal.IsZero() || second.Term != 0 {
		t.Errorf("expected empty cells decoded as zero, got %+v", second)
	}
	if second.Schedule != nil {
		t.Error("expected the undecodable schedule to come back nil")
	}
}

func TestAddLoan_SerializesScheduleAsStringCell(t *testing.T) {
	var received struct {
		Action string         `json:"action"`
		Data   map[string]any `json:"data"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	})

	loan := domain.Loan{
		ID: "LN-1", BorrowerID: "BRW-1", ProductType: domain.ProductStaggered,
		Principal: decimalFromInt(5000), Rate: decimalFromInt(4), Term: 2,
		StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:    domain.LoanStatusActive,
		Schedule: []domain.Installment{
			{Month: 1, PaymentDue: decimalFromInt(2700)},
			{Month: 2, PaymentDue: decimalFromInt(2700)},
		},
	}
	if err := c.AddLoan(context.Background(), loan); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if received.Action != "addLoan" {
		t.Errorf("expected action addLoan, got %q", received.Action)
	}
	if received.Data["startdate"] != "2025-03-01" {
		t.Errorf("expected bare date, got %v", received.Data["startdate"])
	}

	scheduleCell, ok := received.Data["schedule"].(string)
	if !ok {
		t.Fatalf("expected schedule serialized as a string cell, got %T", received.Data["schedule"])
	}
	var entries []domain.Installment
	if err := json.Unmarshal([]byte(scheduleCell), &entries); err != nil {
		t.Fatalf("schedule cell not valid JSON: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 installments in the cell, got %d", len(entries))
	}
}

func TestGetMessages_PassesBorrowerParam(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("borrowerId"); got != "BRW-7" {
			t.Errorf("expected borrowerId=BRW-7, got %q", got)
		}
		w.Write([]byte(`[{"id":"MSG-1","borrowerid":"BRW-7","sender":"admin","body":"hello","createdat":"2025-06-01T10:00:00Z"}]`))
	})

	msgs, err := c.GetMessages(context.Background(), "BRW-7")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(msgs) != 1 || msgs[0].Body != "hello" {
		t.Errorf("unexpected messages: %+v", msgs)
	}
}

func TestClient_WrapsFailuresAsRemoteStoreErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "script exhausted quota", http.StatusInternalServerError)
	})

	_, err := c.GetBorrowers(context.Background())
	var remote *domain.ErrRemoteStore
	if !errors.As(err, &remote) {
		t.Fatalf("expected ErrRemoteStore, got %v", err)
	}
	if remote.Op != "getBorrowers" {
		t.Errorf("expected op getBorrowers, got %q", remote.Op)
	}

	err = c.UpdatePaymentStatus(context.Background(), "PAY-1", domain.PaymentStatusCompleted)
	if !errors.As(err, &remote) {
		t.Fatalf("expected ErrRemoteStore on writes too, got %v", err)
	}
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "flaky", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(
		srv.Client(),
		srv.URL,
		resilience.NewBreaker("test-retry"),
		resilience.Policy{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxConcurrency: 2},
		observability.NewMetrics(),
		zap.NewNop(),
	)

	if _, err := c.GetPayments(context.Background()); err != nil {
		t.Fatalf("expected the retry to succeed, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}
