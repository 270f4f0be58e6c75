// Package sheets talks to the remote tabular store: a spreadsheet web app
// that exposes each table through HTTP actions. Reads are GET requests with
// an action query parameter; writes are POSTs carrying {"action", "data"}.
// The endpoint is slow and shared, so every call goes through a circuit
// breaker, retry with backoff and a concurrency gate.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/yengrand82/Loan-Manager/internal/domain"
	"github.com/yengrand82/Loan-Manager/internal/infra/observability"
	"github.com/yengrand82/Loan-Manager/internal/infra/resilience"
)

var tracer = otel.Tracer("sheets")

// Client implements port.Store against the sheet web app.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	policy     resilience.Policy
	gate       *resilience.Gate
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewClient creates a sheet store client.
func NewClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, policy resilience.Policy, metrics *observability.Metrics, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		policy:     policy,
		gate:       resilience.NewGate(policy.MaxConcurrency),
		metrics:    metrics,
		logger:     logger,
	}
}

// doGet fetches one collection. params may be nil.
func (c *Client) doGet(ctx context.Context, action string, params url.Values) ([]byte, error) {
	q := url.Values{}
	q.Set("action", action)
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	target := fmt.Sprintf("%s?%s", c.baseURL, q.Encode())

	body, err := c.execute(ctx, action, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		return c.send(req, action)
	})
	if err != nil {
		return nil, &domain.ErrRemoteStore{Op: action, Err: err}
	}
	return body, nil
}

// doPost issues one mutation action.
func (c *Client) doPost(ctx context.Context, action string, data map[string]any) error {
	payload, err := json.Marshal(map[string]any{
		"action": action,
		"data":   data,
	})
	if err != nil {
		return &domain.ErrRemoteStore{Op: action, Err: err}
	}

	_, err = c.execute(ctx, action, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return c.send(req, action)
	})
	if err != nil {
		return &domain.ErrRemoteStore{Op: action, Err: err}
	}
	return nil
}

// execute runs one request through the gate, breaker and retry stack.
func (c *Client) execute(ctx context.Context, action string, attempt func() ([]byte, error)) ([]byte, error) {
	if err := c.gate.Enter(ctx); err != nil {
		return nil, err
	}
	defer c.gate.Leave()

	var body []byte
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.Retry(ctx, c.policy, func() error {
			b, err := attempt()
			if err != nil {
				return err
			}
			body = b
			return nil
		})
	})
	if err != nil {
		c.metrics.IncrStoreError(action)
		c.logger.Error("sheet store call failed",
			zap.String("action", action),
			zap.Error(err),
		)
		return nil, err
	}
	return body, nil
}

func (c *Client) send(req *http.Request, action string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("sheet store non-2xx",
			zap.String("action", action),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, fmt.Errorf("sheet endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	c.logger.Debug("sheet store call OK",
		zap.String("action", action),
		zap.Int("status", resp.StatusCode),
	)
	return body, nil
}
