// Package gateway is the HTTP client for the external payment provider,
// with retries on transient failures and a circuit breaker so a degraded
// provider cannot pile up blocked checkouts.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	apperrors "github.com/FreemaX94/VIVR-sub000/pkg/errors"
)

const (
	sessionsPath   = "/v1/sessions"
	maxAttempts    = 3
	initialBackoff = 100 * time.Millisecond
)

// SessionRequest asks the provider to open a payment session for an amount.
type SessionRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Reference string          `json:"reference"`
}

// Session is an open payment session at the provider.
type Session struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	RedirectURL string    `json:"redirect_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Config holds payment gateway client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// PaymentClient talks to the payment provider.
type PaymentClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	breaker    *gobreaker.CircuitBreaker[*Session]
	logger     *slog.Logger
}

// NewPaymentClient creates the provider client. The breaker opens after five
// consecutive failures and probes again after 30 seconds.
func NewPaymentClient(cfg Config, log *slog.Logger) *PaymentClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &PaymentClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		breaker:    gobreaker.NewCircuitBreaker[*Session](settings),
		logger:     log,
	}
}

// CreateSession opens a payment session for the given amount. Transient
// failures (network errors, 5xx) are retried with backoff inside a single
// breaker execution; provider rejections (4xx) fail immediately and do not
// count against the breaker.
func (c *PaymentClient) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	session, err := c.breaker.Execute(func() (*Session, error) {
		return c.createSessionWithRetry(ctx, req)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, apperrors.PaymentFailed("payment provider is temporarily unavailable")
		}
		return nil, err
	}
	return session, nil
}

func (c *PaymentClient) createSessionWithRetry(ctx context.Context, req SessionRequest) (*Session, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}

	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		session, retryable, err := c.doCreateSession(ctx, body)
		if err == nil {
			return session, nil
		}
		if !retryable {
			return nil, err
		}

		lastErr = err
		c.logger.WarnContext(ctx, "payment session attempt failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	}

	return nil, fmt.Errorf("payment session after %d attempts: %w", maxAttempts, lastErr)
}

// doCreateSession performs one request. The bool reports whether the failure
// is worth retrying.
func (c *PaymentClient) doCreateSession(ctx context.Context, body []byte) (*Session, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sessionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("build session request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, true, fmt.Errorf("payment gateway request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, fmt.Errorf("read gateway response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("payment gateway returned %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, false, apperrors.PaymentFailed(gatewayMessage(respBody, resp.StatusCode))
	}

	var session Session
	if err := json.Unmarshal(respBody, &session); err != nil {
		return nil, false, fmt.Errorf("decode session response: %w", err)
	}
	return &session, false, nil
}

// gatewayMessage extracts the provider's error message, falling back to the
// status code when the body is not the expected shape.
func gatewayMessage(body []byte, status int) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return fmt.Sprintf("payment rejected with status %d", status)
}
