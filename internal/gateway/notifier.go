// Package gateway notifies the external captive-portal gateway that an
// identity earned network access. The gateway owns the actual network-layer
// enforcement; this package only delivers grant instructions.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Notifier instructs the gateway to extend network access for an identity.
type Notifier interface {
	Grant(ctx context.Context, identity string, durationSeconds int) error
}

// grantRequest is the wire format sent to the gateway.
type grantRequest struct {
	Identity        string `json:"identity"`
	DurationSeconds int    `json:"duration_seconds"`
}

// HTTPNotifier delivers grants over HTTP with at-least-once semantics.
// Granting twice for the same decision is safe (the gateway accumulates or
// caps duration), so transient failures are retried with backoff.
type HTTPNotifier struct {
	url        string
	client     *http.Client
	maxRetries uint64
}

// NewHTTPNotifier creates a notifier posting to url with the given per-call
// timeout and retry budget.
func NewHTTPNotifier(url string, timeout time.Duration, maxRetries int) *HTTPNotifier {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &HTTPNotifier{
		url:        url,
		client:     &http.Client{Timeout: timeout},
		maxRetries: uint64(maxRetries),
	}
}

// Grant posts the grant instruction, retrying transient failures.
func (n *HTTPNotifier) Grant(ctx context.Context, identity string, durationSeconds int) error {
	body, err := json.Marshal(grantRequest{Identity: identity, DurationSeconds: durationSeconds})
	if err != nil {
		return fmt.Errorf("marshal grant request: %w", err)
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build grant request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return fmt.Errorf("post grant: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("gateway returned status %d", resp.StatusCode)
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), n.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("grant access for %s: %w", identity, err)
	}
	return nil
}

// LogNotifier records grants in the log instead of calling a gateway.
// Used when no gateway URL is configured.
type LogNotifier struct{}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Grant logs the grant instruction.
func (n *LogNotifier) Grant(_ context.Context, identity string, durationSeconds int) error {
	log.Info().
		Str("identity", identity).
		Int("duration_seconds", durationSeconds).
		Msg("gateway not configured, access grant logged only")
	return nil
}
