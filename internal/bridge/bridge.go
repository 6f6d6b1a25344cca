// Package bridge is a retrying client for a remote tsfeatures service.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jward/tsfeatures"
)

// Defaults.
const (
	DefaultAddr     = "localhost:5123"
	DefaultAttempts = 10
	DefaultBackoff  = 10 * time.Millisecond
)

// RemoteError is the service's failure envelope. It is returned without
// retrying: the service answers the same request the same way.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("bridge: remote error (%d): %s", e.Status, e.Message)
}

// Bridge posts requests to a remote service's /process endpoint.
type Bridge struct {
	url      string
	client   *http.Client
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithAttempts sets the total number of tries per call. Values below 1
// are treated as 1.
func WithAttempts(n int) Option {
	return func(b *Bridge) {
		b.attempts = max(n, 1)
	}
}

// WithBackoff sets the fixed pause between tries.
func WithBackoff(d time.Duration) Option {
	return func(b *Bridge) {
		b.backoff = d
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(b *Bridge) {
		b.client = c
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = l
	}
}

// New returns a Bridge for addr, a host:port or a full base URL. An empty
// addr means DefaultAddr.
func New(addr string, opts ...Option) *Bridge {
	if addr == "" {
		addr = DefaultAddr
	}
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	b := &Bridge{
		url:      strings.TrimRight(base, "/") + "/process",
		client:   http.DefaultClient,
		attempts: DefaultAttempts,
		backoff:  DefaultBackoff,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Call sends req and returns the service's report. Transport failures and
// undecodable responses are retried; after the last attempt the final
// cause is returned wrapped.
func (b *Bridge) Call(ctx context.Context, req tsfeatures.Request) (tsfeatures.Report, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return tsfeatures.Report{}, fmt.Errorf("bridge: encode request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= b.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return tsfeatures.Report{}, fmt.Errorf("bridge: %w (last error: %w)", ctx.Err(), lastErr)
			case <-time.After(b.backoff):
			}
		}

		report, err := b.once(ctx, body)
		if err == nil {
			return report, nil
		}
		var remote *RemoteError
		if errors.As(err, &remote) || ctx.Err() != nil {
			return tsfeatures.Report{}, err
		}
		lastErr = err
		b.logger.DebugContext(ctx, "bridge call failed", "attempt", attempt, "error", err)
	}
	return tsfeatures.Report{}, fmt.Errorf("bridge: call failed after %d attempt(s): %w", b.attempts, lastErr)
}

func (b *Bridge) once(ctx context.Context, body []byte) (tsfeatures.Report, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return tsfeatures.Report{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return tsfeatures.Report{}, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return tsfeatures.Report{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Error *string `json:"Error"`
		}
		if json.Unmarshal(data, &envelope) == nil && envelope.Error != nil {
			return tsfeatures.Report{}, &RemoteError{Status: resp.StatusCode, Message: *envelope.Error}
		}
		return tsfeatures.Report{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var report tsfeatures.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return tsfeatures.Report{}, fmt.Errorf("decode response: %w", err)
	}
	if report.Features == nil {
		report.Features = make(map[string]bool)
	}
	return report, nil
}
