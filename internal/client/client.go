// Package client talks to the external events and auth API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gigboard/pkg/middleware/requestid"
)

// ErrUnauthenticated is returned when no token is available or the API
// answers 401. Callers are expected to send the user to the login page.
var ErrUnauthenticated = errors.New("client: unauthenticated")

// UpstreamError describes a failed call that is not an authentication
// problem: transport failures, unexpected statuses and unreadable bodies.
type UpstreamError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": %d %s", e.Status, http.StatusText(e.Status))
	}
	if e.Body != "" {
		b.WriteString(" - ")
		b.WriteString(e.Body)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// TokenSource provides the bearer token of the current session.
type TokenSource interface {
	// Token returns "" when the session has no token.
	Token(ctx context.Context) (string, error)
	// Clear drops the session token after the API rejected it.
	Clear(ctx context.Context) error
}

// Observer receives the outcome of each upstream call. Status is 0 for
// transport failures.
type Observer interface {
	ObserveUpstream(op string, status int, duration time.Duration)
}

// Options configures the shared transport of EventClient and AuthClient.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
	Observer   Observer
}

const maxBodyBytes = 4 << 20

type transport struct {
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
	observer Observer
}

func newTransport(opts Options) transport {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return transport{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		http:     hc,
		logger:   logger,
		observer: opts.Observer,
	}
}

type result struct {
	status int
	header http.Header
	body   []byte
}

// do performs one request. Only transport and read failures are returned as
// errors; status handling is left to the caller.
func (t transport) do(ctx context.Context, op, method, path, token string, payload interface{}) (*result, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, &UpstreamError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return nil, &UpstreamError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil || token != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.HeaderKey, id)
	}

	start := time.Now()
	resp, err := t.http.Do(req)
	if err != nil {
		t.observe(op, 0, time.Since(start))
		t.logger.Warn("upstream request failed", zap.String("op", op), zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, &UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	t.observe(op, resp.StatusCode, elapsed)
	if err != nil {
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	t.logger.Debug("upstream request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", elapsed),
	)
	return &result{status: resp.StatusCode, header: resp.Header, body: raw}, nil
}

func (t transport) observe(op string, status int, d time.Duration) {
	if t.observer != nil {
		t.observer.ObserveUpstream(op, status, d)
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func statusError(op string, res *result) *UpstreamError {
	return &UpstreamError{Op: op, Status: res.status, Body: strings.TrimSpace(string(res.body))}
}
