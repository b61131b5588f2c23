// Package apiclient talks to the remote message gateway. The gateway owns all
// durable state; this package only maps its records to domain messages.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/itchan-dev/echobox/shared/logger"
)

// ErrGateway matches every *GatewayError with errors.Is.
var ErrGateway = errors.New("gateway error")

// GatewayError describes a failed gateway call: transport failure when Err is
// set, non-2xx response otherwise.
type GatewayError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: gateway unavailable: %v", e.Op, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("%s: %d - %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func (e *GatewayError) Is(target error) bool {
	return target == ErrGateway
}

// APIClient struct handles all communication with the gateway.
type APIClient struct {
	BaseURL    string
	HttpClient *http.Client
	// StrictMarkRead makes MarkAsRead fail on non-2xx responses. By default
	// they are logged and tolerated because the gateway does not implement
	// the endpoint consistently.
	StrictMarkRead bool

	now func() time.Time
}

func New(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HttpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// do is the single helper for gateway requests. Transport failures come back
// as *GatewayError; status handling is left to the caller.
func (c *APIClient) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.HttpClient.Do(req)
	observe(op, start, resp, err)
	if err != nil {
		logger.Log.Error("gateway request failed", "op", op, "path", path, "error", err)
		return nil, &GatewayError{Op: op, Err: err}
	}
	return resp, nil
}

// statusError drains resp and builds the error for a non-2xx status.
func statusError(op string, resp *http.Response) *GatewayError {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &GatewayError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
