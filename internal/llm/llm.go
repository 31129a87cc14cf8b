package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Client abstracts hosted multimodal model providers.
type Client interface {
	Analyze(ctx context.Context, input MediaInput) (json.RawMessage, error)
}

// MediaInput is the content sent to the model alongside the fixed instruction.
type MediaInput struct {
	Content  []byte
	MIMEType string
	Kind     string
}

var (
	// ErrEmptyResponse is returned when the model answers without any text.
	ErrEmptyResponse = errors.New("empty response from AI")
	// ErrUpstream marks network, timeout, auth and provider-side failures.
	ErrUpstream = errors.New("model provider request failed")
	// ErrUnsupportedKind is returned when a provider cannot accept the media kind.
	ErrUnsupportedKind = errors.New("media kind not supported by provider")
	// ErrNotConfigured is returned by the placeholder client.
	ErrNotConfigured = errors.New("model provider not configured")
)

// UpstreamError describes a failed provider call. It matches ErrUpstream with errors.Is.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: http status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// NewUpstreamError classifies err as transient when it is a timeout, a connection
// failure, a 429 or a 5xx.
func NewUpstreamError(provider string, status int, err error) *UpstreamError {
	return &UpstreamError{
		Provider:   provider,
		StatusCode: status,
		Transient:  isTransientStatus(status) || isTransientNetErr(err),
		Err:        err,
	}
}

// IsTransient reports whether a retry could succeed.
func IsTransient(err error) bool {
	var up *UpstreamError
	if errors.As(err, &up) {
		return up.Transient
	}
	return isTransientNetErr(err)
}

func isTransientStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func isTransientNetErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// PlaceholderClient is used when no provider key is configured.
type PlaceholderClient struct{}

// Analyze returns ErrNotConfigured wrapped as an upstream failure.
func (PlaceholderClient) Analyze(ctx context.Context, input MediaInput) (json.RawMessage, error) {
	return nil, &UpstreamError{Provider: "none", Err: ErrNotConfigured}
}
