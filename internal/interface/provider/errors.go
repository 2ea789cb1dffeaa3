package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/rotisserie/eris"

	"vehicle-data-service/pkg/resilience"
)

// ErrorKind classifies why a provider call failed
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindHTTPStatus  ErrorKind = "http_status"
	KindRateLimited ErrorKind = "rate_limited"
	KindNotFound    ErrorKind = "not_found"
	KindMalformed   ErrorKind = "malformed"
	KindCircuitOpen ErrorKind = "circuit_open"
	KindTransport   ErrorKind = "transport"
)

// ProviderError is a recoverable failure of one provider service
type ProviderError struct {
	Service    string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s (status %d): %v", e.Service, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Service, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a provider error, or "" for anything else
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func statusError(service string, status int, body string) *ProviderError {
	err := eris.Errorf("unexpected response: %s", truncate(body, 200))

	kind := KindHTTPStatus
	switch status {
	case http.StatusNotFound:
		kind = KindNotFound
	case http.StatusTooManyRequests:
		kind = KindRateLimited
	}
	if resilience.IsTransientHTTPStatus(status) {
		err = resilience.NewTransientError(err, status)
	}
	return &ProviderError{Service: service, Kind: kind, StatusCode: status, Err: err}
}

// classify turns a transport-level failure into a ProviderError
func classify(service string, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return &ProviderError{Service: service, Kind: KindCircuitOpen, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &ProviderError{Service: service, Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ProviderError{Service: service, Kind: KindTimeout, Err: err}
	}
	return &ProviderError{Service: service, Kind: KindTransport, Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
