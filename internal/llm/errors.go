package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the closed failure classification for service calls.
type ErrorKind int

const (
	// KindTransient covers rate limiting, timeouts, and connection
	// failures. Safe to retry with backoff.
	KindTransient ErrorKind = iota

	// KindPermanent covers quota/budget exhaustion and authentication
	// failures. Retrying cannot help; the orchestrator stops dispatch.
	KindPermanent
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// ServiceError wraps a failed service call with its closed classification.
// It is the only error type the llm package surfaces for remote failures.
type ServiceError struct {
	Kind ErrorKind
	Op   string // e.g. "ollama complete", "openai embed"
	Err  error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// transientErr and permanentErr build classified errors.
func transientErr(op string, err error) *ServiceError {
	return &ServiceError{Kind: KindTransient, Op: op, Err: err}
}

func permanentErr(op string, err error) *ServiceError {
	return &ServiceError{Kind: KindPermanent, Op: op, Err: err}
}

// IsTransient reports whether err is a transient service error. Unclassified
// errors are not transient; callers treat them as unit failures without
// retry rather than guessing.
func IsTransient(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Kind == KindTransient
}

// IsPermanent reports whether err is a permanent service error.
func IsPermanent(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Kind == KindPermanent
}

// classifyStatus maps an HTTP status code from a provider onto an ErrorKind.
//
// 402/403 are how the hosted providers signal exhausted credit or a revoked
// key; no amount of retrying changes either.
func classifyStatus(op string, status int, body string) *ServiceError {
	err := fmt.Errorf("status %d: %s", status, body)
	switch status {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return transientErr(op, err)
	case http.StatusPaymentRequired,
		http.StatusForbidden,
		http.StatusUnauthorized:
		return permanentErr(op, err)
	default:
		if status >= 500 {
			return transientErr(op, err)
		}
		return permanentErr(op, err)
	}
}

// classifyTransport maps a transport-level failure onto an ErrorKind.
// Timeouts, refused connections, and DNS failures are all transient;
// context cancellation propagates unclassified so shutdown is not retried.
func classifyTransport(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return transientErr(op, err)
}
