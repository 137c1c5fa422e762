package ailink

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pippora/pippora/internal/ailink/driver"
)

// Provider failure codes.
const (
	CodeProviderTimeout     = "AILINK_PROVIDER_TIMEOUT"
	CodeProviderAuth        = "AILINK_PROVIDER_AUTH"
	CodeProviderRateLimit   = "AILINK_PROVIDER_RATE_LIMIT"
	CodeProviderUnavailable = "AILINK_PROVIDER_UNAVAILABLE"
	CodeProviderBadRequest  = "AILINK_PROVIDER_BAD_REQUEST"
	CodeProviderError       = "AILINK_PROVIDER_ERROR"
	CodeEmptyResponse       = "AILINK_EMPTY_RESPONSE"
)

// ProviderFailure classifies an upstream failure. Message is safe to show to
// callers; Err keeps the original for logs.
type ProviderFailure struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *ProviderFailure) Error() string {
	if e == nil {
		return "provider failure"
	}
	return e.Message
}

func (e *ProviderFailure) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Timeout reports whether the provider call ran out of time.
func (e *ProviderFailure) Timeout() bool {
	return e != nil && e.Code == CodeProviderTimeout
}

// Classify maps driver errors onto ProviderFailure codes.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var existing *ProviderFailure
	if errors.As(err, &existing) {
		return existing
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderFailure{Code: CodeProviderTimeout, Message: "provider request timed out", Err: err}
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		status := perr.StatusCode
		message := strings.TrimSpace(perr.Message)
		if message == "" {
			message = http.StatusText(status)
		}
		failure := &ProviderFailure{Message: message, StatusCode: status, Err: err}
		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			failure.Code = CodeProviderAuth
		case status == http.StatusTooManyRequests:
			failure.Code = CodeProviderRateLimit
		case status >= 500 && status <= 599:
			failure.Code = CodeProviderUnavailable
		case status >= 400 && status <= 499:
			failure.Code = CodeProviderBadRequest
		default:
			failure.Code = CodeProviderError
		}
		return failure
	}

	return &ProviderFailure{Code: CodeProviderError, Message: err.Error(), Err: err}
}
