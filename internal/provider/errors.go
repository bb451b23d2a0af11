package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a provider failure. Auth and model-not-found need a
// configuration change; the rest are transient.
type Kind string

const (
	KindAuth          Kind = "auth_invalid"
	KindRateLimit     Kind = "rate_limit"
	KindModelNotFound Kind = "model_not_found"
	KindTimeout       Kind = "timeout"
	KindNetwork       Kind = "network"
	KindUnknown       Kind = "unknown"
)

// Error is a classified provider failure.
type Error struct {
	Kind     Kind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether re-issuing the call can help. Only rate
// limits are retried at the call level; timeouts are retried by
// re-running the whole step, not the sub-call.
func (e *Error) Retryable() bool { return e.Kind == KindRateLimit }

// UserFixable reports whether the failure needs a config change.
func (e *Error) UserFixable() bool {
	return e.Kind == KindAuth || e.Kind == KindModelNotFound
}

// Hint returns the remediation message shown for a failure kind.
func Hint(k Kind) string {
	switch k {
	case KindAuth:
		return "API key rejected. Check the configured key for this provider."
	case KindModelNotFound:
		return "Model not found. Check the configured model name."
	case KindRateLimit:
		return "Provider is rate limiting. Wait a moment and retry."
	case KindTimeout:
		return "Provider timed out. Retry the step."
	case KindNetwork:
		return "Network error reaching the provider. Check connectivity."
	default:
		return "Provider request failed. Retry the step."
	}
}

// Classify wraps a raw provider failure with a Kind inferred from the
// error text. SDKs surface HTTP status and API error codes in their
// messages, so message inspection covers all four providers uniformly.
func Classify(providerID string, err error) *Error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	kind := KindUnknown
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded) || containsAny(msg, "timeout", "timed out", "deadline exceeded", "aborted"):
		kind = KindTimeout
	case containsAny(msg, "401", "unauthorized", "invalid api key", "invalid x-api-key", "authentication", "permission denied", "forbidden", "403"):
		kind = KindAuth
	case containsAny(msg, "429", "rate limit", "rate_limit", "too many requests", "quota", "overloaded"):
		kind = KindRateLimit
	case containsAny(msg, "model not found", "model_not_found", "does not exist", "unknown model", "404"):
		kind = KindModelNotFound
	case containsAny(msg, "connection refused", "no such host", "network", "failed to fetch", "eof", "broken pipe", "connection reset"):
		kind = KindNetwork
	}
	return &Error{Kind: kind, Provider: providerID, Err: err}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
