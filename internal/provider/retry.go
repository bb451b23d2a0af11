package provider

import (
	"context"
	"time"

	"github.com/wayfind-ai/wayfind/internal/devlog"
)

const (
	// CompleteTimeout bounds one decision-maker call.
	CompleteTimeout = 45 * time.Second

	maxRetries  = 2
	backoffBase = 2 * time.Second
	backoffCap  = 5 * time.Second
)

// Complete runs one completion with the standard timeout, retrying only
// rate-limit failures with 2s/4s backoff. Every other failure kind is
// returned classified on the first occurrence.
func Complete(ctx context.Context, c Client, system string, history []Message, user string) (string, error) {
	var lastErr *Error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffBase << (attempt - 1)
			if delay > backoffCap {
				delay = backoffCap
			}
			devlog.Tagf("Provider", "rate limited, retry %d/%d in %s", attempt, maxRetries, delay)
			select {
			case <-ctx.Done():
				return "", Classify(c.ID(), ctx.Err())
			case <-time.After(delay):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, CompleteTimeout)
		text, err := c.Complete(callCtx, system, history, user)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = Classify(c.ID(), err)
		if !lastErr.Retryable() {
			return "", lastErr
		}
	}
	return "", lastErr
}
