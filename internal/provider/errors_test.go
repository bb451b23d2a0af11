package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyKinds(t *testing.T) {
	cases := []struct {
		msg  string
		want Kind
	}{
		{"401 Unauthorized: invalid x-api-key", KindAuth},
		{"permission denied for model access", KindAuth},
		{"429 Too Many Requests", KindRateLimit},
		{"you have exceeded your quota", KindRateLimit},
		{"model not found: gpt-99", KindModelNotFound},
		{"404 page not found", KindModelNotFound},
		{"request timed out after 45s", KindTimeout},
		{"dial tcp: connection refused", KindNetwork},
		{"something inexplicable", KindUnknown},
	}
	for _, c := range cases {
		got := Classify("test", errors.New(c.msg))
		assert.Equal(t, c.want, got.Kind, "message %q", c.msg)
	}
}

func TestClassifyDeadline(t *testing.T) {
	err := Classify("test", fmt.Errorf("call failed: %w", context.DeadlineExceeded))
	assert.Equal(t, KindTimeout, err.Kind)
}

func TestClassifyPassesThroughClassified(t *testing.T) {
	orig := &Error{Kind: KindAuth, Provider: "x", Err: errors.New("nope")}
	got := Classify("y", fmt.Errorf("wrapped: %w", orig))
	assert.Same(t, orig, got)
}

func TestRetryablePolicy(t *testing.T) {
	assert.True(t, (&Error{Kind: KindRateLimit}).Retryable())
	for _, k := range []Kind{KindAuth, KindModelNotFound, KindTimeout, KindNetwork, KindUnknown} {
		assert.False(t, (&Error{Kind: k}).Retryable(), string(k))
	}
	assert.True(t, (&Error{Kind: KindAuth}).UserFixable())
	assert.True(t, (&Error{Kind: KindModelNotFound}).UserFixable())
	assert.False(t, (&Error{Kind: KindTimeout}).UserFixable())
}

// scriptedClient returns queued responses then errors.
type scriptedClient struct {
	calls int
	errs  []error
	text  string
}

func (s *scriptedClient) ID() string { return "scripted" }

func (s *scriptedClient) Complete(ctx context.Context, system string, history []Message, user string) (string, error) {
	defer func() { s.calls++ }()
	if s.calls < len(s.errs) && s.errs[s.calls] != nil {
		return "", s.errs[s.calls]
	}
	return s.text, nil
}

func TestCompleteRetriesOnlyRateLimit(t *testing.T) {
	t.Run("rate limit then success", func(t *testing.T) {
		c := &scriptedClient{errs: []error{errors.New("429 rate limit")}, text: "ok"}
		start := time.Now()
		text, err := Complete(context.Background(), c, "", nil, "hi")
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
		assert.Equal(t, 2, c.calls)
		assert.GreaterOrEqual(t, time.Since(start), 2*time.Second)
	})

	t.Run("auth fails immediately", func(t *testing.T) {
		c := &scriptedClient{errs: []error{errors.New("401 unauthorized")}}
		_, err := Complete(context.Background(), c, "", nil, "hi")
		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, KindAuth, perr.Kind)
		assert.Equal(t, 1, c.calls)
	})

	t.Run("rate limit exhausts retries", func(t *testing.T) {
		rl := errors.New("429 rate limit")
		c := &scriptedClient{errs: []error{rl, rl, rl, rl}}
		_, err := Complete(context.Background(), c, "", nil, "hi")
		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, KindRateLimit, perr.Kind)
		assert.Equal(t, 3, c.calls) // initial + 2 retries
	})
}
