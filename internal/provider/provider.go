// Package provider is the decision-maker boundary: a small completion
// interface over the Anthropic, OpenAI-compatible, Gemini and Ollama
// APIs, with a shared error taxonomy and a rate-limit-only retry policy.
package provider

import "context"

// Message is one turn of conversation history passed to a completion.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Client produces a single text completion. Implementations must honor
// ctx cancellation; timeouts are imposed by the caller via Complete.
type Client interface {
	// ID returns the provider identifier ("anthropic", "openai", ...).
	ID() string

	// Complete sends system + history + user and returns the reply text.
	Complete(ctx context.Context, system string, history []Message, user string) (string, error)
}

const defaultMaxTokens = 2048
