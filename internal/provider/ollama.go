package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// OllamaClient implements Client against a local Ollama server.
type OllamaClient struct {
	client *api.Client
	model  string
}

// NewOllamaClient creates an Ollama-backed client. baseURL defaults to
// the standard local endpoint.
func NewOllamaClient(baseURL, model string) (*OllamaClient, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL %q: %w", baseURL, err)
	}
	return &OllamaClient{
		client: api.NewClient(parsed, &http.Client{Timeout: 5 * time.Minute}),
		model:  model,
	}, nil
}

func (c *OllamaClient) ID() string { return "ollama" }

func (c *OllamaClient) Complete(ctx context.Context, system string, history []Message, user string) (string, error) {
	messages := make([]api.Message, 0, len(history)+2)
	if system != "" {
		messages = append(messages, api.Message{Role: "system", Content: system})
	}
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		role := m.Role
		if role != "assistant" {
			role = "user"
		}
		messages = append(messages, api.Message{Role: role, Content: m.Content})
	}
	messages = append(messages, api.Message{Role: "user", Content: user})

	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
	}

	var b strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		b.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	return b.String(), nil
}
