package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient implements Client over the Google generative AI SDK.
type GeminiClient struct {
	apiKey string
	model  string
}

// NewGeminiClient creates a Gemini-backed client. The SDK client is
// created per call because it binds to the call's context.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{apiKey: apiKey, model: model}
}

func (c *GeminiClient) ID() string { return "gemini" }

func (c *GeminiClient) Complete(ctx context.Context, system string, history []Message, user string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return "", fmt.Errorf("gemini client init failed: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	chat := model.StartChat()
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		chat.History = append(chat.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	resp, err := chat.SendMessage(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}
