package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIClient implements Client over the official OpenAI SDK. A base
// URL override makes it serve any OpenAI-compatible endpoint (DeepSeek,
// Groq, OpenRouter, custom gateways).
type OpenAIClient struct {
	client openai.Client
	id     string
	model  string
}

// NewOpenAIClient creates an OpenAI-backed client. id names the profile
// ("openai", "deepseek", ...); baseURL may be empty for api.openai.com.
func NewOpenAIClient(id, apiKey, model, baseURL string) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if id == "" {
		id = "openai"
	}
	return &OpenAIClient{
		client: openai.NewClient(opts...),
		id:     id,
		model:  model,
	}
}

func (c *OpenAIClient) ID() string { return c.id }

func (c *OpenAIClient) Complete(ctx context.Context, system string, history []Message, user string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		switch m.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(user))

	params := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(c.model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(defaultMaxTokens)),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", c.id, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", c.id)
	}
	return resp.Choices[0].Message.Content, nil
}
