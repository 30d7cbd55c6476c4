package inference

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openAIDefaultModel = "gpt-4o-mini"

// OpenAIProvider answers through the Chat Completions API. Any
// OpenAI-compatible server works via base_url.
type OpenAIProvider struct {
	client   openai.Client
	model    string
	fallback string
}

func NewOpenAIProvider(apiKey, baseURL, model, fallback string) *OpenAIProvider {
	if model == "" {
		model = openAIDefaultModel
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{
		client:   openai.NewClient(opts...),
		model:    model,
		fallback: orFallback(fallback, "Failed to get response."),
	}
}

func (p *OpenAIProvider) Name() string {
	return fmt.Sprintf("OpenAI (%s)", p.model)
}

func (p *OpenAIProvider) Ask(ctx context.Context, text string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(text),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return p.fallback, nil
	}
	return orFallback(resp.Choices[0].Message.Content, p.fallback), nil
}
