package inference

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const geminiDefaultModel = "gemini-2.5-flash"

// GeminiProvider answers through the Gemini API.
type GeminiProvider struct {
	apiKey   string
	baseURL  string
	model    string
	fallback string
}

func NewGeminiProvider(apiKey, baseURL, model, fallback string) *GeminiProvider {
	if model == "" {
		model = geminiDefaultModel
	}
	return &GeminiProvider{
		apiKey:   apiKey,
		baseURL:  baseURL,
		model:    model,
		fallback: orFallback(fallback, "Gagal mendapatkan jawaban."),
	}
}

func (p *GeminiProvider) Name() string {
	return fmt.Sprintf("Gemini (%s)", p.model)
}

func (p *GeminiProvider) newClient(ctx context.Context) (*genai.Client, error) {
	cfg := &genai.ClientConfig{APIKey: p.apiKey, Backend: genai.BackendGeminiAPI}
	if p.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}
	return genai.NewClient(ctx, cfg)
}

func (p *GeminiProvider) Ask(ctx context.Context, text string) (string, error) {
	client, err := p.newClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}
	resp, err := client.Models.GenerateContent(ctx, p.model, genai.Text(text), nil)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	return orFallback(resp.Text(), p.fallback), nil
}
