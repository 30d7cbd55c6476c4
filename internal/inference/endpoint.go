package inference

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/samsaffron/alicia/internal/config"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const maxResponseBytes = 4 << 20

// EndpointProvider posts the message to a plain JSON endpoint. The request
// body is {request_field: text}; the answer is read from response_path.
type EndpointProvider struct {
	name         string
	url          string
	apiKey       string
	requestField string
	responsePath string
	fallback     string
	client       *http.Client
}

func NewEndpointProvider(name string, mc config.ModelConfig, client *http.Client) *EndpointProvider {
	field := mc.RequestField
	if field == "" {
		field = "message"
	}
	path := mc.ResponsePath
	if path == "" {
		path = "response"
	}
	fallback := mc.Fallback
	if fallback == "" {
		fallback = "Failed to get response."
	}
	if client == nil {
		client = defaultHTTPClient
	}
	return &EndpointProvider{
		name:         name,
		url:          mc.URL,
		apiKey:       mc.APIKey,
		requestField: field,
		responsePath: path,
		fallback:     fallback,
		client:       client,
	}
}

func (p *EndpointProvider) Name() string {
	return fmt.Sprintf("%s (%s)", p.name, p.url)
}

func (p *EndpointProvider) Ask(ctx context.Context, text string) (string, error) {
	body, err := sjson.SetBytes([]byte(`{}`), p.requestField, text)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s returned %d: %s", p.name, resp.StatusCode, truncate(string(data), 200))
	}

	// Replies that are not JSON or lack the field get the fallback.
	if !gjson.ValidBytes(data) {
		return p.fallback, nil
	}
	answer := gjson.GetBytes(data, p.responsePath)
	if answer.Type != gjson.String && answer.Type != gjson.Number {
		return p.fallback, nil
	}
	return orFallback(strings.TrimSpace(answer.String()), p.fallback), nil
}

// truncate shortens error bodies for messages, never splitting a character.
func truncate(s string, n int) string {
	return runewidth.Truncate(strings.TrimSpace(s), n, "...")
}
