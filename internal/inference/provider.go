// Package inference talks to the remote models that answer chat messages
// and generate images.
package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/samsaffron/alicia/internal/config"
)

// ErrUnknownModel is returned for a model name that is not configured.
var ErrUnknownModel = errors.New("model not supported")

// Provider answers a single user message.
type Provider interface {
	// Name returns the provider name for logging
	Name() string

	// Ask sends text and returns the model's markdown reply. An empty
	// answer is replaced by the provider's fallback reply, not an error.
	Ask(ctx context.Context, text string) (string, error)
}

const defaultHTTPTimeout = 90 * time.Second

var defaultHTTPClient = &http.Client{Timeout: defaultHTTPTimeout}

// NewProvider builds the provider for one configured model.
func NewProvider(name string, mc config.ModelConfig) (Provider, error) {
	switch mc.Kind {
	case "endpoint", "":
		if mc.URL == "" {
			return nil, fmt.Errorf("model %s: url not configured", name)
		}
		return NewEndpointProvider(name, mc, defaultHTTPClient), nil
	case "openai":
		if mc.APIKey == "" && mc.BaseURL == "" {
			return nil, fmt.Errorf("model %s: OPENAI_API_KEY not configured. Set environment variable or add api_key to the model config", name)
		}
		return NewOpenAIProvider(mc.APIKey, mc.BaseURL, mc.Model, mc.Fallback), nil
	case "anthropic":
		if mc.APIKey == "" {
			return nil, fmt.Errorf("model %s: ANTHROPIC_API_KEY not configured. Set environment variable or add api_key to the model config", name)
		}
		return NewAnthropicProvider(mc.APIKey, mc.BaseURL, mc.Model, mc.MaxTokens, mc.Fallback), nil
	case "gemini":
		if mc.APIKey == "" {
			return nil, fmt.Errorf("model %s: GEMINI_API_KEY not configured. Set environment variable or add api_key to the model config", name)
		}
		return NewGeminiProvider(mc.APIKey, mc.BaseURL, mc.Model, mc.Fallback), nil
	default:
		return nil, fmt.Errorf("model %s: unknown kind %q (valid: endpoint, openai, anthropic, gemini)", name, mc.Kind)
	}
}

// Registry holds the selectable models by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a provider for every configured model. A model whose
// provider cannot be built (typically a missing key) is skipped and
// reported through skipped.
func NewRegistry(models map[string]config.ModelConfig, skipped func(name string, err error)) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(models))}
	for name, mc := range models {
		p, err := NewProvider(name, mc)
		if err != nil {
			if skipped != nil {
				skipped(name, err)
			}
			continue
		}
		r.providers[name] = p
	}
	return r
}

// NewStaticRegistry wraps ready-made providers.
func NewStaticRegistry(providers map[string]Provider) *Registry {
	return &Registry{providers: providers}
}

// Get returns the provider for name or an error wrapping ErrUnknownModel.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	return p, nil
}

// Names returns the available model names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func orFallback(answer, fallback string) string {
	if answer == "" {
		return fallback
	}
	return answer
}
