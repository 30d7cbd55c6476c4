package inference

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/samsaffron/alicia/internal/config"
	"github.com/tidwall/gjson"
)

func TestEndpointProviderAsk(t *testing.T) {
	tests := []struct {
		name     string
		model    config.ModelConfig
		reply    string
		want     string
		wantBody string
	}{
		{
			name:     "chatgpt shape",
			model:    config.ModelConfig{ResponsePath: "response"},
			reply:    `{"response":"**hi**"}`,
			want:     "**hi**",
			wantBody: `{"message":"hello"}`,
		},
		{
			name: "gemini shape",
			model: config.ModelConfig{
				ResponsePath: "candidates.0.content.parts.0.text",
				Fallback:     "Gagal mendapatkan jawaban.",
			},
			reply:    `{"candidates":[{"content":{"parts":[{"text":"halo"}]}}]}`,
			want:     "halo",
			wantBody: `{"message":"hello"}`,
		},
		{
			name:     "missing field falls back",
			model:    config.ModelConfig{ResponsePath: "candidates.0.content.parts.0.text", Fallback: "Gagal mendapatkan jawaban."},
			reply:    `{"candidates":[]}`,
			want:     "Gagal mendapatkan jawaban.",
			wantBody: `{"message":"hello"}`,
		},
		{
			name:     "empty answer falls back",
			model:    config.ModelConfig{},
			reply:    `{"response":""}`,
			want:     "Failed to get response.",
			wantBody: `{"message":"hello"}`,
		},
		{
			name:     "not json falls back",
			model:    config.ModelConfig{},
			reply:    `<html>oops</html>`,
			want:     "Failed to get response.",
			wantBody: `{"message":"hello"}`,
		},
		{
			name:     "custom request field",
			model:    config.ModelConfig{RequestField: "prompt.text", ResponsePath: "out"},
			reply:    `{"out":"ok"}`,
			want:     "ok",
			wantBody: `{"prompt":{"text":"hello"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("method = %s, want POST", r.Method)
				}
				if ct := r.Header.Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type = %q", ct)
				}
				b, _ := io.ReadAll(r.Body)
				gotBody = string(b)
				io.WriteString(w, tt.reply)
			}))
			defer srv.Close()

			mc := tt.model
			mc.URL = srv.URL
			p := NewEndpointProvider("test", mc, srv.Client())
			got, err := p.Ask(context.Background(), "hello")
			if err != nil {
				t.Fatalf("Ask: %v", err)
			}
			if got != tt.want {
				t.Errorf("Ask() = %q, want %q", got, tt.want)
			}
			if gotBody != tt.wantBody {
				t.Errorf("request body = %s, want %s", gotBody, tt.wantBody)
			}
		})
	}
}

func TestEndpointProviderSendsBearerKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		io.WriteString(w, `{"response":"ok"}`)
	}))
	defer srv.Close()

	p := NewEndpointProvider("test", config.ModelConfig{URL: srv.URL, APIKey: "secret"}, srv.Client())
	if _, err := p.Ask(context.Background(), "x"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
}

func TestEndpointProviderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewEndpointProvider("test", config.ModelConfig{URL: srv.URL}, srv.Client())
	if _, err := p.Ask(context.Background(), "x"); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestEndpointProviderErrorBodyTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("é", 300), http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewEndpointProvider("test", config.ModelConfig{URL: srv.URL}, srv.Client())
	_, err := p.Ask(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if msg := err.Error(); !utf8.ValidString(msg) || !strings.HasSuffix(msg, "...") {
		t.Errorf("error = %q, want valid UTF-8 ending in ...", msg)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"  padded\n", 10, "padded"},
		{"abcdefghij", 6, "abc..."},
		{"ééééééé", 5, "éé..."},
		{"漢字漢字漢字", 7, "漢字..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestEndpointProviderEscapesText(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		io.WriteString(w, `{"response":"ok"}`)
	}))
	defer srv.Close()

	text := "quote \" and\nnewline <tag>"
	p := NewEndpointProvider("test", config.ModelConfig{URL: srv.URL}, srv.Client())
	if _, err := p.Ask(context.Background(), text); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got := gjson.GetBytes(body, "message").String(); got != text {
		t.Errorf("message round trip = %q, want %q", got, text)
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		mc      config.ModelConfig
		wantErr bool
	}{
		{"endpoint", config.ModelConfig{Kind: "endpoint", URL: "http://x"}, false},
		{"endpoint without url", config.ModelConfig{Kind: "endpoint"}, true},
		{"openai", config.ModelConfig{Kind: "openai", APIKey: "k"}, false},
		{"openai without key", config.ModelConfig{Kind: "openai"}, true},
		{"anthropic", config.ModelConfig{Kind: "anthropic", APIKey: "k"}, false},
		{"gemini", config.ModelConfig{Kind: "gemini", APIKey: "k"}, false},
		{"gemini without key", config.ModelConfig{Kind: "gemini"}, true},
		{"unknown", config.ModelConfig{Kind: "telepathy"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider("m", tt.mc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.Name() == "" {
				t.Error("provider has empty name")
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	var skipped []string
	r := NewRegistry(map[string]config.ModelConfig{
		"wormgpt": {Kind: "endpoint", URL: "http://w"},
		"chatgpt": {Kind: "endpoint", URL: "http://c"},
		"claude":  {Kind: "anthropic"},
	}, func(name string, err error) { skipped = append(skipped, name) })

	names := r.Names()
	if len(names) != 2 || names[0] != "chatgpt" || names[1] != "wormgpt" {
		t.Errorf("Names() = %v", names)
	}
	if len(skipped) != 1 || skipped[0] != "claude" {
		t.Errorf("skipped = %v, want [claude]", skipped)
	}
	if _, err := r.Get("chatgpt"); err != nil {
		t.Errorf("Get(chatgpt): %v", err)
	}
	if _, err := r.Get("nope"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Get(nope) error = %v, want ErrUnknownModel", err)
	}
}
