package inference

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samsaffron/alicia/internal/config"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

func TestImageGeneratorGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer hf" {
			t.Errorf("Authorization = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"inputs":"a cat"}` {
			t.Errorf("body = %s", body)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngHeader)
	}))
	defer srv.Close()

	g := NewImageGenerator(config.ImageConfig{URL: srv.URL, APIKey: "hf"})
	img, err := g.Generate(context.Background(), "a cat")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if img.MimeType != "image/png" || !bytes.Equal(img.Data, pngHeader) {
		t.Errorf("unexpected result: %s %q", img.MimeType, img.Data)
	}
}

func TestImageGeneratorErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantMsg string
	}{
		{
			name: "json error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				io.WriteString(w, `{"error":"Model is currently loading"}`)
			},
			wantMsg: "Model is currently loading",
		},
		{
			name: "plain failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusUnauthorized)
			},
			wantMsg: "401",
		},
		{
			name: "empty image",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "image/png")
			},
			wantMsg: "no data",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			g := NewImageGenerator(config.ImageConfig{URL: srv.URL})
			_, err := g.Generate(context.Background(), "x")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestImageGeneratorRejectsEmptyPrompt(t *testing.T) {
	g := NewImageGenerator(config.ImageConfig{URL: "http://unused"})
	if _, err := g.Generate(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestSaveImage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	name, err := SaveImage(dir, &ImageResult{Data: []byte("jpeg"), MimeType: "image/jpeg"})
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if !strings.HasSuffix(name, ".jpg") || strings.Contains(name, "/") {
		t.Errorf("unexpected name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil || string(data) != "jpeg" {
		t.Errorf("saved data = %q, %v", data, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("image dir has %d entries, want only the image", len(entries))
	}
}
