package inference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samsaffron/alicia/internal/config"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const maxImageBytes = 32 << 20

// ImageResult contains the generated image and metadata
type ImageResult struct {
	Data     []byte // Image data (PNG/JPEG)
	MimeType string // "image/png", "image/jpeg", etc.
}

// ImageGenerator posts {"inputs": prompt} to a hosted text-to-image model
// and receives raw image bytes.
type ImageGenerator struct {
	url    string
	apiKey string
	client *http.Client
}

func NewImageGenerator(cfg config.ImageConfig) *ImageGenerator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ImageGenerator{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

func (g *ImageGenerator) Generate(ctx context.Context, prompt string) (*ImageResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("empty image prompt")
	}
	if g.url == "" {
		return nil, errors.New("image url not configured")
	}

	body, err := sjson.SetBytes([]byte(`{}`), "inputs", prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mt
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || mimeType == "application/json" {
		// Hosted inference reports failures (including "model loading") as {"error": "..."}.
		if msg := gjson.GetBytes(data, "error").String(); msg != "" {
			return nil, fmt.Errorf("image API error (%d): %s", resp.StatusCode, msg)
		}
		return nil, fmt.Errorf("image API error (%d): %s", resp.StatusCode, truncate(string(data), 200))
	}
	if len(data) == 0 {
		return nil, errors.New("image API returned no data")
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	return &ImageResult{Data: data, MimeType: mimeType}, nil
}

// SaveImage writes img into dir under a fresh name and returns that name.
// The file appears atomically so a concurrent /images request never sees a
// partial image.
func SaveImage(dir string, img *ImageResult) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	name := uuid.NewString() + extensionFor(img.MimeType)

	f, err := os.CreateTemp(dir, ".image-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	tmpPath := f.Name()
	renamed := false
	defer func() {
		if !renamed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := f.Write(img.Data); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	renamed = true
	return name, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
