package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/samsaffron/alicia/internal/config"
)

func TestMask(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Authorization: Bearer abcdefghijklmnop", "Authorization: Bearer ****"},
		{"key sk-proj1234567890abc failed", "key sk-**** failed"},
		{"key sk-ant-api03abcdefghij", "key sk-ant-****"},
		{"token hf_abcdefghijklmn", "token hf_****"},
		{"gemini AIzaSyA1234567890", "gemini AIza****"},
		{"nothing secret here", "nothing secret here"},
		{"bearer short", "bearer short"},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewJSONMasksAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, config.LogConfig{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.With("key", "sk-abcdefghijkl").Debug("request failed",
		"error", errors.New("401: Bearer abcdefghijklmnop rejected"),
		slog.Group("req", "auth", "hf_abcdefghijklmn"))

	out := buf.String()
	for _, secret := range []string{"sk-abcdefghijkl", "abcdefghijklmnop", "hf_abcdefghijklmn"} {
		if strings.Contains(out, secret) {
			t.Errorf("secret %q leaked: %s", secret, out)
		}
	}
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["msg"] != "request failed" {
		t.Errorf("msg = %v", rec["msg"])
	}
}

func TestNewLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, config.LogConfig{Level: "warn"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, config.LogConfig{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(&bytes.Buffer{}, config.LogConfig{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}
