package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists conversation history.
type Store interface {
	// Append stores msg at the end of its conversation, filling in ID,
	// CreatedAt and Sequence when they are unset.
	Append(ctx context.Context, msg *Message) error
	// List returns a conversation in order. A positive limit keeps only
	// the most recent messages.
	List(ctx context.Context, conversationID string, limit int) ([]Message, error)
	// Clear removes every message of a conversation.
	Clear(ctx context.Context, conversationID string) error
	// Conversations lists conversations, most recently active first.
	Conversations(ctx context.Context, limit int) ([]ConversationSummary, error)

	Close() error
}

// Config holds history storage configuration.
type Config struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"` // database file; empty means the data dir default
}

// DefaultConfig returns the default history configuration.
func DefaultConfig() Config {
	return Config{Enabled: true}
}

// GetDataDir returns the XDG data directory for alicia.
// Uses $XDG_DATA_HOME if set, otherwise ~/.local/share
func GetDataDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "alicia"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "alicia"), nil
}

// GetDBPath returns the history database path for cfg.
func GetDBPath(cfg Config) (string, error) {
	if cfg.Path != "" {
		return cfg.Path, nil
	}
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "history.db"), nil
}

// NewStore creates a Store for cfg. Disabled history gets a no-op store.
func NewStore(cfg Config) (Store, error) {
	if !cfg.Enabled {
		return &NoopStore{}, nil
	}
	return NewSQLiteStore(cfg)
}
