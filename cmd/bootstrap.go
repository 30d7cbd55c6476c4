package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/samsaffron/alicia/internal/chat"
	"github.com/samsaffron/alicia/internal/config"
	"github.com/samsaffron/alicia/internal/history"
	"github.com/samsaffron/alicia/internal/inference"
	"github.com/samsaffron/alicia/internal/logging"
	"github.com/samsaffron/alicia/internal/markup"
)

// loadConfig reads the configuration and installs the default logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger, err := logging.New(os.Stderr, cfg.Log)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cfg, nil
}

func newRenderer(cfg config.RenderConfig) (*markup.Renderer, error) {
	return markup.NewRenderer(markup.Options{
		Engine:         markup.Engine(cfg.Engine),
		Highlight:      cfg.Highlight,
		HighlightStyle: cfg.HighlightStyle,
		Threshold:      cfg.CollapseThreshold,
		PreviewLength:  cfg.PreviewLength,
	})
}

// app bundles the chat service with the resources it owns.
type app struct {
	cfg      *config.Config
	service  *chat.Service
	store    history.Store
	imageDir string
}

func newApp(cfg *config.Config) (*app, error) {
	renderer, err := newRenderer(cfg.Render)
	if err != nil {
		return nil, err
	}

	registry := inference.NewRegistry(cfg.Models, func(name string, err error) {
		slog.Warn("model unavailable", "model", name, "error", err)
	})

	store, err := history.NewStore(cfg.History)
	if err != nil {
		slog.Warn("history disabled", "error", err)
		store = &history.NoopStore{}
	}
	logged := history.NewLoggingStore(store, func(format string, args ...any) {
		slog.Warn(fmt.Sprintf(format, args...))
	})

	imageDir, err := cfg.ImageDir()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("resolve image directory: %w", err)
	}
	var images chat.ImageGenerator
	if cfg.Image.URL != "" {
		images = inference.NewImageGenerator(cfg.Image)
	}

	service := chat.NewService(registry, images, logged, renderer, chat.Options{
		DefaultModel:     cfg.DefaultModel,
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		SpeechLang:       cfg.Speech.Lang,
		ImageDir:         imageDir,
		Logger:           slog.Default(),
	})
	return &app{cfg: cfg, service: service, store: store, imageDir: imageDir}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
