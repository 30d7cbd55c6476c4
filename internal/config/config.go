package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samsaffron/alicia/internal/history"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DefaultModel string                 `mapstructure:"default_model" yaml:"default_model"`
	Models       map[string]ModelConfig `mapstructure:"models" yaml:"models"`
	Image        ImageConfig            `mapstructure:"image" yaml:"image"`
	Render       RenderConfig           `mapstructure:"render" yaml:"render"`
	Chat         ChatConfig             `mapstructure:"chat" yaml:"chat"`
	Speech       SpeechConfig           `mapstructure:"speech" yaml:"speech"`
	History      history.Config         `mapstructure:"history" yaml:"history"`
	Server       ServerConfig           `mapstructure:"server" yaml:"server"`
	Log          LogConfig              `mapstructure:"log" yaml:"log"`
}

// ModelConfig describes one selectable model. Kind picks the backend:
// "endpoint" posts {request_field: text} to URL and reads response_path
// from the JSON reply; "openai", "anthropic" and "gemini" use the SDKs.
type ModelConfig struct {
	Kind         string `mapstructure:"kind" yaml:"kind"`
	URL          string `mapstructure:"url" yaml:"url,omitempty"`
	RequestField string `mapstructure:"request_field" yaml:"request_field,omitempty"`
	ResponsePath string `mapstructure:"response_path" yaml:"response_path,omitempty"`
	Fallback     string `mapstructure:"fallback" yaml:"fallback,omitempty"` // reply used when the answer is empty
	APIKey       string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL      string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Model        string `mapstructure:"model" yaml:"model,omitempty"`
	MaxTokens    int    `mapstructure:"max_tokens" yaml:"max_tokens,omitempty"`
}

// ImageConfig configures text-to-image generation.
type ImageConfig struct {
	URL       string        `mapstructure:"url" yaml:"url"`
	APIKey    string        `mapstructure:"api_key" yaml:"api_key,omitempty"`
	OutputDir string        `mapstructure:"output_dir" yaml:"output_dir,omitempty"` // empty: <data dir>/images
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type RenderConfig struct {
	Engine            string `mapstructure:"engine" yaml:"engine"` // basic or commonmark
	Highlight         bool   `mapstructure:"highlight" yaml:"highlight"`
	HighlightStyle    string `mapstructure:"highlight_style" yaml:"highlight_style"`
	CollapseThreshold int    `mapstructure:"collapse_threshold" yaml:"collapse_threshold"`
	PreviewLength     int    `mapstructure:"preview_length" yaml:"preview_length"`
}

type ChatConfig struct {
	MaxMessageLength int `mapstructure:"max_message_length" yaml:"max_message_length"`
}

type SpeechConfig struct {
	Lang string `mapstructure:"lang" yaml:"lang"`
}

type ServerConfig struct {
	Host           string        `mapstructure:"host" yaml:"host"`
	Port           int           `mapstructure:"port" yaml:"port"`
	UI             bool          `mapstructure:"ui" yaml:"ui"`
	Token          string        `mapstructure:"token" yaml:"token,omitempty"`
	CORSOrigins    []string      `mapstructure:"cors_origins" yaml:"cors_origins,omitempty"`
	RateLimit      float64       `mapstructure:"rate_limit" yaml:"rate_limit"` // inference requests per second
	RateBurst      int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_model", "chatgpt")

	v.SetDefault("models.chatgpt.kind", "endpoint")
	v.SetDefault("models.chatgpt.url", "https://aliicia.my.id/api/chatgpt")
	v.SetDefault("models.chatgpt.request_field", "message")
	v.SetDefault("models.chatgpt.response_path", "response")
	v.SetDefault("models.chatgpt.fallback", "Failed to get response.")

	v.SetDefault("models.wormgpt.kind", "endpoint")
	v.SetDefault("models.wormgpt.url", "https://aliicia.my.id/api/wormgpt")
	v.SetDefault("models.wormgpt.request_field", "message")
	v.SetDefault("models.wormgpt.response_path", "candidates.0.content.parts.0.text")
	v.SetDefault("models.wormgpt.fallback", "Gagal mendapatkan jawaban.")

	v.SetDefault("image.url", "https://api-inference.huggingface.co/models/stabilityai/stable-diffusion-2")
	v.SetDefault("image.timeout", "2m")

	v.SetDefault("render.engine", "basic")
	v.SetDefault("render.highlight", false)
	v.SetDefault("render.highlight_style", "github")
	v.SetDefault("render.collapse_threshold", 700)
	v.SetDefault("render.preview_length", 600)

	v.SetDefault("chat.max_message_length", 2000)
	v.SetDefault("speech.lang", "id-ID")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.ui", true)
	v.SetDefault("server.rate_limit", 2.0)
	v.SetDefault("server.rate_burst", 4)
	v.SetDefault("server.request_timeout", "90s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration. An explicit configFile must exist; otherwise
// config.yaml is looked up in the config dir and the working directory and
// may be absent. A .env file in the working directory is loaded first, and
// ALICIA_* environment variables override file values.
func Load(configFile string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		configPath, err := GetConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config dir: %w", err)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configPath)
		v.AddConfigPath(".")
	}

	setDefaults(v)
	v.SetEnvPrefix("ALICIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	resolveModelCredentials(cfg.Models)
	resolveImageCredentials(&cfg.Image)
	cfg.Server.Token = expandEnv(cfg.Server.Token)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail much later.
func (c *Config) Validate() error {
	if len(c.Models) == 0 {
		return fmt.Errorf("no models configured")
	}
	if _, ok := c.Models[c.DefaultModel]; !ok {
		return fmt.Errorf("default_model %q is not configured (available: %s)", c.DefaultModel, strings.Join(c.ModelNames(), ", "))
	}
	for name, m := range c.Models {
		switch m.Kind {
		case "endpoint":
			if m.URL == "" {
				return fmt.Errorf("models.%s: endpoint kind requires url", name)
			}
		case "openai", "anthropic", "gemini":
		default:
			return fmt.Errorf("models.%s: unknown kind %q (valid: endpoint, openai, anthropic, gemini)", name, m.Kind)
		}
	}
	switch c.Render.Engine {
	case "basic", "commonmark":
	default:
		return fmt.Errorf("render.engine: unknown engine %q (valid: basic, commonmark)", c.Render.Engine)
	}
	if c.Chat.MaxMessageLength <= 0 {
		return fmt.Errorf("chat.max_message_length must be positive")
	}
	return nil
}

// ModelNames returns the configured model names, sorted.
func (c *Config) ModelNames() []string {
	names := make([]string, 0, len(c.Models))
	for name := range c.Models {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// resolveModelCredentials expands ${VAR} references and falls back to the
// provider's conventional environment variable for SDK-backed models.
func resolveModelCredentials(models map[string]ModelConfig) {
	for name, m := range models {
		m.APIKey = expandEnv(m.APIKey)
		m.BaseURL = expandEnv(m.BaseURL)
		m.URL = expandEnv(m.URL)
		if m.APIKey == "" {
			switch m.Kind {
			case "openai":
				m.APIKey = os.Getenv("OPENAI_API_KEY")
			case "anthropic":
				m.APIKey = os.Getenv("ANTHROPIC_API_KEY")
			case "gemini":
				m.APIKey = os.Getenv("GEMINI_API_KEY")
			}
		}
		models[name] = m
	}
}

func resolveImageCredentials(cfg *ImageConfig) {
	cfg.APIKey = expandEnv(cfg.APIKey)
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("HF_API_TOKEN")
	}
}

// expandEnv expands ${VAR} or $VAR in a string
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}

// GetConfigDir returns the XDG config directory for alicia.
// Uses $XDG_CONFIG_HOME if set, otherwise ~/.config
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "alicia"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "alicia"), nil
}

// ImageDir returns where generated images are stored.
func (c *Config) ImageDir() (string, error) {
	if c.Image.OutputDir != "" {
		return expandPath(c.Image.OutputDir), nil
	}
	dataDir, err := history.GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "images"), nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// Dump renders the effective configuration as YAML with secrets masked.
func Dump(cfg *Config) ([]byte, error) {
	masked := *cfg
	masked.Models = make(map[string]ModelConfig, len(cfg.Models))
	for name, m := range cfg.Models {
		m.APIKey = maskSecret(m.APIKey)
		masked.Models[name] = m
	}
	masked.Image.APIKey = maskSecret(cfg.Image.APIKey)
	masked.Server.Token = maskSecret(cfg.Server.Token)
	return yaml.Marshal(&masked)
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
