// Package chat accepts user messages, asks the selected model, renders the
// replies and keeps the conversation history.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/samsaffron/alicia/internal/history"
	"github.com/samsaffron/alicia/internal/inference"
	"github.com/samsaffron/alicia/internal/markup"
)

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message too long")
	ErrBusy           = errors.New("conversation is busy with another message")
	ErrNoConversation = errors.New("conversation id is required")
)

// Fixed replies shown in place of a model answer.
const (
	ConnectFailureReply   = "Failed to connect to AI. Please try again later."
	UnsupportedModelReply = "Model not supported."
	ImageFailureReply     = "Failed to generate image."
	MissingImageText      = "[Previously generated image]"
	ImagePromptPrefix     = "Generate image: "
)

const DefaultMaxMessageLength = 2000

// ImageGenerator turns a prompt into image bytes.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (*inference.ImageResult, error)
}

// Options configures a Service. Zero values get defaults.
type Options struct {
	DefaultModel     string
	MaxMessageLength int
	SpeechLang       string
	ImageDir         string // where generated images are stored
	ImageURLPrefix   string // URL prefix the page loads images from
	CacheSize        int
	Logger           *slog.Logger
}

// Service is the chat controller shared by the HTTP server and the CLI.
type Service struct {
	models   *inference.Registry
	images   ImageGenerator
	store    history.Store
	renderer *markup.Renderer
	views    *ViewCache
	opts     Options
	log      *slog.Logger

	mu   sync.Mutex
	busy map[string]bool
}

// NewService wires a Service. images may be nil when image generation is
// not configured; store may be a history.NoopStore.
func NewService(models *inference.Registry, images ImageGenerator, store history.Store, renderer *markup.Renderer, opts Options) *Service {
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = DefaultMaxMessageLength
	}
	if opts.ImageURLPrefix == "" {
		opts.ImageURLPrefix = "/images/"
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = "chatgpt"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		models:   models,
		images:   images,
		store:    store,
		renderer: renderer,
		views:    NewViewCache(opts.CacheSize),
		opts:     opts,
		log:      logger,
		busy:     make(map[string]bool),
	}
}

// Models returns the selectable model names.
func (s *Service) Models() []string {
	return s.models.Names()
}

// DefaultModel returns the model used when a request names none.
func (s *Service) DefaultModel() string {
	return s.opts.DefaultModel
}

// Send validates text, asks model and records both turns. Failures of the
// model become the fixed reply text rather than an error; only validation
// and the busy guard are reported to the caller.
func (s *Service) Send(ctx context.Context, conversationID, text, model string) (*Turn, error) {
	text, err := s.validate(conversationID, text)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = s.opts.DefaultModel
	}

	if !s.acquire(conversationID) {
		return nil, ErrBusy
	}
	defer s.release(conversationID)

	user := s.record(ctx, history.Message{ConversationID: conversationID, Role: history.RoleUser, Content: text})
	answer := s.ask(ctx, model, text)
	reply := s.record(ctx, history.Message{ConversationID: conversationID, Role: history.RoleAI, Content: answer, Model: model})

	return &Turn{User: s.view(user), Reply: s.view(reply)}, nil
}

func (s *Service) ask(ctx context.Context, model, text string) string {
	provider, err := s.models.Get(model)
	if err != nil {
		s.log.Info("unsupported model requested", "model", model)
		return UnsupportedModelReply
	}
	answer, err := provider.Ask(ctx, text)
	if err != nil {
		s.log.Warn("inference failed", "model", model, "provider", provider.Name(), "error", err)
		return ConnectFailureReply
	}
	return answer
}

// GenerateImage records the prompt as a user turn and replies with a
// generated image, or with ImageFailureReply when generation fails.
func (s *Service) GenerateImage(ctx context.Context, conversationID, prompt string) (*Turn, error) {
	prompt, err := s.validate(conversationID, prompt)
	if err != nil {
		return nil, err
	}
	if !s.acquire(conversationID) {
		return nil, ErrBusy
	}
	defer s.release(conversationID)

	user := s.record(ctx, history.Message{ConversationID: conversationID, Role: history.RoleUser, Content: ImagePromptPrefix + prompt})

	reply := history.Message{ConversationID: conversationID, Role: history.RoleAI, Content: ImageFailureReply}
	if name, err := s.generateImage(ctx, prompt); err != nil {
		s.log.Warn("image generation failed", "error", err)
	} else {
		reply.Content = name
		reply.IsImage = true
	}
	reply = s.record(ctx, reply)

	return &Turn{User: s.view(user), Reply: s.view(reply)}, nil
}

func (s *Service) generateImage(ctx context.Context, prompt string) (string, error) {
	if s.images == nil {
		return "", errors.New("image generation is not configured")
	}
	if s.opts.ImageDir == "" {
		return "", errors.New("image directory is not configured")
	}
	img, err := s.images.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return inference.SaveImage(s.opts.ImageDir, img)
}

// History returns the stored conversation rendered to views. A positive
// limit keeps only the most recent messages.
func (s *Service) History(ctx context.Context, conversationID string, limit int) ([]View, error) {
	if conversationID == "" {
		return nil, ErrNoConversation
	}
	msgs, err := s.store.List(ctx, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	views := make([]View, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, s.view(m))
	}
	return views, nil
}

// Conversations lists stored conversations.
func (s *Service) Conversations(ctx context.Context, limit int) ([]history.ConversationSummary, error) {
	return s.store.Conversations(ctx, limit)
}

// Clear removes a conversation and the images it generated.
func (s *Service) Clear(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return ErrNoConversation
	}
	if !s.acquire(conversationID) {
		return ErrBusy
	}
	defer s.release(conversationID)

	msgs, err := s.store.List(ctx, conversationID, 0)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if err := s.store.Clear(ctx, conversationID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	for _, m := range msgs {
		if path, ok := s.imagePath(m); ok {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				s.log.Warn("failed to remove image", "path", path, "error", err)
			}
		}
	}
	return nil
}

// Render renders arbitrary markdown with the service's renderer.
func (s *Service) Render(md string) markup.View {
	return s.renderer.Message(md)
}

func (s *Service) validate(conversationID, text string) (string, error) {
	if conversationID == "" {
		return "", ErrNoConversation
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if n := utf8.RuneCountInString(text); n > s.opts.MaxMessageLength {
		return "", fmt.Errorf("%w: %d characters, limit is %d", ErrMessageTooLong, n, s.opts.MaxMessageLength)
	}
	return text, nil
}

func (s *Service) acquire(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy[conversationID] {
		return false
	}
	s.busy[conversationID] = true
	return true
}

func (s *Service) release(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busy, conversationID)
}

// record persists msg. Storage failures are logged by the store wrapper and
// never fail the turn; the message is still shown.
func (s *Service) record(ctx context.Context, msg history.Message) history.Message {
	if err := s.store.Append(ctx, &msg); err != nil {
		if msg.ID == "" {
			msg.ID = history.NewID()
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now()
		}
	}
	return msg
}

func (s *Service) view(m history.Message) View {
	v := View{
		ID:        m.ID,
		Role:      m.Role,
		Model:     m.Model,
		CreatedAt: m.CreatedAt,
		Raw:       m.Content,
	}
	switch {
	case m.Role == history.RoleUser:
		v.HTML = markup.Escape(m.Content)
	case m.IsImage:
		if path, ok := s.imagePath(m); ok {
			if _, err := os.Stat(path); err == nil {
				v.Image = s.opts.ImageURLPrefix + filepath.Base(m.Content)
				v.HTML = `<img src="` + v.Image + `" alt="Generated Image" class="generated-image">`
				break
			}
		}
		v.HTML = markup.Escape(MissingImageText)
		v.Raw = MissingImageText
	default:
		r := s.render(m.Content)
		v.HTML = r.markup
		v.Collapsible = r.collapsible
		v.Speech = r.speech
		v.SpeechLang = s.opts.SpeechLang
	}
	return v
}

func (s *Service) render(content string) rendered {
	return s.views.load(content, func(md string) rendered {
		mv := s.renderer.Message(md)
		return rendered{
			markup:      mv.Markup(),
			collapsible: mv.Disclosure != nil,
			speech:      mv.Speech,
		}
	})
}

func (s *Service) imagePath(m history.Message) (string, bool) {
	if !m.IsImage || s.opts.ImageDir == "" {
		return "", false
	}
	name := filepath.Base(m.Content)
	if name == "." || name == string(filepath.Separator) {
		return "", false
	}
	return filepath.Join(s.opts.ImageDir, name), true
}
