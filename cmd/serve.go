package cmd

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samsaffron/alicia/internal/chat"
	"github.com/samsaffron/alicia/internal/markup"
	"github.com/samsaffron/alicia/internal/serveui"
	"github.com/samsaffron/alicia/internal/signal"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var (
	serveHost        string
	servePort        int
	serveToken       string
	serveAllowNoAuth bool
	serveNoUI        bool
	serveCORSOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web chat server",
	Long: `Run the HTTP server behind the web chat page.

Endpoints:
  GET    /api/models
  GET    /api/conversations/{id}/messages
  POST   /api/conversations/{id}/messages
  DELETE /api/conversations/{id}/messages
  POST   /api/conversations/{id}/images
  POST   /api/render
  GET    /images/{name}
  GET    /healthz

Auth is off on loopback hosts unless a token is set. On other hosts a
bearer token is required and generated when none is configured.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Bind host (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Bind port (default from config)")
	serveCmd.Flags().StringVar(&serveToken, "token", "", "Bearer token for API auth")
	serveCmd.Flags().BoolVar(&serveAllowNoAuth, "allow-no-auth", false, "Disable auth (only allowed on loopback host)")
	serveCmd.Flags().BoolVar(&serveNoUI, "no-ui", false, "Serve the API only")
	serveCmd.Flags().StringArrayVar(&serveCORSOrigins, "cors-origin", nil, "Allowed CORS origin (repeatable, or '*' for all)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sc := serveServerConfig{
		host:           cfg.Server.Host,
		port:           cfg.Server.Port,
		token:          strings.TrimSpace(cfg.Server.Token),
		ui:             cfg.Server.UI && !serveNoUI,
		corsOrigins:    append([]string(nil), cfg.Server.CORSOrigins...),
		rateLimit:      cfg.Server.RateLimit,
		rateBurst:      cfg.Server.RateBurst,
		requestTimeout: cfg.Server.RequestTimeout,
		maxLength:      cfg.Chat.MaxMessageLength,
	}
	if serveHost != "" {
		sc.host = serveHost
	}
	if servePort != 0 {
		sc.port = servePort
	}
	if serveToken != "" {
		sc.token = strings.TrimSpace(serveToken)
	}
	if len(serveCORSOrigins) > 0 {
		sc.corsOrigins = append(sc.corsOrigins, serveCORSOrigins...)
	}
	if sc.port <= 0 || sc.port > 65535 {
		return fmt.Errorf("invalid port %d (must be 1-65535)", sc.port)
	}

	loopback := isLoopbackHost(sc.host)
	if serveAllowNoAuth && !loopback {
		return fmt.Errorf("--allow-no-auth is only allowed on loopback hosts (got %q)", sc.host)
	}
	sc.requireAuth = !serveAllowNoAuth && (sc.token != "" || !loopback)
	if sc.requireAuth && sc.token == "" {
		generated, err := generateServeToken()
		if err != nil {
			return fmt.Errorf("generate auth token: %w", err)
		}
		sc.token = generated
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context())
	defer stop()

	s := newServeServer(sc, a.service, a.imageDir, cfg.Render.HighlightStyle)
	if err := s.Start(); err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s:%d/", sc.host, sc.port)
	fmt.Fprintf(cmd.ErrOrStderr(), "alicia serve listening on %s\n", url)
	fmt.Fprintf(cmd.ErrOrStderr(), "auth: %s\n", authSummary(sc.requireAuth))
	if sc.requireAuth {
		fmt.Fprintf(cmd.ErrOrStderr(), "token: %s\n", sc.token)
		if sc.ui {
			fmt.Fprintf(cmd.ErrOrStderr(), "open: %s#token=%s\n", url, sc.token)
		}
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "models: %s (default %s)\n", strings.Join(a.service.Models(), ", "), cfg.DefaultModel)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Stop(shutdownCtx)
}

func authSummary(required bool) string {
	if required {
		return "bearer required"
	}
	return "disabled"
}

func isLoopbackHost(host string) bool {
	h := strings.TrimSpace(strings.ToLower(host))
	return h == "127.0.0.1" || h == "localhost" || h == "::1"
}

func generateServeToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

type serveServerConfig struct {
	host           string
	port           int
	requireAuth    bool
	token          string
	ui             bool
	corsOrigins    []string
	rateLimit      float64 // inference requests per second, 0 disables
	rateBurst      int
	requestTimeout time.Duration
	maxLength      int
}

type serveServer struct {
	cfg            serveServerConfig
	service        *chat.Service
	imageDir       string
	highlightStyle string
	limiter        *rate.Limiter
	router         chi.Router
	server         *http.Server
}

func newServeServer(cfg serveServerConfig, service *chat.Service, imageDir, highlightStyle string) *serveServer {
	s := &serveServer{
		cfg:            cfg,
		service:        service,
		imageDir:       imageDir,
		highlightStyle: highlightStyle,
	}
	if cfg.rateLimit > 0 {
		burst := cfg.rateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.rateLimit), burst)
	}
	s.router = s.routes()
	return s
}

func (s *serveServer) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.auth)
		r.Get("/models", s.handleModels)
		r.Post("/render", s.handleRender)
		r.Route("/conversations/{id}", func(r chi.Router) {
			r.Get("/messages", s.handleHistory)
			r.Delete("/messages", s.handleClear)
			r.Group(func(r chi.Router) {
				r.Use(s.throttle)
				if s.cfg.requestTimeout > 0 {
					r.Use(middleware.Timeout(s.cfg.requestTimeout))
				}
				r.Post("/messages", s.handleSend)
				r.Post("/images", s.handleImage)
			})
		})
	})

	// Image names are unguessable UUIDs and <img> cannot send headers, so
	// images are served without auth.
	r.Get("/images/{name}", s.handleImageFile)
	r.Get("/highlight.css", s.handleHighlightCSS)

	if s.cfg.ui {
		r.Get("/", s.handleUI)
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(serveui.Assets())))
	}
	return r
}

func (s *serveServer) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.host, s.cfg.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}
		return nil
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

func (s *serveServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// requestLogger logs one line per request through slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *serveServer) auth(next http.Handler) http.Handler {
	if !s.cfg.requireAuth {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		const prefix = "Bearer "
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, prefix) {
			writeAPIError(w, http.StatusUnauthorized, "invalid_api_key", "invalid authentication credentials")
			return
		}
		gotToken := strings.TrimSpace(strings.TrimPrefix(auth, prefix))
		if subtle.ConstantTimeCompare([]byte(gotToken), []byte(s.cfg.token)) != 1 {
			writeAPIError(w, http.StatusUnauthorized, "invalid_api_key", "invalid authentication credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *serveServer) cors(next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(s.cfg.corsOrigins))
	allowAll := false
	for _, origin := range s.cfg.corsOrigins {
		o := strings.TrimSpace(origin)
		if o == "" {
			continue
		}
		if o == "*" {
			allowAll = true
			continue
		}
		allowed[o] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// throttle applies the shared token bucket to outbound inference.
func (s *serveServer) throttle(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(s.limiter)))
			writeAPIError(w, http.StatusTooManyRequests, "rate_limit_error", "too many requests, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(l *rate.Limiter) int {
	if l.Limit() <= 0 {
		return 1
	}
	secs := int(1/float64(l.Limit()) + 0.999)
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (s *serveServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *serveServer) handleUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(serveui.IndexHTML())
}

func (s *serveServer) handleHighlightCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if err := markup.WriteHighlightCSS(w, s.highlightStyle); err != nil {
		slog.Warn("write highlight css", "error", err)
	}
}

func (s *serveServer) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"models":             s.service.Models(),
		"default":            s.service.DefaultModel(),
		"max_message_length": s.cfg.maxLength,
	})
}

type sendRequest struct {
	Message string `json:"message"`
	Model   string `json:"model"`
}

func (s *serveServer) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	turn, err := s.service.Send(r.Context(), chi.URLParam(r, "id"), req.Message, req.Model)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

type imageRequest struct {
	Prompt string `json:"prompt"`
}

func (s *serveServer) handleImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	turn, err := s.service.GenerateImage(r.Context(), chi.URLParam(r, "id"), req.Prompt)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func (s *serveServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeAPIError(w, http.StatusBadRequest, "invalid_request_error", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	views, err := s.service.History(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": views})
}

func (s *serveServer) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Clear(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeChatError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type renderRequest struct {
	Markdown string `json:"markdown"`
}

type renderResponse struct {
	HTML       string          `json:"html"`
	Markup     string          `json:"markup"`
	Disclosure *disclosureJSON `json:"disclosure,omitempty"`
	Speech     string          `json:"speech"`
}

type disclosureJSON struct {
	Collapsed string `json:"collapsed"`
	Expanded  string `json:"expanded"`
}

func (s *serveServer) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	v := s.service.Render(req.Markdown)
	resp := renderResponse{HTML: v.HTML, Markup: v.Markup(), Speech: v.Speech}
	if v.Disclosure != nil {
		resp.Disclosure = &disclosureJSON{Collapsed: v.Disclosure.Collapsed, Expanded: v.Disclosure.Expanded}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *serveServer) handleImageFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		http.NotFound(w, r)
		return
	}
	path := filepath.Join(s.imageDir, name)
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=86400")
	http.ServeFile(w, r, path)
}

func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := requireJSONContentType(r); err != nil {
		writeAPIError(w, http.StatusUnsupportedMediaType, "invalid_request_error", err.Error())
		return false
	}
	if err := decodeJSONBody(r, dst); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_request_error", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeChatError maps chat sentinel errors onto HTTP statuses.
func writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrMessageTooLong), errors.Is(err, chat.ErrNoConversation):
		writeAPIError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
	case errors.Is(err, chat.ErrBusy):
		writeAPIError(w, http.StatusConflict, "conflict_error", err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeAPIError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func writeAPIError(w http.ResponseWriter, status int, errorType, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    errorType,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSONBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}

func requireJSONContentType(r *http.Request) error {
	contentType := r.Header.Get("Content-Type")
	if strings.TrimSpace(contentType) == "" {
		return fmt.Errorf("Content-Type must be application/json")
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("invalid Content-Type header")
	}
	if mediaType != "application/json" {
		return fmt.Errorf("Content-Type must be application/json")
	}
	return nil
}
