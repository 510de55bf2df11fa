package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/go-tokenlens/internal/catalog"
	"github.com/example/go-tokenlens/internal/config"
	"github.com/example/go-tokenlens/internal/metrics"
	"github.com/example/go-tokenlens/internal/registry"
	"github.com/example/go-tokenlens/internal/tokenizer"
	"github.com/example/go-tokenlens/internal/vocab"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// Resolver yields a ready tokenizer for an identifier and reports how many
// instances are live.
type Resolver interface {
	Resolve(ctx context.Context, identifier string, opts registry.ResolveOptions) (tokenizer.Tokenizer, error)
	Len() int
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxTextBytes   int
	workers        int
	requestTimeout time.Duration
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

func defaultOptions() options {
	return options{
		maxTextBytes:   1 << 20,
		workers:        4,
		requestTimeout: 30 * time.Second,
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxTextBytes sets the maximum allowed text length in bytes for
// POST /tokenize and POST /count.
func WithMaxTextBytes(n int) Option {
	return func(o *options) { o.maxTextBytes = n }
}

// WithWorkers sets the maximum number of concurrent tokenize calls.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request tokenize deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the collectors the handler records into.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

// handler holds the dependencies needed to serve HTTP requests.
type handler struct {
	resolver Resolver
	opts     options
	sem      chan struct{} // semaphore for tokenize work
	log      *slog.Logger
	met      *metrics.Metrics
}

// NewHandler returns an http.Handler serving /health, /models,
// POST /tokenize, POST /count, and /metrics.
func NewHandler(resolver Resolver, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.metrics == nil {
		opts.metrics = metrics.Default()
	}

	h := &handler{
		resolver: resolver,
		opts:     opts,
		log:      opts.logger,
		met:      opts.metrics,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/models", h.handleModels)
	mux.HandleFunc("/tokenize", h.handleTokenize)
	mux.HandleFunc("/count", h.handleCount)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": buildVersion(),
		"cached":  h.resolver.Len(),
	})
}

type modelsResponse struct {
	Encodings        []string `json:"encodings"`
	Models           []string `json:"models"`
	OpenSourceModels []string `json:"open_source_models"`
}

func (h *handler) handleModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, modelsResponse{
		Encodings:        catalog.Encodings(),
		Models:           catalog.ChatAndLegacyModels(),
		OpenSourceModels: catalog.OpenSourceModels(),
	})
}

type tokenizeRequest struct {
	Model      string `json:"model"`
	Text       string `json:"text"`
	Fast       bool   `json:"fast"`
	ChunkSize  int    `json:"chunk_size"`
	MaxTokens  int    `json:"max_tokens"`
	RemoteHost string `json:"remote_host"`
}

type countResponse struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func (h *handler) handleTokenize(w http.ResponseWriter, r *http.Request) {
	h.serveTokenize(w, r, false)
}

// handleCount is the count-only variant: segments are never computed.
func (h *handler) handleCount(w http.ResponseWriter, r *http.Request) {
	h.serveTokenize(w, r, true)
}

func (h *handler) serveTokenize(w http.ResponseWriter, r *http.Request, countOnly bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return
	}

	var req tokenizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if req.Model == "" {
		writeError(w, http.StatusBadRequest, "model field is required")
		return
	}

	if len(req.Text) > h.opts.maxTextBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text exceeds maximum size of %d bytes", h.opts.maxTextBytes))
		return
	}

	// Acquire a worker slot — honour context cancellation while waiting.
	if h.sem != nil {
		select {
		case h.sem <- struct{}{}:
			// slot acquired
		case <-r.Context().Done():
			writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
			return
		}
		defer func() { <-h.sem }()
	}

	// Apply per-request timeout.
	ctx, cancel := context.WithTimeout(r.Context(), h.opts.requestTimeout)
	defer cancel()

	start := time.Now()

	tok, err := h.resolver.Resolve(ctx, req.Model, registry.ResolveOptions{RemoteHost: req.RemoteHost})
	if err != nil {
		h.failTokenize(w, r, req, start, err)
		return
	}

	res, err := tok.Tokenize(req.Text, tokenizer.Options{
		FastMode:  req.Fast || countOnly,
		ChunkSize: req.ChunkSize,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		h.failTokenize(w, r, req, start, err)
		return
	}

	elapsed := time.Since(start)
	h.met.ObserveTokenize(req.Model, strconv.Itoa(http.StatusOK), elapsed.Seconds())
	h.log.InfoContext(r.Context(), "tokenize complete",
		slog.String("model", req.Model),
		slog.Int("text_len", len(req.Text)),
		slog.Int("count", res.Count),
		slog.Bool("count_only", countOnly),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
	)

	if countOnly {
		writeJSON(w, http.StatusOK, countResponse{Name: res.Name, Count: res.Count})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) failTokenize(w http.ResponseWriter, r *http.Request, req tokenizeRequest, start time.Time, err error) {
	elapsed := time.Since(start)
	status := statusForError(err)
	h.met.ObserveTokenize(req.Model, strconv.Itoa(status), elapsed.Seconds())

	if status == http.StatusGatewayTimeout {
		h.log.WarnContext(r.Context(), "tokenize timed out",
			slog.String("model", req.Model),
			slog.Int("text_len", len(req.Text)),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
			slog.String("error", err.Error()),
		)
		writeError(w, status, "tokenize timed out")
		return
	}

	h.log.ErrorContext(r.Context(), "tokenize failed",
		slog.String("model", req.Model),
		slog.Int("text_len", len(req.Text)),
		slog.Int("status", status),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
		slog.String("error", err.Error()),
	)
	writeError(w, status, err.Error())
}

// statusForError maps the tokenizer error taxonomy onto HTTP statuses:
// caller mistakes are 400s, vocabulary-host trouble is 502, engine
// failures are 500, deadlines are 504.
func statusForError(err error) int {
	var invalidErr *tokenizer.InvalidIdentifierError
	var unsupportedErr *tokenizer.UnsupportedModelError
	var loadErr *tokenizer.LoadError

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	case errors.As(err, &invalidErr), errors.As(err, &unsupportedErr):
		return http.StatusBadRequest
	case errors.As(err, &loadErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Server — wires handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	reg             *registry.Registry
	shutdownTimeout time.Duration
}

// New builds a Server. A nil registry makes Start construct one from the
// config and own its lifecycle.
func New(cfg config.Config, reg *registry.Registry) *Server {
	timeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{
		cfg:             cfg,
		reg:             reg,
		shutdownTimeout: timeout,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

func (s *Server) Start(ctx context.Context) error {
	reg := s.reg
	if reg == nil {
		fetcher := vocab.New(vocab.Options{
			Origin:           s.cfg.Vocab.Origin,
			AuthToken:        s.cfg.Vocab.AuthToken,
			MaxArtifactBytes: s.cfg.Vocab.MaxArtifactBytes,
			RetryMax:         s.cfg.Vocab.RetryMax,
			FetchTimeout:     time.Duration(s.cfg.Vocab.FetchTimeout) * time.Second,
		})

		var err error
		reg, err = registry.New(registry.Options{
			Size:    s.cfg.Cache.Size,
			Builder: registry.DefaultBuilder(fetcher, nil),
		})
		if err != nil {
			return err
		}
		defer reg.Close()
	}

	h := NewHandler(reg,
		WithWorkers(s.cfg.Server.Workers),
		WithMaxTextBytes(s.cfg.Server.MaxTextBytes),
		WithRequestTimeout(time.Duration(s.cfg.Server.RequestTimeout)*time.Second),
	)

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}
