package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/example/go-phonepunct/internal/config"
	"github.com/example/go-phonepunct/internal/pipeline"
	"github.com/example/go-phonepunct/internal/punctuation"
	"github.com/example/go-phonepunct/internal/separator"
	"github.com/example/go-phonepunct/internal/text"
	"github.com/example/go-phonepunct/internal/yamlutil"
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

// Pipeline is the part of *pipeline.Pipeline the handler depends on.
type Pipeline interface {
	Run(ctx context.Context, units []string) (pipeline.Result, error)
	Marks() *punctuation.Marks
	Separator() separator.Separator
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxTextBytes   int
	workers        int
	requestTimeout time.Duration
	logger         *slog.Logger
}

func defaultOptions() options {
	return options{
		maxTextBytes:   1 << 20,
		workers:        4,
		requestTimeout: 60 * time.Second,
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxTextBytes sets the maximum total size of the units in one request.
func WithMaxTextBytes(n int) Option {
	return func(o *options) { o.maxTextBytes = n }
}

// WithWorkers sets the maximum number of concurrent pipeline runs.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request phonemization deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

type handler struct {
	pipe Pipeline
	opts options
	sem  chan struct{} // semaphore for worker pool
	log  *slog.Logger
}

// NewHandler returns an http.Handler that serves /health, /marks and the
// POST endpoints /remove, /preserve, /restore and /phonemize.
func NewHandler(pipe Pipeline, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.logger == nil {
		opts.logger = slog.Default()
	}

	h := &handler{
		pipe: pipe,
		opts: opts,
		log:  opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/marks", h.handleMarks)
	mux.HandleFunc("/remove", h.handleRemove)
	mux.HandleFunc("/preserve", h.handlePreserve)
	mux.HandleFunc("/restore", h.handleRestore)
	mux.HandleFunc("/phonemize", h.handlePhonemize)
	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

type marksResponse struct {
	Policy    string              `json:"policy"`
	Marks     string              `json:"marks,omitempty"`
	Pattern   string              `json:"pattern,omitempty"`
	Default   string              `json:"default"`
	Separator separator.Separator `json:"separator"`
}

func (h *handler) handleMarks(w http.ResponseWriter, _ *http.Request) {
	m := h.pipe.Marks()
	resp := marksResponse{
		Policy:    m.Policy().String(),
		Default:   punctuation.DefaultMarks(),
		Separator: h.pipe.Separator(),
	}
	if list, err := m.List(); err == nil {
		resp.Marks = list
	} else if pattern, err := m.Pattern(); err == nil {
		resp.Pattern = pattern
	}
	writeJSON(w, http.StatusOK, resp)
}

// unitsRequest carries either raw text, split into one unit per line, or
// explicit units.
type unitsRequest struct {
	Text  string   `json:"text" yaml:"text"`
	Units []string `json:"units" yaml:"units"`
}

func (r unitsRequest) units() []string {
	if len(r.Units) > 0 {
		return r.Units
	}
	return text.SplitUnits(r.Text)
}

type unitsResponse struct {
	Units []string `json:"units"`
}

func (h *handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req unitsRequest
	units, ok := h.decodeUnits(w, r, &req)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, unitsResponse{Units: h.pipe.Marks().RemoveAll(units)})
}

type preserveResponse struct {
	Units  []string           `json:"units"`
	Ledger punctuation.Ledger `json:"ledger"`
}

func (h *handler) handlePreserve(w http.ResponseWriter, r *http.Request) {
	var req unitsRequest
	units, ok := h.decodeUnits(w, r, &req)
	if !ok {
		return
	}

	hidden, ledger, err := h.pipe.Marks().Preserve(units)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, preserveResponse{Units: hidden, Ledger: ledger})
}

type restoreRequest struct {
	Units     []string             `json:"units" yaml:"units"`
	Ledger    punctuation.Ledger   `json:"ledger" yaml:"ledger"`
	Separator *separator.Separator `json:"separator" yaml:"separator"`
	Strip     *bool                `json:"strip" yaml:"strip"`
	Leniency  string               `json:"leniency" yaml:"leniency"`
}

func (h *handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	leniency, err := punctuation.ParseLeniency(req.Leniency)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sep := h.pipe.Separator()
	if req.Separator != nil {
		sep = *req.Separator
		if err := sep.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	strip := true
	if req.Strip != nil {
		strip = *req.Strip
	}

	res, err := punctuation.Restore(req.Units, req.Ledger, punctuation.RestoreOptions{
		Separator: sep,
		Strip:     strip,
		Leniency:  leniency,
		Logger:    h.log,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pipeline.Result{Units: res.Units, Missing: res.Missing})
}

func (h *handler) handlePhonemize(w http.ResponseWriter, r *http.Request) {
	var req unitsRequest
	units, ok := h.decodeUnits(w, r, &req)
	if !ok {
		return
	}

	// Acquire a worker slot, honouring context cancellation while waiting.
	if h.sem != nil {
		select {
		case h.sem <- struct{}{}:
		case <-r.Context().Done():
			writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
			return
		}
		defer func() { <-h.sem }()
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.requestTimeout)
	defer cancel()

	start := time.Now()
	res, err := h.pipe.Run(ctx, units)
	durationMS := time.Since(start).Milliseconds()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			h.log.WarnContext(r.Context(), "phonemization timed out",
				slog.Int("units", len(units)),
				slog.Int("text_len", textLen(units)),
				slog.Int64("duration_ms", durationMS),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusGatewayTimeout, "phonemization timed out")
			return
		}
		h.log.ErrorContext(r.Context(), "phonemization failed",
			slog.Int("units", len(units)),
			slog.Int("text_len", textLen(units)),
			slog.Int64("duration_ms", durationMS),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.InfoContext(r.Context(), "phonemization complete",
		slog.Int("units", len(units)),
		slog.Int("text_len", textLen(units)),
		slog.Int("missing", len(res.Missing)),
		slog.Int64("duration_ms", durationMS),
	)
	writeJSON(w, http.StatusOK, res)
}

// decodeUnits decodes a unitsRequest and enforces the text size limit.
func (h *handler) decodeUnits(w http.ResponseWriter, r *http.Request, req *unitsRequest) ([]string, bool) {
	if !h.decodeBody(w, r, req) {
		return nil, false
	}

	units := req.units()
	if len(units) == 0 {
		writeError(w, http.StatusBadRequest, "text or units field is required")
		return nil, false
	}

	if n := textLen(units); n > h.opts.maxTextBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text exceeds maximum size of %d bytes", h.opts.maxTextBytes))
		return nil, false
	}
	return units, true
}

// decodeBody reads a POST body as YAML when the content type says so and as
// JSON otherwise.
func (h *handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}

	if r.Body == nil || r.Body == http.NoBody {
		writeError(w, http.StatusBadRequest, "request body is required")
		return false
	}

	if isYAML(r.Header.Get("Content-Type")) {
		data, err := io.ReadAll(io.LimitReader(r.Body, int64(yamlutil.MaxInputSize)+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "read body: "+err.Error())
			return false
		}
		if err := yamlutil.Unmarshal(data, v); err != nil {
			if errors.Is(err, yamlutil.ErrInputTooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, err.Error())
				return false
			}
			writeError(w, http.StatusBadRequest, "invalid YAML: "+err.Error())
			return false
		}
		return true
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func isYAML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mt {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return true
	}
	return false
}

func textLen(units []string) int {
	n := 0
	for _, u := range units {
		n += len(u)
	}
	return n
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
// Server wires handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	pipe            Pipeline
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// New returns a server for cfg. A nil pipe is built from cfg on Start.
func New(cfg config.Config, pipe Pipeline) *Server {
	shutdown := 30 * time.Second
	if cfg.Server.ShutdownTimeout > 0 {
		shutdown = time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	}
	return &Server{
		cfg:             cfg,
		pipe:            pipe,
		logger:          slog.Default(),
		shutdownTimeout: shutdown,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

// WithLogger sets the logger for request logs and restore warnings.
func (s *Server) WithLogger(l *slog.Logger) *Server {
	if l != nil {
		s.logger = l
	}
	return s
}

func (s *Server) Start(ctx context.Context) error {
	pipe := s.pipe
	if pipe == nil {
		p, err := pipeline.FromConfig(s.cfg, s.logger)
		if err != nil {
			return err
		}
		pipe = p
	}

	h := NewHandler(pipe,
		WithWorkers(s.cfg.Server.Workers),
		WithMaxTextBytes(s.cfg.Server.MaxTextBytes),
		WithRequestTimeout(time.Duration(s.cfg.Server.RequestTimeout)*time.Second),
		WithLogger(s.logger),
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

	s.logger.Info("server listening", slog.String("addr", s.cfg.Server.ListenAddr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
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
