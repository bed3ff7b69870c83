package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/nao1215/homeowners/internal/metrics"
	"github.com/nao1215/homeowners/internal/pipeline"
)

//go:embed static/index.html
var staticFS embed.FS

// Server defaults.
const (
	DefaultAddress         = "127.0.0.1:8080"
	DefaultMaxUploadSize   = 10 * 1024 * 1024
	DefaultShutdownTimeout = 10 * time.Second

	readHeaderTimeout = 10 * time.Second
)

// Server accepts CSV uploads and runs them through the import pipeline.
type Server struct {
	address         string
	maxUploadSize   int64
	concurrency     int
	shutdownTimeout time.Duration

	// store saves uploads to the history database when set.
	store pipeline.ImportStore

	// recorder counts uploads when set.
	recorder *metrics.Recorder

	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAddress sets the listen address in "host:port" form.
func WithAddress(address string) Option {
	return func(s *Server) {
		s.address = address
	}
}

// WithMaxUploadSize caps the request body size in bytes.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadSize = n
		}
	}
}

// WithConcurrency sets the number of rows parsed at once per upload.
func WithConcurrency(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// WithStore saves every upload to store.
func WithStore(store pipeline.ImportStore) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithRecorder records every upload and serves the registry on /metrics.
func WithRecorder(recorder *metrics.Recorder) Option {
	return func(s *Server) {
		s.recorder = recorder
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Server with the given options.
func New(opts ...Option) *Server {
	s := &Server{
		address:         DefaultAddress,
		maxUploadSize:   DefaultMaxUploadSize,
		concurrency:     1,
		shutdownTimeout: DefaultShutdownTimeout,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.recorder.Handler())
	return mux
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("upload server listening", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down upload server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down upload server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
