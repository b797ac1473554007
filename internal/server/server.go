package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/zorah/internal/batch"
	"github.com/nao1215/zorah/internal/crawler"
	"github.com/nao1215/zorah/internal/model"
)

// Error messages returned by POST /crawl.
const (
	msgNoURL         = "No URL provided"
	msgInvalidDomain = "Could not parse a valid domain from the URL"
	msgInternal      = "An unexpected server error occurred."
)

// maxRequestBody caps the /crawl request body.
const maxRequestBody = 1 << 20

// Archiver stores finished runs. *database.CrawlDB satisfies it.
type Archiver interface {
	SaveReport(ctx context.Context, report *model.CrawlReport) error
}

// CrawlRequest is the body of POST /crawl.
type CrawlRequest struct {
	URL string `json:"url"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the HTTP API.
type Server struct {
	factory batch.Factory
	archive Archiver
	logger  *slog.Logger
	mux     *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithArchive saves every completed run to a.
func WithArchive(a Archiver) Option {
	return func(s *Server) {
		s.archive = a
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server that builds one crawler per request with factory.
func New(factory batch.Factory, opts ...Option) *Server {
	s := &Server{
		factory: factory,
		logger:  slog.New(slog.DiscardHandler),
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP satisfies the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/crawl", s.handleCrawl)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	// A body that is not a JSON object counts as missing the url.
	var req CrawlRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, msgNoURL)
		return
	}

	c, err := s.factory(req.URL)
	if err != nil {
		s.failCrawl(w, req.URL, err)
		return
	}

	report, err := c.Crawl(r.Context(), req.URL)
	if err != nil {
		s.failCrawl(w, req.URL, err)
		return
	}

	s.logger.Info("crawl served",
		"seed", report.Seed,
		"scope_domain", report.ScopeDomain,
		"records", len(report.Results))

	if s.archive != nil {
		if err := s.archive.SaveReport(r.Context(), report); err != nil {
			s.logger.Error("failed to archive run", "run_id", report.ID, "error", err)
		}
	}

	results := report.Results
	if results == nil {
		results = []model.Result{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) failCrawl(w http.ResponseWriter, seed string, err error) {
	switch {
	case errors.Is(err, crawler.ErrInvalidSeed):
		s.logger.Warn("rejected seed", "seed", seed, "error", err)
		writeError(w, http.StatusBadRequest, msgInvalidDomain)
	case errors.Is(err, context.Canceled):
		// The client went away; nobody reads the response.
		s.logger.Info("crawl abandoned by client", "seed", seed)
		writeError(w, http.StatusServiceUnavailable, msgInternal)
	default:
		s.logger.Error("crawl failed", "seed", seed, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// ListenAndServe serves the API on addr until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
