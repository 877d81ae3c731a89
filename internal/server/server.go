// Package server exposes the classifier over HTTP.
//
//	GET  /classify/{url}   classify a page, url path-escaped or plain
//	GET  /classify?url=... same, with the url as a query parameter
//	POST /classify         {"url": "...", "category": "..."} teaches the classifier
//	GET  /health
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chriscorrea/sitecat/internal/classify"
	"github.com/chriscorrea/sitecat/internal/extract"
	"github.com/chriscorrea/sitecat/internal/fetch"
)

const (
	// requestTimeout bounds a single request; training on a cold cache can
	// take several minutes.
	requestTimeout  = 10 * time.Minute
	shutdownTimeout = 10 * time.Second
	maxBodyBytes    = 1 << 20
)

// Service is what the server needs from the application.
type Service interface {
	Classify(ctx context.Context, url string, retrain bool) (string, error)
	Update(ctx context.Context, url, category string) error
}

// ClassifyResponse is returned by GET /classify.
type ClassifyResponse struct {
	URL      string `json:"url"`
	Category string `json:"category"`
}

// UpdateRequest is the body of POST /classify.
type UpdateRequest struct {
	URL      string `json:"url"`
	Category string `json:"category"`
}

// UpdateResponse is returned by POST /classify.
type UpdateResponse struct {
	Status   string `json:"status"`
	URL      string `json:"url"`
	Category string `json:"category"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server routes HTTP requests to a Service.
type Server struct {
	service Service
	router  chi.Router
}

// New creates a Server.
func New(service Service) *Server {
	s := &Server{service: service}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", s.health)
	r.Route("/classify", func(r chi.Router) {
		r.Get("/", s.classify)
		r.Post("/", s.update)
		r.Get("/*", s.classify)
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) classify(w http.ResponseWriter, r *http.Request) {
	target, err := targetURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if target == "" {
		writeError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}

	category, err := s.service.Classify(r.Context(), target, false)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ClassifyResponse{URL: target, Category: category})
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	req.Category = strings.TrimSpace(req.Category)
	if req.URL == "" || req.Category == "" {
		writeError(w, http.StatusBadRequest, errors.New("url and category are required"))
		return
	}

	if err := s.service.Update(r.Context(), req.URL, req.Category); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, UpdateResponse{Status: "updated", URL: req.URL, Category: req.Category})
}

// targetURL reads the page URL from the path or, failing that, the url query
// parameter.
func targetURL(r *http.Request) (string, error) {
	if rest := chi.URLParam(r, "*"); rest != "" {
		target, err := url.PathUnescape(rest)
		if err != nil {
			return "", fmt.Errorf("invalid url: %w", err)
		}
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		return strings.TrimSpace(target), nil
	}
	return strings.TrimSpace(r.URL.Query().Get("url")), nil
}

func statusFor(err error) int {
	var fetchErr *fetch.Error
	var decodingErr *extract.DecodingError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, classify.ErrNotTrained):
		return http.StatusServiceUnavailable
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	case errors.As(err, &decodingErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// logRequests logs every request at debug level, and failures at warn.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		level := slog.LevelDebug
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
