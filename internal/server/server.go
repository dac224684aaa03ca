// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the query pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// maxBodyBytes bounds POST /query bodies.
const maxBodyBytes = 1 << 20

// Runner answers a query. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, req types.QueryRequest) types.QueryResponse
}

// StatusInfo is reported by GET /status.
type StatusInfo struct {
	Version  string                    `json:"version"`
	Provider types.LLMProvider         `json:"provider"`
	Model    string                    `json:"model"`
	Sources  map[types.SourceID]string `json:"sources"`
}

// Server serves /health, /status, and /query.
type Server struct {
	runner   Runner
	info     StatusInfo
	cfg      types.ServerConfig
	logger   *zap.Logger
	validate *validator.Validate
}

// New builds a Server.
func New(runner Runner, info StatusInfo, cfg types.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		runner:   runner,
		info:     info,
		cfg:      cfg,
		logger:   logger,
		validate: validator.New(),
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Get("/status", s.status)
	r.Post("/query", s.query)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not_found", "no such endpoint", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed here", nil)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.cfg.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.info)
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	var req types.QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "request body must be a JSON object", nil)
		return
	}
	req = req.Trimmed()
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "validation_failed", "request failed validation", validationDetails(err))
		return
	}

	resp := s.runner.Run(r.Context(), req.WithDefaults())
	respondJSON(w, http.StatusOK, resp)
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]any) {
	respondJSON(w, statusCode, ErrorResponse{Error: code, Message: message, Details: details})
}

func validationDetails(err error) map[string]any {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	details := make(map[string]any, len(ve))
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			details[jsonField(fe.Field())] = "is required"
		case "max":
			details[jsonField(fe.Field())] = "must be at most " + fe.Param() + " characters"
		default:
			details[jsonField(fe.Field())] = "failed " + fe.Tag()
		}
	}
	return details
}

func jsonField(name string) string {
	switch name {
	case "Query":
		return "query"
	case "UserID":
		return "user_id"
	case "ThreadID":
		return "thread_id"
	}
	return name
}
