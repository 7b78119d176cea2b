// Package http exposes the tutoring engine and the code sandbox over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/logicloom/internal/logging"
	"github.com/aretw0/logicloom/pkg/adapters/sandbox"
	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/aretw0/logicloom/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// MaxBodyBytes bounds request bodies. Inputs are sanitized separately.
const MaxBodyBytes = 1 << 20

// Engine is the tutoring core as seen by the transport.
type Engine interface {
	Turn(ctx context.Context, req domain.TurnRequest) (domain.TurnResult, error)
	Stream(ctx context.Context, req domain.TurnRequest, emit func(domain.Event) error) error
}

// Sandbox runs and checks student code.
type Sandbox interface {
	Run(ctx context.Context, code string, inputs []string) (sandbox.Result, error)
	CheckSyntax(ctx context.Context, code string) (sandbox.SyntaxReport, error)
}

// Server holds the route handlers.
type Server struct {
	engine   Engine
	sandbox  Sandbox
	metrics  http.Handler
	logger   *slog.Logger
	maxInput int
}

// Option configures a Server.
type Option func(*Server)

// WithSandbox enables /execute and /api/check_syntax.
func WithSandbox(sb Sandbox) Option {
	return func(s *Server) {
		s.sandbox = sb
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxInputSize overrides the sanitizer's input limit in bytes.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.maxInput = n
	}
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/", s.root)
	r.Get("/health", s.health)
	r.Post("/api/chat", s.chat)
	r.Post("/api/chat_stream", s.chatStream)
	if s.sandbox != nil {
		r.Post("/execute", s.execute)
		r.Post("/api/check_syntax", s.checkSyntax)
	}
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Hello! LogicLoom is running!"})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// chat handles POST /api/chat.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTurn(w, r)
	if !ok {
		return
	}

	res, err := s.engine.Turn(r.Context(), req)
	if err != nil {
		s.logger.Error("chat failed", "conversation_id", req.ConversationID, "stage", req.Stage, "err", err)
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type execRequest struct {
	Code   string   `json:"code"`
	Inputs []string `json:"inputs"`
}

type execResponse struct {
	Output string  `json:"output"`
	Error  *string `json:"error"`
}

// execute handles POST /execute.
func (s *Server) execute(w http.ResponseWriter, r *http.Request) {
	var body execRequest
	if !decodeBody(w, r, &body) {
		return
	}

	res, err := s.sandbox.Run(r.Context(), body.Code, body.Inputs)
	if err != nil {
		// Only a cancelled request lands here; nobody is listening.
		s.logger.Debug("execute abandoned", "err", err)
		return
	}

	resp := execResponse{Output: res.Output}
	if res.Failed {
		resp.Error = &res.Error
	}
	writeJSON(w, http.StatusOK, resp)
}

type syntaxResponse struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// checkSyntax handles POST /api/check_syntax.
func (s *Server) checkSyntax(w http.ResponseWriter, r *http.Request) {
	var body execRequest
	if !decodeBody(w, r, &body) {
		return
	}

	rep, err := s.sandbox.CheckSyntax(r.Context(), body.Code)
	if err != nil {
		s.logger.Warn("syntax check failed", "err", err)
		writeJSON(w, http.StatusOK, syntaxResponse{Errors: []string{err.Error()}})
		return
	}
	errs := rep.Errors
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, http.StatusOK, syntaxResponse{IsValid: rep.Valid, Errors: errs})
}

// decodeTurn reads and sanitizes a chat request.
func (s *Server) decodeTurn(w http.ResponseWriter, r *http.Request) (domain.TurnRequest, bool) {
	var req domain.TurnRequest
	if !decodeBody(w, r, &req) {
		return req, false
	}

	if req.UserID != "" {
		if _, err := uuid.Parse(req.UserID); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("user_id: %v", err))
			return req, false
		}
	}

	clean, err := s.sanitize(req.UserInput)
	if err != nil {
		s.logger.Warn("input rejected", "err", err, "size", len(req.UserInput))
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid input: %v", err))
		return req, false
	}
	req.UserInput = clean
	return req, true
}

func (s *Server) sanitize(input string) (string, error) {
	if s.maxInput > 0 {
		return runner.SanitizeInputLimit(input, s.maxInput)
	}
	return runner.SanitizeInput(input)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		status := http.StatusUnprocessableEntity
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeDetail(w, status, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
