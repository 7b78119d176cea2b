// Package agents implements the five stage handlers.
//
// Every handler receives the read-only Turn view plus the one sub-record it owns and
// returns the updated sub-record. Malformed model output never produces an error; only
// prompt and completion failures do.
package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/logicloom/internal/envelope"
	"github.com/aretw0/logicloom/internal/logging"
	"github.com/aretw0/logicloom/internal/prompt"
	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/aretw0/logicloom/pkg/ports"
)

// Turn is the part of the session every handler may read.
type Turn struct {
	Stage       domain.Stage
	UserInput   string
	Context     string
	CurrentTask string

	// CurrentCode is owned by the coding handler; assessment and transfer only read it.
	CurrentCode string
}

// TurnFrom builds the Turn view of a session.
func TurnFrom(s *domain.SessionState) Turn {
	return Turn{
		Stage:       s.Stage,
		UserInput:   s.UserInput,
		Context:     s.Context,
		CurrentTask: s.CurrentTask,
		CurrentCode: s.Coding.CurrentCode,
	}
}

// Caller performs one completion call. The engine decides whether it streams.
type Caller func(ctx context.Context, cfg ports.ModelConfig, system, user string) (string, error)

// Report describes how a handler's model reply was interpreted.
type Report struct {
	Called   bool // false when the handler did not own the stage
	Salvaged bool // the reply had no usable "response" field
}

// Handlers holds the five stage handlers and their shared dependencies.
type Handlers struct {
	prompts ports.PromptSource
	logger  *slog.Logger
}

// Option configures Handlers.
type Option func(*Handlers)

// WithLogger sets the handlers' logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handlers) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// New creates the handlers over a prompt source.
func New(prompts ports.PromptSource, opts ...Option) *Handlers {
	h := &Handlers{
		prompts: prompts,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// invoke loads the handler prompt, renders it and calls the model.
func (h *Handlers) invoke(ctx context.Context, id domain.HandlerID, vars prompt.Vars, call Caller) (string, ports.PromptConfig, error) {
	cfg, err := h.prompts.Prompt(string(id))
	if err != nil {
		return "", cfg, fmt.Errorf("%s handler: %w", id, err)
	}
	system, user, err := prompt.Render(cfg, vars)
	if err != nil {
		return "", cfg, fmt.Errorf("%s handler: %w", id, err)
	}
	raw, err := call(ctx, cfg.Model, system, user)
	if err != nil {
		return "", cfg, fmt.Errorf("%s handler: %w", id, err)
	}
	return raw, cfg, nil
}

// reply returns the user-visible text of a decoded envelope.
// A structured reply without a string "response" falls back to salvage.
func reply(env envelope.Envelope) (string, bool) {
	switch e := env.(type) {
	case envelope.Structured:
		if text, ok := e.Fields["response"].(string); ok {
			return text, false
		}
		return envelope.Salvage(e.Raw).Text, true
	case envelope.Salvaged:
		return e.Text, true
	}
	return "", true
}

// hasResponse reports whether env is structured and carries a "response" key.
func hasResponse(env envelope.Envelope) (envelope.Structured, bool) {
	st, ok := env.(envelope.Structured)
	return st, ok && st.Has("response")
}

// cleanText is the knowledge/coding fallback: salvage only when the reply looks like
// broken JSON, otherwise keep it verbatim.
func cleanText(raw string) string {
	if strings.Contains(raw, "{") && strings.Contains(raw, "}") {
		if s := envelope.Salvage(raw); s.Matched {
			return s.Text
		}
	}
	return raw
}

func (h *Handlers) decodePayload(id domain.HandlerID, st envelope.Structured, out any) {
	if err := st.Decode(out); err != nil {
		h.logger.Warn("partial payload decode", "handler", id, "err", err)
	}
}
