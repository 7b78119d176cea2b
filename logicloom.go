package logicloom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/logicloom/internal/agents"
	"github.com/aretw0/logicloom/internal/logging"
	"github.com/aretw0/logicloom/internal/prompt"
	"github.com/aretw0/logicloom/internal/runtime"
	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/aretw0/logicloom/pkg/ports"
	"github.com/aretw0/logicloom/pkg/session"
	"github.com/google/uuid"
)

// ErrNoCompleter is returned by New when no completion function was configured.
var ErrNoCompleter = errors.New("a completer is required")

// Engine is the high-level entry point for the LogicLoom library.
// It wraps the internal runtime with prompt loading, optional session persistence
// and turn logging.
type Engine struct {
	runtime    *runtime.Engine
	prompts    ports.PromptSource
	promptsDir string
	completer  ports.Completer
	turnLog    ports.TurnLogger
	store      ports.StateStore
	locker     ports.DistributedLocker
	sessions   *session.Manager
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithPromptsDir loads handler prompts from a directory of YAML or JSON files.
func WithPromptsDir(dir string) Option {
	return func(e *Engine) {
		e.promptsDir = dir
	}
}

// WithPromptSource injects prompt configurations directly.
func WithPromptSource(src ports.PromptSource) Option {
	return func(e *Engine) {
		e.prompts = src
	}
}

// WithCompleter sets the text-completion boundary.
func WithCompleter(c ports.Completer) Option {
	return func(e *Engine) {
		e.completer = c
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithTurnLogger records every user input and agent reply. Logging failures never fail a turn.
func WithTurnLogger(l ports.TurnLogger) Option {
	return func(e *Engine) {
		e.turnLog = l
	}
}

// WithStore enables server-side persistence for requests that carry a conversation ID.
func WithStore(store ports.StateStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker serializes turns of one conversation across replicas. It requires WithStore.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// New assembles an Engine. A completer and a prompt source (or directory) are required.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.completer == nil {
		return nil, ErrNoCompleter
	}
	if eng.prompts == nil {
		if eng.promptsDir == "" {
			return nil, errors.New("a prompt source or prompts directory is required")
		}
		set, err := prompt.LoadDir(eng.promptsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load prompts: %w", err)
		}
		eng.prompts = set
	}
	if eng.locker != nil && eng.store == nil {
		return nil, errors.New("a distributed locker requires a store")
	}

	if eng.store != nil {
		sessOpts := []session.Option{session.WithLogger(eng.logger)}
		if eng.locker != nil {
			sessOpts = append(sessOpts, session.WithLocker(eng.locker))
		}
		eng.sessions = session.NewManager(eng.store, sessOpts...)
	}

	handlers := agents.New(eng.prompts, agents.WithLogger(eng.logger))
	eng.runtime = runtime.NewEngine(eng.completer, handlers,
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	)
	return eng, nil
}

// NewSession returns a session with every default value: stage scenario and
// each handler at its first sub-stage.
func (e *Engine) NewSession() *domain.SessionState {
	return domain.NewSessionState()
}

// Sessions returns the session manager, or nil when no store is configured.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Prompts returns the prompt source in use.
func (e *Engine) Prompts() ports.PromptSource {
	return e.prompts
}

// Turn processes one request. When a store is configured and the request names a
// conversation, the stored session is loaded, updated and saved under the
// conversation's lock; otherwise the request alone describes the session.
func (e *Engine) Turn(ctx context.Context, req domain.TurnRequest) (domain.TurnResult, error) {
	req.UserID = e.userID(req)
	e.logTurn(ctx, req, ports.RoleUser, req.UserInput)

	var result domain.TurnResult
	run := func(ctx context.Context, state *domain.SessionState) (*domain.SessionState, error) {
		next, res, err := e.runtime.Turn(ctx, state, req)
		if err != nil {
			return nil, err
		}
		result = res
		return next, nil
	}

	if err := e.withSession(ctx, req, run); err != nil {
		return domain.TurnResult{}, err
	}

	result.UserID = req.UserID
	e.logTurn(ctx, req, ports.RoleAgent, result.ActiveResponse)
	return result, nil
}

// Stream processes one request like Turn, delivering the reply text through emit as
// token events followed by exactly one final or error event. An error returned by
// emit aborts the turn and nothing is saved.
func (e *Engine) Stream(ctx context.Context, req domain.TurnRequest, emit func(domain.Event) error) error {
	req.UserID = e.userID(req)
	e.logTurn(ctx, req, ports.RoleUser, req.UserInput)

	var (
		partial  strings.Builder
		final    string
		terminal bool
	)
	relay := func(ev domain.Event) error {
		switch ev.Type {
		case domain.EventToken:
			partial.WriteString(ev.Content)
		case domain.EventFinal:
			ev.Result.UserID = req.UserID
			final = ev.Result.ActiveResponse
			terminal = true
		case domain.EventError:
			terminal = true
		}
		return emit(ev)
	}

	run := func(ctx context.Context, state *domain.SessionState) (*domain.SessionState, error) {
		return e.runtime.Stream(ctx, state, req, relay)
	}

	if err := e.withSession(ctx, req, run); err != nil {
		// Failures outside the runtime, such as a lock wait or a store read, still end the stream.
		if !terminal {
			_ = emit(domain.Event{Type: domain.EventError, Content: err.Error()})
		}
		if partial.Len() > 0 {
			e.logTurn(ctx, req, ports.RoleAgent, partial.String())
		}
		return err
	}

	e.logTurn(ctx, req, ports.RoleAgent, final)
	return nil
}

func (e *Engine) withSession(ctx context.Context, req domain.TurnRequest, fn func(context.Context, *domain.SessionState) (*domain.SessionState, error)) error {
	if e.sessions == nil || req.ConversationID == "" {
		_, err := fn(ctx, nil)
		return err
	}
	return e.sessions.Run(ctx, req.ConversationID, fn)
}

func (e *Engine) userID(req domain.TurnRequest) string {
	switch {
	case req.UserID != "":
		return req.UserID
	case req.ConversationID != "":
		return req.ConversationID
	default:
		return uuid.NewString()
	}
}

func (e *Engine) logTurn(ctx context.Context, req domain.TurnRequest, role ports.Role, text string) {
	if e.turnLog == nil {
		return
	}
	err := e.turnLog.LogTurn(context.WithoutCancel(ctx), ports.TurnLogEntry{
		ConversationID: req.UserID,
		Role:           role,
		Text:           text,
		Group:          req.Group,
		StudentID:      req.StudentID,
	})
	if err != nil {
		e.logger.Warn("turn log failed", "conversation_id", req.ConversationID, "role", string(role), "err", err)
	}
}
