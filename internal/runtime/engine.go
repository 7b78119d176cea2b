// Package runtime runs one tutoring turn: route the stage to a handler, run it, merge.
package runtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/logicloom/internal/agents"
	"github.com/aretw0/logicloom/internal/logging"
	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/aretw0/logicloom/pkg/extract"
	"github.com/aretw0/logicloom/pkg/ports"
)

// Engine dispatches turns directly to the single routed handler.
// It holds no per-conversation state and is safe for concurrent use across conversations.
type Engine struct {
	completer ports.Completer
	handlers  *agents.Handlers
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine over a completion boundary and the stage handlers.
func NewEngine(completer ports.Completer, handlers *agents.Handlers, opts ...EngineOption) *Engine {
	e := &Engine{
		completer: completer,
		handlers:  handlers,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Turn processes one turn without streaming.
// state is never modified; on success the returned state is the next session snapshot.
func (e *Engine) Turn(ctx context.Context, state *domain.SessionState, req domain.TurnRequest) (*domain.SessionState, domain.TurnResult, error) {
	call := func(ctx context.Context, cfg ports.ModelConfig, system, user string) (string, error) {
		return e.completer.Complete(ctx, cfg, system, user)
	}
	next, err := e.run(ctx, state, req, call, false)
	if err != nil {
		return nil, domain.TurnResult{}, err
	}
	return next, domain.ResultFrom(next), nil
}

// Stream processes one turn, sending the "response" text to emit as token events while
// the model is still writing. Exactly one final or error event follows the tokens.
// An error returned by emit aborts the turn.
func (e *Engine) Stream(ctx context.Context, state *domain.SessionState, req domain.TurnRequest, emit func(domain.Event) error) (*domain.SessionState, error) {
	call := func(ctx context.Context, cfg ports.ModelConfig, system, user string) (string, error) {
		ex := extract.New(extract.DefaultField)
		return e.completer.CompleteStream(ctx, cfg, system, user, func(fragment string) error {
			token := ex.Feed(fragment)
			if token == "" {
				return nil
			}
			if e.hooks.OnStreamToken != nil {
				e.hooks.OnStreamToken(ctx, token)
			}
			return emit(domain.Event{Type: domain.EventToken, Content: token})
		})
	}

	next, err := e.run(ctx, state, req, call, true)
	if err != nil {
		if emitErr := emit(domain.Event{Type: domain.EventError, Content: err.Error()}); emitErr != nil {
			e.logger.Debug("error event not delivered", "err", emitErr)
		}
		return nil, err
	}

	result := domain.ResultFrom(next)
	if err := emit(domain.Event{Type: domain.EventFinal, Result: &result}); err != nil {
		return nil, err
	}
	return next, nil
}

func (e *Engine) run(ctx context.Context, state *domain.SessionState, req domain.TurnRequest, call agents.Caller, streaming bool) (*domain.SessionState, error) {
	var s *domain.SessionState
	if state == nil {
		s = domain.NewSessionState()
	} else {
		s = state.Clone()
	}
	req.Apply(s)
	declared := s.Clone()

	base := domain.EventBase{Timestamp: time.Now(), ConversationID: s.ConversationID, Stage: s.Stage}
	if e.hooks.OnTurnStart != nil {
		e.hooks.OnTurnStart(ctx, &domain.TurnEvent{EventBase: base, Streaming: streaming})
	}

	err := e.dispatch(ctx, s, call)
	if err == nil {
		Merge(s)
	}

	end := &domain.TurnEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), ConversationID: s.ConversationID, Stage: s.Stage},
		Streaming: streaming,
		Err:       err,
	}
	if err != nil {
		e.logger.Error("turn failed", "conversation_id", s.ConversationID, "stage", declared.Stage, "err", err)
	} else {
		end.Diff = domain.Diff(declared, s)
		e.logger.Info("turn completed", "conversation_id", s.ConversationID, "stage", s.Stage, "handler", Route(declared.Stage))
	}
	if e.hooks.OnTurnEnd != nil {
		e.hooks.OnTurnEnd(ctx, end)
	}

	if err != nil {
		return nil, err
	}
	return s, nil
}

// dispatch runs the routed handler on its own sub-record of s.
func (e *Engine) dispatch(ctx context.Context, s *domain.SessionState, call agents.Caller) error {
	t := agents.TurnFrom(s)
	id := Route(s.Stage)
	start := time.Now()

	var (
		rep agents.Report
		err error
	)
	switch id {
	case domain.HandlerKnowledge:
		s.Knowledge, rep, err = e.handlers.Knowledge(ctx, t, s.Knowledge, call)
	case domain.HandlerCoding:
		s.Coding, rep, err = e.handlers.Coding(ctx, t, s.Coding, call)
	case domain.HandlerAssessment:
		s.Assessment, rep, err = e.handlers.Assessment(ctx, t, s.Assessment, call)
	case domain.HandlerTransfer:
		s.Transfer, rep, err = e.handlers.Transfer(ctx, t, s.Transfer, call)
	default:
		s.Scenario, rep, err = e.handlers.Scenario(ctx, t, s.Scenario, call)
	}

	if rep.Salvaged {
		e.logger.Debug("model reply salvaged", "conversation_id", s.ConversationID, "handler", id)
	}
	if e.hooks.OnHandlerDone != nil && (rep.Called || err != nil) {
		e.hooks.OnHandlerDone(ctx, &domain.HandlerEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), ConversationID: s.ConversationID, Stage: s.Stage},
			Handler:   string(id),
			Duration:  time.Since(start),
			Salvaged:  rep.Salvaged,
			Err:       err,
		})
	}
	if errors.Is(err, context.Canceled) {
		e.logger.Debug("turn cancelled", "conversation_id", s.ConversationID)
	}
	return err
}
