package domain

import (
	"context"
	"time"
)

// EventBase contains common fields for all lifecycle events.
type EventBase struct {
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversation_id"`
	Stage          Stage     `json:"stage"`
}

// HandlerEvent reports one stage handler invocation.
type HandlerEvent struct {
	EventBase
	Handler  string        `json:"handler"`
	Duration time.Duration `json:"duration"`
	Salvaged bool          `json:"salvaged,omitempty"` // model output was not well-formed JSON
	Err      error         `json:"-"`
}

// TurnEvent reports the outcome of a whole turn.
type TurnEvent struct {
	EventBase
	Streaming bool       `json:"streaming"`
	Diff      *StateDiff `json:"diff,omitempty"`
	Err       error      `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Every hook is optional.
type LifecycleHooks struct {
	OnTurnStart   func(context.Context, *TurnEvent)
	OnHandlerDone func(context.Context, *HandlerEvent)
	OnTurnEnd     func(context.Context, *TurnEvent)
	OnStreamToken func(context.Context, string)
}

// ChainHooks merges several hook sets; each callback runs in argument order.
func ChainHooks(sets ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range sets {
		out.OnTurnStart = chain(out.OnTurnStart, h.OnTurnStart)
		out.OnHandlerDone = chain(out.OnHandlerDone, h.OnHandlerDone)
		out.OnTurnEnd = chain(out.OnTurnEnd, h.OnTurnEnd)
		out.OnStreamToken = chain(out.OnStreamToken, h.OnStreamToken)
	}
	return out
}

func chain[T any](a, b func(context.Context, T)) func(context.Context, T) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, v T) {
		a(ctx, v)
		b(ctx, v)
	}
}
