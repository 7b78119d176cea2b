package ports

import (
	"context"

	"github.com/aretw0/logicloom/pkg/domain"
)

// StateStore defines the interface for persisting conversation state between turns.
type StateStore interface {
	// Save persists the state for a given conversation ID.
	Save(ctx context.Context, conversationID string, state *domain.SessionState) error

	// Load retrieves the state for a given conversation ID.
	// Returns domain.ErrSessionNotFound if the conversation does not exist.
	Load(ctx context.Context, conversationID string) (*domain.SessionState, error)

	// Delete removes the state for a given conversation ID.
	Delete(ctx context.Context, conversationID string) error

	// List returns the IDs of stored conversations.
	List(ctx context.Context) ([]string, error)
}
