package ports

import (
	"context"
	"time"
)

// Role identifies the author of a logged turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// TurnLogEntry is one logged message.
type TurnLogEntry struct {
	ConversationID string
	Role           Role
	Text           string
	Group          string // "experimental" (default) or "control"
	StudentID      string
	CreatedAt      time.Time
}

// TurnLogger records turns. Callers treat failures as non-fatal.
type TurnLogger interface {
	LogTurn(ctx context.Context, entry TurnLogEntry) error
}
