package runner

import (
	"context"

	"github.com/aretw0/logicloom/pkg/adapters/sandbox"
	"github.com/aretw0/logicloom/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (terminal) and JSON (structured) modes.
type IOHandler interface {
	// Input reads one line from the user.
	Input(ctx context.Context) (string, error)

	// Token presents a reply fragment as soon as it arrives.
	Token(ctx context.Context, fragment string) error

	// Reply presents the final result of a turn.
	Reply(ctx context.Context, res domain.TurnResult) error

	// SystemOutput presents a meta-message to the user (command output, errors, status).
	// This is distinct from tutor content.
	SystemOutput(ctx context.Context, msg string) error
}

// Engine is the streaming turn operation the runner drives.
type Engine interface {
	Stream(ctx context.Context, req domain.TurnRequest, emit func(domain.Event) error) error
}

// CodeRunner executes learner code for the /run command.
type CodeRunner interface {
	Run(ctx context.Context, code string, inputs []string) (sandbox.Result, error)
}
