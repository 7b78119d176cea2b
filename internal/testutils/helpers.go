// Package testutils holds fixtures shared by package tests: a scripted completer
// and a minimal prompt set whose system prompts name their handler.
package testutils

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/logicloom/internal/prompt"
	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/aretw0/logicloom/pkg/ports"
	"github.com/stretchr/testify/require"
)

// SystemPrefix starts every system prompt built by PromptSet.
const SystemPrefix = "sys "

// PromptSet returns prompts for every handler with System "sys <handler>" and
// User "{{.UserInput}}". The transfer prompt carries one single-choice quiz.
func PromptSet(t *testing.T) *prompt.Set {
	t.Helper()
	var configs []ports.PromptConfig
	for _, h := range domain.Handlers {
		cfg := ports.PromptConfig{Name: string(h), System: SystemPrefix + string(h), User: "{{.UserInput}}"}
		if h == domain.HandlerTransfer {
			cfg.Quizzes = []domain.QuizEntry{{ID: "1", Type: "single", Question: "Q1?", Options: []string{"A", "B"}, Answer: "A"}}
		}
		configs = append(configs, cfg)
	}
	set, err := prompt.NewSet(configs...)
	require.NoError(t, err)
	return set
}

// Completer is a scripted ports.Completer. Replies are keyed by the handler named in the
// system prompt; streams are cut into Chunk-byte fragments.
type Completer struct {
	mu      sync.Mutex
	Replies map[domain.HandlerID]string
	Chunk   int
	Err     error
	calls   int
	users   []string
}

// NewCompleter creates a Completer with the given replies.
func NewCompleter(replies map[domain.HandlerID]string) *Completer {
	return &Completer{Replies: replies}
}

func (c *Completer) reply(system, user string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.users = append(c.users, user)
	if c.Err != nil {
		return "", c.Err
	}
	return c.Replies[domain.HandlerID(strings.TrimPrefix(system, SystemPrefix))], nil
}

// Calls returns how many completions were requested.
func (c *Completer) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// UserPrompts returns the rendered user prompts in call order.
func (c *Completer) UserPrompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.users...)
}

// Complete implements ports.Completer.
func (c *Completer) Complete(ctx context.Context, cfg ports.ModelConfig, system, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.reply(system, user)
}

// CompleteStream implements ports.Completer.
func (c *Completer) CompleteStream(ctx context.Context, cfg ports.ModelConfig, system, user string, onFragment func(string) error) (string, error) {
	full, err := c.Complete(ctx, cfg, system, user)
	if err != nil {
		return "", err
	}
	size := c.Chunk
	if size <= 0 {
		size = 3
	}
	for i := 0; i < len(full); i += size {
		end := min(i+size, len(full))
		if err := onFragment(full[i:end]); err != nil {
			return full[:end], err
		}
	}
	return full, nil
}
