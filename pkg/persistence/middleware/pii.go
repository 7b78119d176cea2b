package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/aretw0/logicloom/pkg/ports"
)

// Mask replaces every match of a PII pattern.
const Mask = "***"

// DefaultPIIPatterns match e-mail addresses, mainland China mobile numbers and
// 18-character resident ID numbers.
var DefaultPIIPatterns = []string{
	`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`,
	`\b1[3-9]\d{9}\b`,
	`\b\d{17}[\dXx]\b`,
}

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks pattern matches in the free-text
// fields a learner writes (input, context, current task) before they are stored.
// Code and model replies are left alone.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, conversationID string, state *domain.SessionState) error {
	// the engine keeps using state, so mask a copy
	cloned := state.Clone()
	cloned.UserInput = m.mask(cloned.UserInput)
	cloned.Context = m.mask(cloned.Context)
	cloned.CurrentTask = m.mask(cloned.CurrentTask)
	return m.next.Save(ctx, conversationID, cloned)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}

func (m *piiMiddleware) Load(ctx context.Context, conversationID string) (*domain.SessionState, error) {
	return m.next.Load(ctx, conversationID)
}

func (m *piiMiddleware) Delete(ctx context.Context, conversationID string) error {
	return m.next.Delete(ctx, conversationID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
