// Package llm provides the completion clients behind ports.Completer.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/logicloom/internal/logging"
	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/aretw0/logicloom/pkg/ports"
)

// Model is a completion client bound to one model configuration.
type Model interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Stream(ctx context.Context, system, user string, onFragment func(string) error) (string, error)
}

// Factory builds the Model for a configuration. It is called once per distinct configuration.
type Factory func(cfg ports.ModelConfig) (Model, error)

// Registry caches one Model per ModelConfig and implements ports.Completer over them.
// Lookups are safe for concurrent use; entries are never mutated once created.
type Registry struct {
	factory       Factory
	modelOverride string
	timeout       time.Duration
	logger        *slog.Logger

	mu      sync.RWMutex
	clients map[ports.ModelConfig]Model
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithModelOverride forces every configuration onto the given model name.
// An empty name leaves prompt-configured models alone.
func WithModelOverride(model string) RegistryOption {
	return func(r *Registry) {
		r.modelOverride = model
	}
}

// WithTimeout bounds each completion call. Zero means no timeout.
func WithTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.timeout = d
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry over factory.
func NewRegistry(factory Factory, opts ...RegistryOption) *Registry {
	r := &Registry{
		factory: factory,
		logger:  logging.NewNop(),
		clients: make(map[ports.ModelConfig]Model),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve applies the model override to cfg. The result is the cache key.
func (r *Registry) Resolve(cfg ports.ModelConfig) ports.ModelConfig {
	if r.modelOverride != "" {
		cfg.Model = r.modelOverride
	}
	return cfg
}

// Client returns the cached Model for cfg, creating it on first use.
func (r *Registry) Client(cfg ports.ModelConfig) (Model, error) {
	key := r.Resolve(cfg)

	r.mu.RLock()
	m, ok := r.clients[key]
	r.mu.RUnlock()
	if ok {
		return m, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.clients[key]; ok {
		return m, nil
	}
	m, err := r.factory(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", key.Model, err)
	}
	r.clients[key] = m
	r.logger.Debug("model client created", "model", key.Model, "temperature", key.Temperature, "max_tokens", key.MaxTokens)
	return m, nil
}

// Len reports the number of cached clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Complete implements ports.Completer.
func (r *Registry) Complete(ctx context.Context, cfg ports.ModelConfig, system, user string) (string, error) {
	m, err := r.Client(cfg)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrCompletion, err)
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	text, err := m.Complete(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrCompletion, err)
	}
	return text, nil
}

// CompleteStream implements ports.Completer.
func (r *Registry) CompleteStream(ctx context.Context, cfg ports.ModelConfig, system, user string, onFragment func(string) error) (string, error) {
	m, err := r.Client(cfg)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrCompletion, err)
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	text, err := m.Stream(ctx, system, user, onFragment)
	if err != nil {
		return text, fmt.Errorf("%w: %w", domain.ErrCompletion, err)
	}
	return text, nil
}

func (r *Registry) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}
