package runner

import (
	"log/slog"

	"github.com/aretw0/logicloom/pkg/domain"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.handler = handler
	}
}

// WithHeadless sets the runner to headless mode: no banner, no markdown
// rendering and /run is approved without asking.
func WithHeadless(headless bool) Option {
	return func(r *Runner) {
		r.headless = headless
	}
}

// WithInitialRequest seeds the first turn: stage, identity fields and any sub-state.
// When ConversationID is set the engine's store keeps the session as well.
func WithInitialRequest(req domain.TurnRequest) Option {
	return func(r *Runner) {
		r.next = req
	}
}

// WithCodeRunner enables the /run command.
func WithCodeRunner(cr CodeRunner) Option {
	return func(r *Runner) {
		r.code = cr
	}
}

// WithInterceptor configures the /run policy.
func WithInterceptor(interceptor CodeInterceptor) Option {
	return func(r *Runner) {
		r.interceptor = interceptor
	}
}
