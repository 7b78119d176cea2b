package ports

import "context"

// ModelConfig selects and tunes the model behind a completion call.
// It is a comparable value so it can key a client cache.
type ModelConfig struct {
	Model       string  `json:"model" yaml:"name" mapstructure:"name"`
	Temperature float32 `json:"temperature" yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`
}

// Completer is the external text-completion boundary: prompt in, text out.
type Completer interface {
	// Complete sends a system and user prompt and returns the full reply.
	Complete(ctx context.Context, cfg ModelConfig, system, user string) (string, error)

	// CompleteStream delivers reply fragments to onFragment in arrival order and returns
	// the concatenated text once the stream ends. An error returned by onFragment aborts the stream.
	CompleteStream(ctx context.Context, cfg ModelConfig, system, user string, onFragment func(string) error) (string, error)
}
