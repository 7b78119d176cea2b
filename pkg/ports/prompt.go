package ports

import "github.com/aretw0/logicloom/pkg/domain"

// PromptConfig is the prompt configuration of one stage handler.
type PromptConfig struct {
	Name      string             `json:"name" yaml:"name"`
	System    string             `json:"system" yaml:"system"`
	User      string             `json:"user" yaml:"user" validate:"required"`
	Model     ModelConfig        `json:"model" yaml:"model"`
	Quizzes   []domain.QuizEntry `json:"quizzes,omitempty" yaml:"quizzes,omitempty" validate:"dive"`
	Auxiliary map[string]string  `json:"auxiliary,omitempty" yaml:"auxiliary,omitempty"`
}

// PromptSource supplies handler prompt configurations by handler name.
// Implementations are read-only after construction and safe for concurrent use.
type PromptSource interface {
	Prompt(handler string) (PromptConfig, error)
}
