package domain

// QuizEntry is a static quiz bank item loaded from configuration.
// It is never mutated at runtime; the transfer handler only moves its own index over the bank.
type QuizEntry struct {
	ID          string   `json:"id" yaml:"id" mapstructure:"id" validate:"required"`
	Type        string   `json:"type" yaml:"type" mapstructure:"type"`
	Question    string   `json:"question" yaml:"question" mapstructure:"question" validate:"required"`
	Options     []string `json:"options" yaml:"options" mapstructure:"options"`
	Answer      string   `json:"answer" yaml:"answer" mapstructure:"answer" validate:"required"`
	Explanation string   `json:"explanation" yaml:"explanation" mapstructure:"explanation"`
}
