package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/aretw0/logicloom/pkg/ports"
)

// Vars are the turn-visible fields a prompt template can reference, e.g. {{.UserInput}}.
type Vars struct {
	Stage       string
	SubStage    string
	UserInput   string
	Context     string
	CurrentTask string
	TurnCount   int
	POEState    string
	CurrentCode string
	CurrentQuiz string
}

func parse(name, text string) (*template.Template, error) {
	return template.New(name).Option("missingkey=error").Parse(text)
}

// Render executes the system and user templates of cfg with v.
func Render(cfg ports.PromptConfig, v Vars) (system, user string, err error) {
	system, err = execute(cfg.Name+".system", cfg.System, v)
	if err != nil {
		return "", "", err
	}
	user, err = execute(cfg.Name+".user", cfg.User, v)
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

func execute(name, text string, v Vars) (string, error) {
	t, err := parse(name, text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	var b strings.Builder
	if err := t.Execute(&b, v); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return b.String(), nil
}
