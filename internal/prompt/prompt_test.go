package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/aretw0/logicloom/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scenario.yaml", `
system: "turn {{.TurnCount}}"
user: "{{.UserInput}}"
model:
  name: custom
  temperature: 0
`)
	writeFile(t, dir, "transfer.json", `{
  "system": "s",
  "user": "{{.CurrentQuiz}}",
  "quizzes": [{"id": "1", "type": "single", "question": "Q?", "options": ["A", "B"], "answer": "A"}],
  "auxiliary": {"final_challenge": "go"}
}`)

	set, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []domain.HandlerID{domain.HandlerScenario, domain.HandlerTransfer}, set.Handlers())

	sc, err := set.Prompt("scenario")
	require.NoError(t, err)
	assert.Equal(t, "custom", sc.Model.Model)
	assert.Equal(t, float32(0), sc.Model.Temperature, "explicit zero is kept")
	assert.Equal(t, DefaultMaxTokens, sc.Model.MaxTokens)

	tr, err := set.Prompt("transfer")
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, tr.Model.Model)
	assert.Equal(t, float32(DefaultTemperature), tr.Model.Temperature)
	require.Len(t, tr.Quizzes, 1)
	assert.Equal(t, "Q?", tr.Quizzes[0].Question)
	assert.Equal(t, "go", tr.Auxiliary[FinalChallengeKey])

	_, err = set.Prompt("knowledge")
	assert.ErrorIs(t, err, domain.ErrPromptNotFound)
}

func TestLoadDir_Empty(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	assert.Error(t, err)
}

func TestLoadDir_Samples(t *testing.T) {
	set, err := LoadDir(filepath.Join("..", "..", "prompts"))
	require.NoError(t, err)
	assert.Equal(t, domain.Handlers, set.Handlers())

	tr, err := set.Prompt(string(domain.HandlerTransfer))
	require.NoError(t, err)
	assert.NotEmpty(t, tr.Quizzes)
	assert.NotEmpty(t, tr.Auxiliary[FinalChallengeKey])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ports.PromptConfig
		wantErr bool
	}{
		{"Valid", ports.PromptConfig{Name: "a", User: "{{.UserInput}}"}, false},
		{"Missing User", ports.PromptConfig{Name: "a"}, true},
		{"Bad Template", ports.PromptConfig{Name: "a", User: "{{.UserInput"}, true},
		{"Temperature Too High", ports.PromptConfig{Name: "a", User: "u", Model: ports.ModelConfig{Temperature: 3}}, true},
		{"Quiz Without Answer", ports.PromptConfig{Name: "a", User: "u", Quizzes: []domain.QuizEntry{{ID: "1", Question: "q"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRender(t *testing.T) {
	cfg := ports.PromptConfig{
		Name:   "scenario",
		System: "turn={{.TurnCount}}",
		User:   "{{.Stage}}/{{.SubStage}}: {{.UserInput}}",
	}
	system, user, err := Render(cfg, Vars{Stage: "scenario", SubStage: "presentation", UserInput: "hi", TurnCount: 2})
	require.NoError(t, err)
	assert.Equal(t, "turn=2", system)
	assert.Equal(t, "scenario/presentation: hi", user)

	_, _, err = Render(ports.PromptConfig{Name: "x", User: "{{.Unknown}}"}, Vars{})
	assert.Error(t, err)
}
