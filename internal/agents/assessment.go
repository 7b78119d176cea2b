package agents

import (
	"context"
	"strings"

	"github.com/aretw0/logicloom/internal/envelope"
	"github.com/aretw0/logicloom/internal/prompt"
	"github.com/aretw0/logicloom/pkg/domain"
)

type assessmentPayload struct {
	EvaluationScores    map[string]int `mapstructure:"evaluation_scores"`
	ReflectionSubStage  string         `mapstructure:"reflection_sub_stage"`
	ReflectionQuestions []string       `mapstructure:"reflection_questions"`
	VariantProblems     []string       `mapstructure:"variant_problems"`
	KnowledgeSummary    string         `mapstructure:"knowledge_summary"`
}

// Assessment is handler D. Without explicit code it assesses the first ```python block
// of the user's message.
func (h *Handlers) Assessment(ctx context.Context, t Turn, st domain.AssessmentState, call Caller) (domain.AssessmentState, Report, error) {
	if t.Stage != domain.StageAssessment {
		return st, Report{}, nil
	}

	code := AssessedCode(t)
	raw, _, err := h.invoke(ctx, domain.HandlerAssessment, prompt.Vars{
		Stage:       string(t.Stage),
		SubStage:    string(st.ReflectionSubStage),
		CurrentCode: code,
		UserInput:   t.UserInput,
		Context:     t.Context,
		CurrentTask: t.CurrentTask,
	}, call)
	if err != nil {
		return st, Report{}, err
	}

	env := envelope.Decode(raw)
	text, salvaged := reply(env)
	next := domain.AssessmentState{
		ReflectionSubStage: st.ReflectionSubStage,
		Response:           text,
	}

	if s, ok := env.(envelope.Structured); ok {
		var p assessmentPayload
		h.decodePayload(domain.HandlerAssessment, s, &p)
		next.EvaluationScores = p.EvaluationScores
		next.ReflectionQuestions = p.ReflectionQuestions
		next.VariantProblems = p.VariantProblems
		next.KnowledgeSummary = p.KnowledgeSummary
		if p.ReflectionSubStage != "" {
			next.ReflectionSubStage = domain.ReflectionSubStage(p.ReflectionSubStage)
		}
	}
	return next, Report{Called: true, Salvaged: salvaged}, nil
}

// AssessedCode returns the code under assessment: the explicit code when present,
// otherwise the first ```python block of the user input.
func AssessedCode(t Turn) string {
	if strings.TrimSpace(t.CurrentCode) != "" {
		return t.CurrentCode
	}
	if code, ok := envelope.FencedBlock(t.UserInput, "python"); ok {
		return code
	}
	return t.CurrentCode
}
