package agents

import (
	"context"

	"github.com/aretw0/logicloom/internal/envelope"
	"github.com/aretw0/logicloom/internal/prompt"
	"github.com/aretw0/logicloom/pkg/domain"
)

// MaxScenarioTurns is the turn count at which the scenario task is forced clear.
const MaxScenarioTurns = 8

type scenarioPayload struct {
	TurnCount         *int     `mapstructure:"turn_count"`
	TaskClear         bool     `mapstructure:"is_task_clear"`
	SubStage          string   `mapstructure:"sub_stage"`
	ScenarioText      string   `mapstructure:"scenario_text"`
	TaskBreakdown     []string `mapstructure:"task_breakdown"`
	GuidanceQuestions []string `mapstructure:"guidance_questions"`
}

// Scenario is handler A. It counts turns and decides when the scenario task is clear.
func (h *Handlers) Scenario(ctx context.Context, t Turn, st domain.ScenarioState, call Caller) (domain.ScenarioState, Report, error) {
	if t.Stage != domain.StageScenario {
		return st, Report{}, nil
	}

	raw, _, err := h.invoke(ctx, domain.HandlerScenario, prompt.Vars{
		Stage:       string(t.Stage),
		SubStage:    string(st.SubStage),
		UserInput:   t.UserInput,
		Context:     t.Context,
		CurrentTask: t.CurrentTask,
		TurnCount:   st.TurnCount,
	}, call)
	if err != nil {
		return st, Report{}, err
	}

	env := envelope.Decode(raw)
	text, salvaged := reply(env)
	next := domain.ScenarioState{
		SubStage:  st.SubStage,
		TurnCount: st.TurnCount + 1,
		Response:  text,
	}

	if s, ok := env.(envelope.Structured); ok {
		var p scenarioPayload
		h.decodePayload(domain.HandlerScenario, s, &p)
		if p.TurnCount != nil {
			next.TurnCount = *p.TurnCount
		}
		if p.SubStage != "" {
			next.SubStage = domain.ScenarioSubStage(p.SubStage)
		}
		next.TaskClear = p.TaskClear
		next.ScenarioText = p.ScenarioText
		next.TaskBreakdown = p.TaskBreakdown
		next.GuidanceQuestions = p.GuidanceQuestions
	}

	if next.TurnCount >= MaxScenarioTurns && !next.TaskClear {
		h.logger.Debug("turn limit reached, forcing task clear", "handler", domain.HandlerScenario, "turn_count", next.TurnCount)
		next.TaskClear = true
	}
	return next, Report{Called: true, Salvaged: salvaged}, nil
}
