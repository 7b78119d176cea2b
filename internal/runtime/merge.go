package runtime

import (
	"github.com/aretw0/logicloom/internal/agents"
	"github.com/aretw0/logicloom/pkg/domain"
)

// Fixed texts added by the aggregator.
const (
	TransitionSentence = "\n\n**太棒了！我们已经梳理清楚了情境中的逻辑。下面让我们进入“新知学习”环节，看看如何用编程来实现这个逻辑吧！**"

	SuggestAfterScenario = "提示：理解了知识点后，我们可以开始设计算法逻辑。"
	SuggestHint          = "请给我一点提示"
	SuggestDeeper        = "我想深入了解一下"
	SuggestVariant       = "我想挑战变式题"
	SuggestReady         = "我准备好了"
)

// advanceRule moves the stage forward on the output of the handler that just ran.
type advanceRule struct {
	from       domain.Stage
	to         domain.Stage
	when       func(*domain.SessionState) bool
	response   func(*domain.SessionState) string
	suggestion string
}

var advanceRules = []advanceRule{
	{
		from:       domain.StageScenario,
		to:         domain.StageKnowledge,
		when:       func(s *domain.SessionState) bool { return s.Scenario.TaskClear },
		response:   func(s *domain.SessionState) string { return s.Scenario.Response + TransitionSentence },
		suggestion: SuggestAfterScenario,
	},
}

// Merge derives the shared output of a turn from the handler sub-records in s:
// stage auto-advance, active response, suggestions and concept diagram.
// Handler sub-records are left untouched.
func Merge(s *domain.SessionState) {
	stage := s.Stage
	var active string
	suggestions := []string{}

	for _, rule := range advanceRules {
		if stage == rule.from && rule.when(s) {
			stage = rule.to
			active = rule.response(s)
			suggestions = append(suggestions, rule.suggestion)
			break
		}
	}

	if active == "" {
		switch stage {
		case domain.StageScenario:
			active = s.Scenario.Response
			if active != "" {
				suggestions = append(suggestions, SuggestHint)
			}
		case domain.StageKnowledge:
			active = s.Knowledge.Response
			if active != "" {
				suggestions = append(suggestions, SuggestDeeper)
			}
		case domain.StageLogic, domain.StageCoding:
			active = s.Coding.Response
		case domain.StageAssessment:
			active = s.Assessment.Response
			if active != "" {
				suggestions = append(suggestions, SuggestVariant)
			}
		case domain.StageTransfer:
			active = s.Transfer.Response
			if active != "" && s.Transfer.SubStage != domain.TransferSummary {
				suggestions = append(suggestions, SuggestReady)
			}
		}
	}

	s.Stage = stage
	s.Shared = domain.SharedState{
		ActiveResponse: active,
		Suggestions:    suggestions,
		ConceptDiagram: diagramFor(s, stage),
	}
}

func diagramFor(s *domain.SessionState, stage domain.Stage) string {
	if stage == domain.StageScenario {
		return ""
	}
	if stage == domain.StageTransfer && s.Transfer.SubStage == domain.TransferSummary {
		return agents.FullCourseDiagram
	}
	if s.Knowledge.ConceptDiagram != "" {
		return s.Knowledge.ConceptDiagram
	}
	return agents.ConceptDiagram
}
