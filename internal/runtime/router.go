package runtime

import "github.com/aretw0/logicloom/pkg/domain"

// Route maps a stage to the one handler that serves it.
// It is total: unknown or empty stages go to the scenario handler.
func Route(stage domain.Stage) domain.HandlerID {
	switch stage {
	case domain.StageKnowledge:
		return domain.HandlerKnowledge
	case domain.StageLogic, domain.StageCoding:
		return domain.HandlerCoding
	case domain.StageAssessment:
		return domain.HandlerAssessment
	case domain.StageTransfer:
		return domain.HandlerTransfer
	default:
		return domain.HandlerScenario
	}
}
