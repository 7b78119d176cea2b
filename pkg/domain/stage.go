package domain

// Stage is the top-level phase of the tutoring flow.
type Stage string

const (
	StageScenario   Stage = "scenario"
	StageKnowledge  Stage = "knowledge"
	StageLogic      Stage = "logic"
	StageCoding     Stage = "coding"
	StageAssessment Stage = "assessment"
	StageTransfer   Stage = "transfer"
)

// Stages lists the closed set of known stages in flow order.
var Stages = []Stage{
	StageScenario,
	StageKnowledge,
	StageLogic,
	StageCoding,
	StageAssessment,
	StageTransfer,
}

// Known reports whether s belongs to the closed set.
func (s Stage) Known() bool {
	for _, k := range Stages {
		if s == k {
			return true
		}
	}
	return false
}

// ScenarioSubStage is the presentation phase owned by the scenario handler.
type ScenarioSubStage string

const (
	ScenarioPresentation ScenarioSubStage = "presentation"
	ScenarioExtraction   ScenarioSubStage = "extraction"
	ScenarioModelInput   ScenarioSubStage = "model_input"
	ScenarioModelLogic   ScenarioSubStage = "model_logic"
	ScenarioSummary      ScenarioSubStage = "summary"
)

// CodingSubStage is the phase owned by the logic/coding handler.
type CodingSubStage string

const (
	CodingFlowchart CodingSubStage = "flowchart"
	CodingCoding    CodingSubStage = "coding"
	CodingDebugging CodingSubStage = "debugging"
)

// POEState is the predict-observe-explain instructional state of the coding handler.
type POEState string

const (
	POENone    POEState = "none"
	POEPredict POEState = "predict"
	POEObserve POEState = "observe"
	POEExplain POEState = "explain"
)

// ReflectionSubStage is the phase owned by the assessment handler.
type ReflectionSubStage string

const (
	ReflectionRecall   ReflectionSubStage = "recall"
	ReflectionDiagnose ReflectionSubStage = "diagnose"
	ReflectionOptimize ReflectionSubStage = "optimize"
)

// TransferSubStage is the phase of the transfer handler's sub-machine.
type TransferSubStage string

const (
	TransferIntro     TransferSubStage = "intro"
	TransferQuiz      TransferSubStage = "quiz"
	TransferChallenge TransferSubStage = "challenge"
	TransferSummary   TransferSubStage = "summary"
)

// ParseStage converts a wire value to a Stage. It never fails: unknown values are kept
// verbatim and the router sends them to its default handler.
func ParseStage(s string) Stage {
	return Stage(s)
}
