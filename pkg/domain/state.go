package domain

import "maps"

// ScenarioState is owned by the scenario handler (A).
type ScenarioState struct {
	SubStage          ScenarioSubStage `json:"sub_stage"`
	TurnCount         int              `json:"turn_count"`
	TaskClear         bool             `json:"task_clear"`
	Response          string           `json:"response,omitempty"`
	ScenarioText      string           `json:"scenario_text,omitempty"`
	TaskBreakdown     []string         `json:"task_breakdown,omitempty"`
	GuidanceQuestions []string         `json:"guidance_questions,omitempty"`
}

// KnowledgeState is owned by the knowledge handler (B).
type KnowledgeState struct {
	Response           string `json:"response,omitempty"`
	ConceptExplanation string `json:"concept_explanation,omitempty"`
	FlowchartCode      string `json:"flowchart_code,omitempty"`
	ConceptDiagram     string `json:"concept_diagram,omitempty"`
	CorrectionFeedback string `json:"correction_feedback,omitempty"`
}

// CodingState is owned by the logic/coding handler (C).
type CodingState struct {
	SubStage          CodingSubStage `json:"sub_stage"`
	POEState          POEState       `json:"poe_state"`
	CurrentCode       string         `json:"current_code,omitempty"`
	Response          string         `json:"response,omitempty"`
	CodeTemplate      string         `json:"code_template,omitempty"`
	SyntaxErrors      []string       `json:"syntax_errors,omitempty"`
	POEQuestions      []string       `json:"poe_questions,omitempty"`
	ExecutionFeedback string         `json:"execution_feedback,omitempty"`
	FlowchartCode     string         `json:"flowchart_code,omitempty"`
}

// AssessmentState is owned by the assessment handler (D).
type AssessmentState struct {
	ReflectionSubStage  ReflectionSubStage `json:"reflection_sub_stage"`
	Response            string             `json:"response,omitempty"`
	EvaluationScores    map[string]int     `json:"evaluation_scores,omitempty"`
	ReflectionQuestions []string           `json:"reflection_questions,omitempty"`
	VariantProblems     []string           `json:"variant_problems,omitempty"`
	KnowledgeSummary    string             `json:"knowledge_summary,omitempty"`
}

// TransferState is owned by the transfer handler (E).
type TransferState struct {
	SubStage      TransferSubStage `json:"sub_stage"`
	QuizIndex     int              `json:"quiz_index"`
	Passed        bool             `json:"passed,omitempty"`
	Response      string           `json:"response,omitempty"`
	TransferTasks []string         `json:"transfer_tasks,omitempty"`
	Guidance      string           `json:"guidance,omitempty"`
}

// SharedState holds fields derived by the aggregator only.
type SharedState struct {
	ActiveResponse string   `json:"active_response"`
	Suggestions    []string `json:"suggestions"`
	ConceptDiagram string   `json:"concept_diagram,omitempty"`
}

// SessionState is the per-conversation record threaded through router, handler and aggregator.
// Each handler sub-record is written only by its owner and the aggregator.
type SessionState struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Stage          Stage  `json:"stage"`
	UserInput      string `json:"user_input"`
	Context        string `json:"context,omitempty"`
	CurrentTask    string `json:"current_task,omitempty"`

	Scenario   ScenarioState   `json:"scenario"`
	Knowledge  KnowledgeState  `json:"knowledge"`
	Coding     CodingState     `json:"coding"`
	Assessment AssessmentState `json:"assessment"`
	Transfer   TransferState   `json:"transfer"`

	Shared SharedState `json:"shared"`
}

// NewSessionState creates a session with every default field value.
func NewSessionState() *SessionState {
	return &SessionState{
		Stage: StageScenario,
		Scenario: ScenarioState{
			SubStage: ScenarioPresentation,
		},
		Coding: CodingState{
			SubStage: CodingFlowchart,
			POEState: POENone,
		},
		Assessment: AssessmentState{
			ReflectionSubStage: ReflectionRecall,
		},
		Transfer: TransferState{
			SubStage: TransferIntro,
		},
	}
}

// Normalize fills empty enum fields with their defaults and clamps a negative quiz index to 0.
// Sessions decoded from older payloads or partial requests rely on it.
func (s *SessionState) Normalize() {
	if s.Scenario.SubStage == "" {
		s.Scenario.SubStage = ScenarioPresentation
	}
	if s.Coding.SubStage == "" {
		s.Coding.SubStage = CodingFlowchart
	}
	if s.Coding.POEState == "" {
		s.Coding.POEState = POENone
	}
	if s.Assessment.ReflectionSubStage == "" {
		s.Assessment.ReflectionSubStage = ReflectionRecall
	}
	if s.Transfer.SubStage == "" {
		s.Transfer.SubStage = TransferIntro
	}
	if s.Transfer.QuizIndex < 0 {
		s.Transfer.QuizIndex = 0
	}
}

// Clone returns a deep copy so a failed turn never leaks partial mutations.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	c := *s
	c.Scenario.TaskBreakdown = cloneStrings(s.Scenario.TaskBreakdown)
	c.Scenario.GuidanceQuestions = cloneStrings(s.Scenario.GuidanceQuestions)
	c.Coding.SyntaxErrors = cloneStrings(s.Coding.SyntaxErrors)
	c.Coding.POEQuestions = cloneStrings(s.Coding.POEQuestions)
	c.Assessment.ReflectionQuestions = cloneStrings(s.Assessment.ReflectionQuestions)
	c.Assessment.VariantProblems = cloneStrings(s.Assessment.VariantProblems)
	c.Assessment.EvaluationScores = maps.Clone(s.Assessment.EvaluationScores)
	c.Transfer.TransferTasks = cloneStrings(s.Transfer.TransferTasks)
	c.Shared.Suggestions = cloneStrings(s.Shared.Suggestions)
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
