package domain

// TurnRequest is the transport-agnostic shape of one incoming turn.
// Pointer fields are optional: nil keeps the value already held by the session.
type TurnRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         string `json:"user_id,omitempty"` // turn log identity; generated when empty
	StudentID      string `json:"student_id,omitempty"`
	Group          string `json:"group,omitempty"`

	Stage       Stage  `json:"stage"`
	UserInput   string `json:"user_input"`
	Context     string `json:"context,omitempty"`
	CurrentTask string `json:"current_task,omitempty"`

	ScenarioSubStage   *ScenarioSubStage   `json:"agent_a_sub_stage,omitempty"`
	ScenarioTurnCount  *int                `json:"agent_a_turn_count,omitempty"`
	CodingSubStage     *CodingSubStage     `json:"agent_c_sub_stage,omitempty"`
	CodingPOEState     *POEState           `json:"agent_c_poe_state,omitempty"`
	CodingCurrentCode  *string             `json:"agent_c_current_code,omitempty"`
	ReflectionSubStage *ReflectionSubStage `json:"agent_d_reflection_sub_stage,omitempty"`
	TransferSubStage   *TransferSubStage   `json:"agent_e_sub_stage,omitempty"`
	TransferQuizIndex  *int                `json:"agent_e_quiz_index,omitempty"`
}

// Apply writes the request's visible fields and explicit sub-state values onto s.
func (r TurnRequest) Apply(s *SessionState) {
	if r.ConversationID != "" {
		s.ConversationID = r.ConversationID
	}
	s.Stage = r.Stage
	s.UserInput = r.UserInput
	s.Context = r.Context
	s.CurrentTask = r.CurrentTask

	if r.ScenarioSubStage != nil {
		s.Scenario.SubStage = *r.ScenarioSubStage
	}
	if r.ScenarioTurnCount != nil {
		s.Scenario.TurnCount = *r.ScenarioTurnCount
	}
	if r.CodingSubStage != nil {
		s.Coding.SubStage = *r.CodingSubStage
	}
	if r.CodingPOEState != nil {
		s.Coding.POEState = *r.CodingPOEState
	}
	if r.CodingCurrentCode != nil {
		s.Coding.CurrentCode = *r.CodingCurrentCode
	}
	if r.ReflectionSubStage != nil {
		s.Assessment.ReflectionSubStage = *r.ReflectionSubStage
	}
	if r.TransferSubStage != nil {
		s.Transfer.SubStage = *r.TransferSubStage
	}
	if r.TransferQuizIndex != nil {
		s.Transfer.QuizIndex = *r.TransferQuizIndex
	}
	s.Normalize()
}

// TurnResult is the outgoing shape of one processed turn, echoing every sub-state field
// the caller needs to send back next turn.
type TurnResult struct {
	ActiveResponse string   `json:"active_agent_response"`
	Stage          Stage    `json:"stage"`
	Suggestions    []string `json:"suggestions"`

	ScenarioSubStage  ScenarioSubStage `json:"agent_a_sub_stage"`
	ScenarioTurnCount int              `json:"agent_a_turn_count"`
	ScenarioText      string           `json:"agent_a_scenario_text,omitempty"`

	KnowledgeFlowchart string `json:"agent_b_flowchart_code,omitempty"`
	ConceptDiagram     string `json:"agent_b_concept_diagram"`

	CodingSubStage     CodingSubStage `json:"agent_c_sub_stage"`
	CodingPOEState     POEState       `json:"agent_c_poe_state"`
	CodingCurrentCode  string         `json:"agent_c_current_code"`
	CodingFlowchart    string         `json:"agent_c_flowchart_code,omitempty"`
	CodingCodeTemplate string         `json:"agent_c_code_template,omitempty"`

	ReflectionSubStage ReflectionSubStage `json:"agent_d_reflection_sub_stage"`
	EvaluationScores   map[string]int     `json:"agent_d_evaluation_scores,omitempty"`

	TransferSubStage  TransferSubStage `json:"agent_e_sub_stage"`
	TransferQuizIndex int              `json:"agent_e_quiz_index"`
	TransferTasks     []string         `json:"agent_e_transfer_tasks,omitempty"`

	ConversationID string `json:"conversation_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

// ResultFrom projects a merged session state into the outgoing turn result.
func ResultFrom(s *SessionState) TurnResult {
	suggestions := s.Shared.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return TurnResult{
		ActiveResponse:     s.Shared.ActiveResponse,
		Stage:              s.Stage,
		Suggestions:        suggestions,
		ScenarioSubStage:   s.Scenario.SubStage,
		ScenarioTurnCount:  s.Scenario.TurnCount,
		ScenarioText:       s.Scenario.ScenarioText,
		KnowledgeFlowchart: s.Knowledge.FlowchartCode,
		ConceptDiagram:     s.Shared.ConceptDiagram,
		CodingSubStage:     s.Coding.SubStage,
		CodingPOEState:     s.Coding.POEState,
		CodingCurrentCode:  s.Coding.CurrentCode,
		CodingFlowchart:    s.Coding.FlowchartCode,
		CodingCodeTemplate: s.Coding.CodeTemplate,
		ReflectionSubStage: s.Assessment.ReflectionSubStage,
		EvaluationScores:   s.Assessment.EvaluationScores,
		TransferSubStage:   s.Transfer.SubStage,
		TransferQuizIndex:  s.Transfer.QuizIndex,
		TransferTasks:      s.Transfer.TransferTasks,
		ConversationID:     s.ConversationID,
	}
}

// EventType is the kind of a streaming turn event.
type EventType string

const (
	EventToken EventType = "token"
	EventFinal EventType = "final"
	EventError EventType = "error"
)

// Event is one item of a streamed turn: zero or more tokens, then exactly one final or error.
type Event struct {
	Type    EventType
	Content string
	Result  *TurnResult
}
