package domain

// StateDiff represents the phase changes between two session states.
// It is designed to be serialized to JSON for logs and metrics.
type StateDiff struct {
	ConversationID string `json:"conversation_id,omitempty"`

	// Stage is set when the top-level stage changed.
	Stage *StageChange `json:"stage,omitempty"`

	// SubStages maps handler name to its new sub-stage, only for handlers whose sub-stage moved.
	SubStages map[string]string `json:"sub_stages,omitempty"`

	// QuizAdvanced is the new transfer quiz index if it moved.
	QuizAdvanced *int `json:"quiz_index,omitempty"`
}

// StageChange records a top-level stage transition.
type StageChange struct {
	From Stage `json:"from"`
	To   Stage `json:"to"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, every phase of newState is reported (initial load).
// It returns nil when nothing changed.
func Diff(oldState, newState *SessionState) *StateDiff {
	if newState == nil {
		return nil
	}
	if oldState == nil {
		oldState = &SessionState{}
	}

	diff := &StateDiff{ConversationID: newState.ConversationID}

	if oldState.Stage != newState.Stage {
		diff.Stage = &StageChange{From: oldState.Stage, To: newState.Stage}
	}

	subs := make(map[string]string)
	if oldState.Scenario.SubStage != newState.Scenario.SubStage {
		subs["scenario"] = string(newState.Scenario.SubStage)
	}
	if oldState.Coding.SubStage != newState.Coding.SubStage {
		subs["coding"] = string(newState.Coding.SubStage)
	}
	if oldState.Coding.POEState != newState.Coding.POEState {
		subs["poe"] = string(newState.Coding.POEState)
	}
	if oldState.Assessment.ReflectionSubStage != newState.Assessment.ReflectionSubStage {
		subs["assessment"] = string(newState.Assessment.ReflectionSubStage)
	}
	if oldState.Transfer.SubStage != newState.Transfer.SubStage {
		subs["transfer"] = string(newState.Transfer.SubStage)
	}
	if len(subs) > 0 {
		diff.SubStages = subs
	}

	if oldState.Transfer.QuizIndex != newState.Transfer.QuizIndex {
		idx := newState.Transfer.QuizIndex
		diff.QuizAdvanced = &idx
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.Stage == nil &&
		len(d.SubStages) == 0 &&
		d.QuizAdvanced == nil
}
