package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSessionState_Defaults(t *testing.T) {
	s := NewSessionState()

	assert.Equal(t, StageScenario, s.Stage)
	assert.Equal(t, ScenarioPresentation, s.Scenario.SubStage)
	assert.Equal(t, 0, s.Scenario.TurnCount)
	assert.Equal(t, CodingFlowchart, s.Coding.SubStage)
	assert.Equal(t, POENone, s.Coding.POEState)
	assert.Equal(t, ReflectionRecall, s.Assessment.ReflectionSubStage)
	assert.Equal(t, TransferIntro, s.Transfer.SubStage)
	assert.Equal(t, 0, s.Transfer.QuizIndex)
}

func TestSessionState_CloneIsolation(t *testing.T) {
	s := NewSessionState()
	s.Assessment.EvaluationScores = map[string]int{"logic": 3}
	s.Scenario.TaskBreakdown = []string{"a"}

	c := s.Clone()
	c.Assessment.EvaluationScores["logic"] = 5
	c.Scenario.TaskBreakdown[0] = "b"

	assert.Equal(t, 3, s.Assessment.EvaluationScores["logic"])
	assert.Equal(t, "a", s.Scenario.TaskBreakdown[0])
}

func TestTurnRequest_Apply(t *testing.T) {
	count := 4
	sub := TransferQuiz
	s := NewSessionState()
	s.Coding.CurrentCode = "print(1)"

	TurnRequest{
		Stage:             StageTransfer,
		UserInput:         "B",
		ScenarioTurnCount: &count,
		TransferSubStage:  &sub,
	}.Apply(s)

	assert.Equal(t, StageTransfer, s.Stage)
	assert.Equal(t, "B", s.UserInput)
	assert.Equal(t, 4, s.Scenario.TurnCount)
	assert.Equal(t, TransferQuiz, s.Transfer.SubStage)
	assert.Equal(t, "print(1)", s.Coding.CurrentCode, "nil fields keep the stored value")
}

func TestStage_Known(t *testing.T) {
	assert.True(t, StageCoding.Known())
	assert.False(t, Stage("").Known())
	assert.False(t, Stage("unknown").Known())
}

func TestTurnRequest_ApplyClampsQuizIndex(t *testing.T) {
	s := NewSessionState()
	idx := -1
	sub := TransferQuiz
	TurnRequest{Stage: StageTransfer, TransferSubStage: &sub, TransferQuizIndex: &idx}.Apply(s)

	assert.Equal(t, TransferQuiz, s.Transfer.SubStage)
	assert.Equal(t, 0, s.Transfer.QuizIndex)
}
