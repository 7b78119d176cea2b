package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	two := 2

	tests := []struct {
		name     string
		old      *SessionState
		new      *SessionState
		wantDiff *StateDiff
	}{
		{
			name:     "No Changes",
			old:      NewSessionState(),
			new:      NewSessionState(),
			wantDiff: nil,
		},
		{
			name: "Stage Auto-Advance",
			old:  NewSessionState(),
			new: func() *SessionState {
				s := NewSessionState()
				s.Stage = StageKnowledge
				return s
			}(),
			wantDiff: &StateDiff{
				Stage: &StageChange{From: StageScenario, To: StageKnowledge},
			},
		},
		{
			name: "Transfer Quiz Progress",
			old: func() *SessionState {
				s := NewSessionState()
				s.Stage = StageTransfer
				s.Transfer.SubStage = TransferQuiz
				s.Transfer.QuizIndex = 1
				return s
			}(),
			new: func() *SessionState {
				s := NewSessionState()
				s.Stage = StageTransfer
				s.Transfer.SubStage = TransferChallenge
				s.Transfer.QuizIndex = 2
				return s
			}(),
			wantDiff: &StateDiff{
				SubStages:    map[string]string{"transfer": "challenge"},
				QuizAdvanced: &two,
			},
		},
		{
			name: "Ignores Response Text",
			old:  NewSessionState(),
			new: func() *SessionState {
				s := NewSessionState()
				s.Scenario.Response = "hello"
				s.Shared.ActiveResponse = "hello"
				return s
			}(),
			wantDiff: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			assert.Equal(t, tt.wantDiff, got)
		})
	}
}

func TestDiff_NilOld(t *testing.T) {
	d := Diff(nil, NewSessionState())
	require.NotNil(t, d)
	assert.Equal(t, StageScenario, d.Stage.To)
	assert.Equal(t, "presentation", d.SubStages["scenario"])
	assert.Equal(t, "intro", d.SubStages["transfer"])
}

func TestDiff_JSON(t *testing.T) {
	old := NewSessionState()
	cur := NewSessionState()
	cur.Coding.POEState = POEPredict

	data, err := json.Marshal(Diff(old, cur))
	require.NoError(t, err)
	assert.JSONEq(t, `{"sub_stages":{"poe":"predict"}}`, string(data))
}
