package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	conversationID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewSessionState()
		state.ConversationID = conversationID
		state.Stage = domain.StageTransfer
		state.Transfer.SubStage = domain.TransferQuiz
		state.Transfer.QuizIndex = 2
		state.Assessment.EvaluationScores = map[string]int{"logic": 4}

		err := store.Save(ctx, conversationID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, conversationID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, domain.StageTransfer, loaded.Stage)
		assert.Equal(t, domain.TransferQuiz, loaded.Transfer.SubStage)
		assert.Equal(t, 2, loaded.Transfer.QuizIndex)
		assert.Equal(t, 4, loaded.Assessment.EvaluationScores["logic"])
	})

	t.Run("Load Is Isolated", func(t *testing.T) {
		loaded, err := store.Load(ctx, conversationID)
		require.NoError(t, err)
		loaded.Transfer.QuizIndex = 99

		again, err := store.Load(ctx, conversationID)
		require.NoError(t, err)
		assert.Equal(t, 2, again.Transfer.QuizIndex, "mutating a loaded state must not change the store")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+conversationID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, conversationID, domain.NewSessionState())
		require.NoError(t, err)

		err = store.Delete(ctx, conversationID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, conversationID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := conversationID + "-1"
		id2 := conversationID + "-2"
		_ = store.Save(ctx, id1, domain.NewSessionState())
		_ = store.Save(ctx, id2, domain.NewSessionState())

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
