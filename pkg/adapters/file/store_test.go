package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/logicloom/pkg/adapters/file"
	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/aretw0/logicloom/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.StateStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_AtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		state := domain.NewSessionState()
		state.Scenario.TurnCount = i
		require.NoError(t, store.Save(ctx, "conv", state))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "conv.json", entries[0].Name())

	loaded, err := store.Load(ctx, "conv")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Scenario.TurnCount)
}

func TestFileStore_LoadNormalizesOldPayload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.json"), []byte(`{"stage":"coding"}`), 0o644))

	loaded, err := file.New(dir).Load(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, domain.StageCoding, loaded.Stage)
	assert.Equal(t, domain.CodingFlowchart, loaded.Coding.SubStage)
	assert.Equal(t, domain.POENone, loaded.Coding.POEState)
	assert.Equal(t, domain.TransferIntro, loaded.Transfer.SubStage)
}

func TestFileStore_RejectsPathIDs(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "..", "../escape", `a\b`} {
		assert.Error(t, store.Save(ctx, id, domain.NewSessionState()), "id %q", id)
		_, err := store.Load(ctx, id)
		assert.Error(t, err, "id %q", id)
		assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
	}
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "absent"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_DeleteMissingIsNoop(t *testing.T) {
	assert.NoError(t, file.New(t.TempDir()).Delete(context.Background(), "nope"))
}
