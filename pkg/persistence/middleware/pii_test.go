package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/logicloom/pkg/adapters/memory"
	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/aretw0/logicloom/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_MasksLearnerText(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)
	require.NoError(t, err)
	store := mw(underlying)

	state := domain.NewSessionState()
	state.UserInput = "我的邮箱是 ming@example.com，手机13812345678"
	state.Context = "身份证 11010519491231002X"
	state.Coding.CurrentCode = "email = 'ming@example.com'"
	require.NoError(t, store.Save(ctx, "p1", state))

	stored, err := underlying.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "我的邮箱是 ***，手机***", stored.UserInput)
	assert.Equal(t, "身份证 ***", stored.Context)
	assert.Equal(t, "email = 'ming@example.com'", stored.Coding.CurrentCode, "code is not masked")

	assert.Contains(t, state.UserInput, "ming@example.com", "the caller's state is untouched")
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain_MaskThenEncrypt(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	store := middleware.Chain(underlying, pii, enc)

	state := domain.NewSessionState()
	state.UserInput = "call 13812345678"
	require.NoError(t, store.Save(ctx, "c", state))

	loaded, err := store.Load(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "call ***", loaded.UserInput)
}
