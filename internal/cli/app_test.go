package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/logicloom/internal/config"
	"github.com/aretw0/logicloom/internal/turnlog"
	"github.com/aretw0/logicloom/pkg/adapters/redis"
	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/aretw0/logicloom/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCompleter struct{ reply string }

func (c staticCompleter) Complete(ctx context.Context, cfg ports.ModelConfig, system, user string) (string, error) {
	return c.reply, nil
}

func (c staticCompleter) CompleteStream(ctx context.Context, cfg ports.ModelConfig, system, user string, onFragment func(string) error) (string, error) {
	if err := onFragment(c.reply); err != nil {
		return "", err
	}
	return c.reply, nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.PromptsDir = filepath.Join("..", "..", "prompts")
	cfg.SessionsDir = filepath.Join(t.TempDir(), "sessions")
	return cfg
}

func TestBuild_RequiresAPIKey(t *testing.T) {
	_, err := Build(context.Background(), testConfig(t), nil, BuildOptions{})
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestBuild_FileStoreAndTurnLog(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.DBPath = filepath.Join(t.TempDir(), "turns.db")

	app, err := Build(ctx, cfg, nil, BuildOptions{Completer: staticCompleter{reply: "你好"}, Debug: true})
	require.NoError(t, err)

	res, err := app.Engine.Turn(ctx, domain.TurnRequest{
		ConversationID: "c1",
		UserID:         "u1",
		Stage:          domain.StageScenario,
		UserInput:      "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "c1", res.ConversationID)

	state, err := app.Store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, state.Scenario.TurnCount)

	require.NoError(t, app.Close(ctx))

	db, err := turnlog.OpenSQLite(ctx, cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()
	entries, err := db.Entries(ctx, turnlog.GroupExperimental, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ports.RoleUser, entries[0].Role)
	assert.Equal(t, ports.RoleAgent, entries[1].Role)
}

func TestBuild_RedisStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisAddr = mr.Addr()

	app, err := Build(ctx, cfg, nil, BuildOptions{Completer: staticCompleter{reply: "ok"}})
	require.NoError(t, err)
	defer app.Close(ctx)

	require.IsType(t, &redis.Store{}, app.Store)

	_, err = app.Engine.Turn(ctx, domain.TurnRequest{ConversationID: "r1", Stage: domain.StageScenario, UserInput: "hi"})
	require.NoError(t, err)
	assert.True(t, mr.Exists(redis.DefaultPrefix+"r1"))
}

func TestBuild_Stateless(t *testing.T) {
	app, err := Build(context.Background(), testConfig(t), nil, BuildOptions{Completer: staticCompleter{}, Stateless: true})
	require.NoError(t, err)
	assert.Nil(t, app.Store)
	assert.Nil(t, app.Engine.Sessions())
}

func TestNewStore_ProtectedSessions(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.SessionKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	cfg.MaskPII = true

	stores, err := NewStore(cfg)
	require.NoError(t, err)
	defer stores.Close()
	assert.Nil(t, stores.Locker)

	state := domain.NewSessionState()
	state.UserInput = "mail me at ming@example.com"
	require.NoError(t, stores.Store.Save(ctx, "s1", state))

	raw, err := os.ReadFile(filepath.Join(cfg.SessionsDir, "s1.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "mail me")

	loaded, err := stores.Store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "mail me at ***", loaded.UserInput)

	cfg.SessionKey = "not-a-key"
	_, err = NewStore(cfg)
	assert.ErrorContains(t, err, "LOGICLOOM_SESSION_KEY")
}

func TestServe_GracefulShutdown(t *testing.T) {
	app, err := Build(context.Background(), testConfig(t), nil, BuildOptions{Completer: staticCompleter{}})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	metricsLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, app, ln, metricsLn) }()

	get := func(url string) (int, string) {
		resp, err := http.Get(url)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	code, body := get("http://" + ln.Addr().String() + "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	code, _ = get("http://" + ln.Addr().String() + "/metrics")
	assert.Equal(t, http.StatusNotFound, code, "metrics live on their own listener")

	code, body = get("http://" + metricsLn.Addr().String() + "/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "logicloom_")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}
