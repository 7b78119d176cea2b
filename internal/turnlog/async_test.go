package turnlog_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aretw0/logicloom/internal/turnlog"
	"github.com/aretw0/logicloom/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recordingLogger struct {
	mu      sync.Mutex
	entries []ports.TurnLogEntry
	err     error
	block   chan struct{}
	started chan struct{}
}

func (r *recordingLogger) LogTurn(ctx context.Context, e ports.TurnLogEntry) error {
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return r.err
}

func (r *recordingLogger) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Text
	}
	return out
}

func TestAsync_WritesInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recordingLogger{}
	a := turnlog.NewAsync(rec)

	for _, txt := range []string{"1", "2", "3"} {
		assert.NoError(t, a.LogTurn(context.Background(), ports.TurnLogEntry{Role: ports.RoleUser, Text: txt}))
	}
	require.NoError(t, a.Close(context.Background()))
	assert.Equal(t, []string{"1", "2", "3"}, rec.texts())
}

func TestAsync_FailuresAreSwallowedAndCounted(t *testing.T) {
	defer goleak.VerifyNone(t)

	var failures atomic.Int32
	rec := &recordingLogger{err: errors.New("disk full")}
	a := turnlog.NewAsync(rec, turnlog.WithFailureHook(func(error) { failures.Add(1) }))

	assert.NoError(t, a.LogTurn(context.Background(), ports.TurnLogEntry{Role: ports.RoleAgent, Text: "x"}))
	require.NoError(t, a.Close(context.Background()))
	assert.Equal(t, int32(1), failures.Load())
}

func TestAsync_DropsWhenFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	var dropped atomic.Int32
	rec := &recordingLogger{block: make(chan struct{}), started: make(chan struct{}, 4)}
	a := turnlog.NewAsync(rec,
		turnlog.WithQueueSize(1),
		turnlog.WithFailureHook(func(err error) {
			if errors.Is(err, turnlog.ErrQueueFull) {
				dropped.Add(1)
			}
		}),
	)
	ctx := context.Background()

	require.NoError(t, a.LogTurn(ctx, ports.TurnLogEntry{Text: "a"}))
	<-rec.started // the worker now holds "a"
	require.NoError(t, a.LogTurn(ctx, ports.TurnLogEntry{Text: "b"}))
	require.NoError(t, a.LogTurn(ctx, ports.TurnLogEntry{Text: "c"}))
	assert.Equal(t, int32(1), dropped.Load())

	close(rec.block)
	require.NoError(t, a.Close(ctx))
	assert.Equal(t, []string{"a", "b"}, rec.texts())
}

func TestAsync_AfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	var closed atomic.Bool
	a := turnlog.NewAsync(turnlog.Nop{}, turnlog.WithFailureHook(func(err error) {
		closed.Store(errors.Is(err, turnlog.ErrClosed))
	}))
	require.NoError(t, a.Close(context.Background()))
	require.NoError(t, a.Close(context.Background()))

	assert.NoError(t, a.LogTurn(context.Background(), ports.TurnLogEntry{Text: "late"}))
	assert.True(t, closed.Load())
}
