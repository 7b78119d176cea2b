package llm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/aretw0/logicloom/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	cfg       ports.ModelConfig
	reply     string
	fragments []string
	err       error
}

func (f *fakeModel) Complete(ctx context.Context, system, user string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeModel) Stream(ctx context.Context, system, user string, onFragment func(string) error) (string, error) {
	var full string
	for _, frag := range f.fragments {
		if err := ctx.Err(); err != nil {
			return full, err
		}
		full += frag
		if err := onFragment(frag); err != nil {
			return full, err
		}
	}
	return full, f.err
}

func countingFactory(calls *atomic.Int32, reply string) Factory {
	return func(cfg ports.ModelConfig) (Model, error) {
		calls.Add(1)
		return &fakeModel{cfg: cfg, reply: reply + ":" + cfg.Model}, nil
	}
}

func TestRegistry_CachesPerConfig(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry(countingFactory(&calls, "ok"))

	a := ports.ModelConfig{Model: "m", Temperature: 0.7, MaxTokens: 4000}
	b := ports.ModelConfig{Model: "m", Temperature: 0.2, MaxTokens: 4000}

	m1, err := r.Client(a)
	require.NoError(t, err)
	m2, err := r.Client(a)
	require.NoError(t, err)
	assert.Same(t, m1, m2)

	_, err = r.Client(b)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_ModelOverride(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry(countingFactory(&calls, "ok"), WithModelOverride("forced"))

	text, err := r.Complete(context.Background(), ports.ModelConfig{Model: "configured"}, "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "ok:forced", text)
}

func TestRegistry_ConcurrentLookups(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry(countingFactory(&calls, "ok"))
	cfg := ports.ModelConfig{Model: "m"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Complete(context.Background(), cfg, "s", "u")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestRegistry_WrapsCompletionErrors(t *testing.T) {
	boom := errors.New("provider down")
	r := NewRegistry(func(cfg ports.ModelConfig) (Model, error) {
		return &fakeModel{err: boom}, nil
	})

	_, err := r.Complete(context.Background(), ports.ModelConfig{Model: "m"}, "s", "u")
	assert.ErrorIs(t, err, domain.ErrCompletion)
	assert.ErrorIs(t, err, boom)

	broken := NewRegistry(func(cfg ports.ModelConfig) (Model, error) {
		return nil, boom
	})
	_, err = broken.CompleteStream(context.Background(), ports.ModelConfig{}, "s", "u", func(string) error { return nil })
	assert.ErrorIs(t, err, domain.ErrCompletion)
}

func TestRegistry_StreamForwardsFragmentsInOrder(t *testing.T) {
	r := NewRegistry(func(cfg ports.ModelConfig) (Model, error) {
		return &fakeModel{fragments: []string{"a", "b", "c"}}, nil
	})

	var got []string
	full, err := r.CompleteStream(context.Background(), ports.ModelConfig{}, "s", "u", func(f string) error {
		got = append(got, f)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, "abc", full)
}

func TestRegistry_Timeout(t *testing.T) {
	r := NewRegistry(func(cfg ports.ModelConfig) (Model, error) {
		return blockingModel{}, nil
	}, WithTimeout(20*time.Millisecond))

	_, err := r.Complete(context.Background(), ports.ModelConfig{}, "s", "u")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type blockingModel struct{}

func (blockingModel) Complete(ctx context.Context, system, user string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (blockingModel) Stream(ctx context.Context, system, user string, onFragment func(string) error) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
