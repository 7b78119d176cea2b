package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/aretw0/logicloom/pkg/ports"
	"github.com/aretw0/logicloom/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data  map[string]*domain.SessionState
	saves int
	mu    sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, id string, state *domain.SessionState) error {
	time.Sleep(2 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.SessionState)
	}
	s.data[id] = state.Clone()
	s.saves++
	return nil
}

func (s *SlowStore) Load(ctx context.Context, id string) (*domain.SessionState, error) {
	time.Sleep(2 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.data[id]; ok {
		return state.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func incrementTurn(ctx context.Context, s *domain.SessionState) (*domain.SessionState, error) {
	next := s.Clone()
	next.Scenario.TurnCount++
	return next, nil
}

func TestManager_Run_SerializesTurns(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	var wg sync.WaitGroup
	turns := 20
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, manager.Run(ctx, id, incrementTurn))
		}()
	}
	wg.Wait()

	state, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, turns, state.Scenario.TurnCount, "no lost updates")
	assert.Equal(t, id, state.ConversationID)
}

func TestManager_Run_ArrivalOrder(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()
	id := "ordered"

	release := make(chan struct{})
	started := make(chan struct{})
	var order []int
	var mu sync.Mutex

	go func() {
		_ = manager.Run(ctx, id, func(ctx context.Context, s *domain.SessionState) (*domain.SessionState, error) {
			close(started)
			<-release
			return s, nil
		})
	}()
	<-started

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = manager.Run(ctx, id, func(ctx context.Context, s *domain.SessionState) (*domain.SessionState, error) {
				mu.Lock()
				order = append(order, n)
				mu.Unlock()
				return s, nil
			})
		}(i)
		// Let each waiter queue up before the next one arrives.
		time.Sleep(20 * time.Millisecond)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestManager_Run_FailureDoesNotSave(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()

	require.NoError(t, manager.Run(ctx, "c", incrementTurn))
	boom := errors.New("completion failed")
	err := manager.Run(ctx, "c", func(ctx context.Context, s *domain.SessionState) (*domain.SessionState, error) {
		s.Scenario.TurnCount = 99
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	state, err := manager.Load(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 1, state.Scenario.TurnCount)
	assert.Equal(t, 1, store.saves)
}

func TestManager_Run_InitializesDefaults(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	err := manager.Run(context.Background(), "fresh", func(ctx context.Context, s *domain.SessionState) (*domain.SessionState, error) {
		assert.Equal(t, domain.StageScenario, s.Stage)
		assert.Equal(t, domain.TransferIntro, s.Transfer.SubStage)
		assert.Equal(t, "fresh", s.ConversationID)
		return nil, nil
	})
	require.NoError(t, err)

	_, err = manager.Load(context.Background(), "fresh")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "nil state is not saved")
}

func TestManager_WithLock_ContextCancelledWhileWaiting(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	id := "busy"
	hold := make(chan struct{})
	held := make(chan struct{})

	go func() {
		_ = manager.WithLock(context.Background(), id, func(ctx context.Context) error {
			close(held)
			<-hold
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := manager.WithLock(ctx, id, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(hold)
}

func TestManager_LoadOrInit(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, err := manager.LoadOrInit(ctx, id)
			assert.NoError(t, err)
			assert.NotNil(t, state)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.saves)
	ids, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)
}

type fakeLocker struct {
	mu       sync.Mutex
	locked   []string
	unlocked int
}

func (f *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = append(f.locked, key)
	return func(context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unlocked++
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &fakeLocker{}
	manager := session.NewManager(&SlowStore{}, session.WithLocker(locker), session.WithLockTTL(time.Second))

	require.NoError(t, manager.Run(context.Background(), "c", incrementTurn))
	assert.Equal(t, []string{"c"}, locker.locked)
	assert.Equal(t, 1, locker.unlocked)
}
