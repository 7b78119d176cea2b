package turnlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/logicloom/internal/logging"
	"github.com/aretw0/logicloom/pkg/ports"
)

// DefaultQueueSize bounds the number of entries waiting to be written.
const DefaultQueueSize = 256

// DefaultWriteTimeout bounds a single write to the wrapped logger.
const DefaultWriteTimeout = 5 * time.Second

// Async is a fire-and-forget ports.TurnLogger. LogTurn enqueues and returns nil;
// a single worker writes entries in enqueue order. Write failures and dropped
// entries are logged and reported through the failure callback.
type Async struct {
	next      ports.TurnLogger
	logger    *slog.Logger
	onFailure func(error)
	timeout   time.Duration

	queue chan ports.TurnLogEntry
	done  chan struct{}
	once  sync.Once
	mu    sync.RWMutex
	shut  bool
}

// AsyncOption configures an Async logger.
type AsyncOption func(*Async)

// WithLogger sets the logger used to report failures.
func WithLogger(l *slog.Logger) AsyncOption {
	return func(a *Async) {
		a.logger = l
	}
}

// WithFailureHook registers a callback invoked once per failed or dropped entry.
func WithFailureHook(fn func(error)) AsyncOption {
	return func(a *Async) {
		a.onFailure = fn
	}
}

// WithQueueSize sets the queue capacity.
func WithQueueSize(n int) AsyncOption {
	return func(a *Async) {
		if n > 0 {
			a.queue = make(chan ports.TurnLogEntry, n)
		}
	}
}

// WithWriteTimeout bounds each write to the wrapped logger.
func WithWriteTimeout(d time.Duration) AsyncOption {
	return func(a *Async) {
		a.timeout = d
	}
}

// NewAsync starts the background writer for next.
func NewAsync(next ports.TurnLogger, opts ...AsyncOption) *Async {
	a := &Async{
		next:      next,
		logger:    logging.NewNop(),
		onFailure: func(error) {},
		timeout:   DefaultWriteTimeout,
		queue:     make(chan ports.TurnLogEntry, DefaultQueueSize),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	go a.loop()
	return a
}

// LogTurn enqueues the entry. It never blocks and never returns an error.
func (a *Async) LogTurn(_ context.Context, entry ports.TurnLogEntry) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.shut {
		a.fail(entry, ErrClosed)
		return nil
	}

	select {
	case a.queue <- entry:
	default:
		a.fail(entry, ErrQueueFull)
	}
	return nil
}

// Close stops accepting entries and waits until the queue is drained or ctx is done.
func (a *Async) Close(ctx context.Context) error {
	a.once.Do(func() {
		a.mu.Lock()
		a.shut = true
		close(a.queue)
		a.mu.Unlock()
	})

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Async) loop() {
	defer close(a.done)
	for entry := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.LogTurn(ctx, entry); err != nil {
			a.fail(entry, err)
		}
		cancel()
	}
}

func (a *Async) fail(entry ports.TurnLogEntry, err error) {
	a.logger.Warn("turn log write failed",
		"conversation_id", entry.ConversationID,
		"role", string(entry.Role),
		"err", err,
	)
	a.onFailure(err)
}
