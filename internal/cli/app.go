// Package cli wires configuration into a running LogicLoom: completer, stores,
// turn logging, metrics, sandbox and the engine, plus the serve loop.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/logicloom"
	"github.com/aretw0/logicloom/internal/config"
	"github.com/aretw0/logicloom/internal/llm"
	"github.com/aretw0/logicloom/internal/logging"
	"github.com/aretw0/logicloom/internal/metrics"
	"github.com/aretw0/logicloom/internal/turnlog"
	"github.com/aretw0/logicloom/pkg/adapters/file"
	httpadapter "github.com/aretw0/logicloom/pkg/adapters/http"
	"github.com/aretw0/logicloom/pkg/adapters/redis"
	"github.com/aretw0/logicloom/pkg/adapters/sandbox"
	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/aretw0/logicloom/pkg/persistence/middleware"
	"github.com/aretw0/logicloom/pkg/ports"
)

// App is a fully wired engine together with the resources it owns.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Engine  *logicloom.Engine
	Metrics *metrics.Collectors
	Sandbox *sandbox.Runner
	Store   ports.StateStore

	closers []func(context.Context) error
}

// BuildOptions tunes Build beyond what the environment configures.
type BuildOptions struct {
	Debug bool
	// Completer replaces the OpenAI-compatible client; tests use it.
	Completer ports.Completer
	// Stateless skips the session store: every turn carries its own state.
	Stateless bool
}

// NewLogger configures the application logger.
// Without debug only warnings and errors are written.
func NewLogger(debug bool, format logging.Format) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug, format)
	}
	return logging.New(slog.LevelWarn, format)
}

// Build assembles an App from cfg. Close must be called to flush the turn log.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, opts BuildOptions) (*App, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
		Sandbox: sandbox.New(sandbox.WithPython(cfg.Python), sandbox.WithLogger(logger)),
	}

	completer := opts.Completer
	if completer == nil {
		client, err := llm.NewOpenAI(cfg.APIKey, cfg.APIBase, llm.WithRateLimit(cfg.LLMRPS))
		if err != nil {
			return nil, err
		}
		completer = llm.NewRegistry(client.Factory(),
			llm.WithModelOverride(cfg.ModelName),
			llm.WithTimeout(cfg.RequestTimeout),
			llm.WithLogger(logger),
		)
	}

	hooks := app.Metrics.Hooks()
	if opts.Debug {
		hooks = domain.ChainHooks(hooks, DebugHooks(logger))
	}

	engineOpts := []logicloom.Option{
		logicloom.WithPromptsDir(cfg.PromptsDir),
		logicloom.WithCompleter(completer),
		logicloom.WithLogger(logger),
		logicloom.WithLifecycleHooks(hooks),
	}

	if !opts.Stateless {
		stores, err := NewStore(cfg)
		if err != nil {
			return nil, err
		}
		app.Store = stores.Store
		app.closers = append(app.closers, func(context.Context) error { return stores.Close() })
		engineOpts = append(engineOpts, logicloom.WithStore(stores.Store))
		if stores.Locker != nil {
			engineOpts = append(engineOpts, logicloom.WithLocker(stores.Locker))
		}
	}

	if cfg.DBPath != "" {
		db, err := turnlog.OpenSQLite(ctx, cfg.DBPath)
		if err != nil {
			_ = app.Close(ctx)
			return nil, err
		}
		async := turnlog.NewAsync(db,
			turnlog.WithLogger(logger),
			turnlog.WithFailureHook(app.Metrics.TurnLogFailed),
		)
		app.closers = append(app.closers, async.Close, func(context.Context) error { return db.Close() })
		engineOpts = append(engineOpts, logicloom.WithTurnLogger(async))
	}

	engine, err := logicloom.New(engineOpts...)
	if err != nil {
		_ = app.Close(ctx)
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	app.Engine = engine
	return app, nil
}

// Stores is the session store chosen by NewStore, with the lock that guards it.
type Stores struct {
	Store  ports.StateStore
	Locker ports.DistributedLocker // nil for the file store

	close func() error
}

// Close releases the backend connection, if any.
func (s Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// NewStore picks the session store: Redis (with its distributed lock) when an
// address is configured, otherwise JSON files under SessionsDir. PII masking and
// encryption are layered on top when configured.
func NewStore(cfg config.Config) (Stores, error) {
	var mws []middleware.Middleware
	if cfg.MaskPII {
		mw, err := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)
		if err != nil {
			return Stores{}, err
		}
		mws = append(mws, mw)
	}
	if cfg.SessionKey != "" {
		enc := middleware.EncryptionConfig{}
		key, err := middleware.ParseKey(cfg.SessionKey)
		if err != nil {
			return Stores{}, fmt.Errorf("LOGICLOOM_SESSION_KEY: %w", err)
		}
		enc.ActiveKey = key
		for i, s := range cfg.SessionFallbackKeys {
			k, err := middleware.ParseKey(s)
			if err != nil {
				return Stores{}, fmt.Errorf("LOGICLOOM_SESSION_FALLBACK_KEYS[%d]: %w", i, err)
			}
			enc.FallbackKeys = append(enc.FallbackKeys, k)
		}
		mw, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return Stores{}, err
		}
		mws = append(mws, mw)
	}

	var out Stores
	var store ports.StateStore
	if cfg.RedisAddr != "" {
		rs := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.WithTTL(cfg.SessionTTL))
		store, out.Locker, out.close = rs, redis.NewLocker(rs.Client(), rs.Prefix()), rs.Close
	} else {
		store = file.New(cfg.SessionsDir)
	}
	out.Store = middleware.Chain(store, mws...)
	return out, nil
}

// Handler builds the HTTP API. The metrics route is mounted only when withMetrics is set.
func (a *App) Handler(withMetrics bool) http.Handler {
	opts := []httpadapter.Option{
		httpadapter.WithSandbox(a.Sandbox),
		httpadapter.WithLogger(a.Logger),
		httpadapter.WithMaxInputSize(a.Config.MaxInputSize),
	}
	if withMetrics {
		opts = append(opts, httpadapter.WithMetricsHandler(a.Metrics.Handler()))
	}
	return httpadapter.NewHandler(a.Engine, opts...)
}

// Close releases every owned resource in order, draining the turn log first.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, c := range a.closers {
		if err := c(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// DebugHooks logs every turn and handler invocation at debug level.
func DebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnStart: func(ctx context.Context, e *domain.TurnEvent) {
			logger.Debug("turn start", "conversation_id", e.ConversationID, "stage", e.Stage, "streaming", e.Streaming)
		},
		OnHandlerDone: func(ctx context.Context, e *domain.HandlerEvent) {
			if e.Err != nil {
				logger.Debug("handler failed", "handler", e.Handler, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.Debug("handler done", "handler", e.Handler, "duration", e.Duration, "salvaged", e.Salvaged)
		},
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			if e.Err != nil {
				logger.Debug("turn failed", "conversation_id", e.ConversationID, "stage", e.Stage, "err", e.Err)
				return
			}
			logger.Debug("turn end", "conversation_id", e.ConversationID, "stage", e.Stage)
		},
	}
}
