package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP listeners.
const ShutdownTimeout = 5 * time.Second

// Serve runs the API on ln, and the metrics endpoint on metricsLn when it is not nil,
// until ctx is done or a listener fails. The App is closed on the way out so
// pending turn logs are flushed.
func Serve(ctx context.Context, app *App, ln, metricsLn net.Listener) error {
	servers := []*http.Server{{
		Handler:           app.Handler(metricsLn == nil),
		ReadHeaderTimeout: 10 * time.Second,
	}}
	listeners := []net.Listener{ln}
	if metricsLn != nil {
		servers = append(servers, &http.Server{Handler: app.Metrics.Handler(), ReadHeaderTimeout: 10 * time.Second})
		listeners = append(listeners, metricsLn)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, srv := range servers {
		srv, l := srv, listeners[i]
		g.Go(func() error {
			app.Logger.Info("listening", "address", l.Addr().String())
			if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				app.Logger.Warn("graceful shutdown did not complete", "err", err)
				errs = append(errs, srv.Close())
			}
		}
		errs = append(errs, app.Close(shutdownCtx))
		return errors.Join(errs...)
	})

	return g.Wait()
}
