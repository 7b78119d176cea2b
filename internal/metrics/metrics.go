// Package metrics exposes engine activity as Prometheus collectors.
package metrics

import (
	"context"
	"net/http"

	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "logicloom"

// Collectors groups every LogicLoom metric.
type Collectors struct {
	Turns           *prometheus.CounterVec
	HandlerDuration *prometheus.HistogramVec
	StreamTokens    prometheus.Counter
	TurnLogFailures prometheus.Counter
	StageAdvances   *prometheus.CounterVec
	SalvagedReplies *prometheus.CounterVec
	registry        *prometheus.Registry
}

// New creates the collectors and registers them on a private registry.
func New() *Collectors {
	c := &Collectors{
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Processed turns by stage and outcome.",
		}, []string{"stage", "outcome"}),
		HandlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Duration of stage handler invocations, including the model call.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"handler"}),
		StreamTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_tokens_total",
			Help:      "Response fragments emitted to streaming clients.",
		}),
		TurnLogFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turnlog_failures_total",
			Help:      "Turn log entries that could not be written.",
		}),
		StageAdvances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_advances_total",
			Help:      "Top-level stage transitions.",
		}, []string{"from", "to"}),
		SalvagedReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "salvaged_replies_total",
			Help:      "Model replies that were not well-formed JSON.",
		}, []string{"handler"}),
		registry: prometheus.NewRegistry(),
	}
	c.registry.MustRegister(
		c.Turns,
		c.HandlerDuration,
		c.StreamTokens,
		c.TurnLogFailures,
		c.StageAdvances,
		c.SalvagedReplies,
	)
	return c
}

// Registry returns the registry the collectors live in.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Hooks returns lifecycle hooks that feed the collectors.
func (c *Collectors) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnHandlerDone: func(_ context.Context, e *domain.HandlerEvent) {
			c.HandlerDuration.WithLabelValues(e.Handler).Observe(e.Duration.Seconds())
			if e.Salvaged {
				c.SalvagedReplies.WithLabelValues(e.Handler).Inc()
			}
		},
		OnTurnEnd: func(_ context.Context, e *domain.TurnEvent) {
			outcome := "ok"
			if e.Err != nil {
				outcome = "error"
			}
			c.Turns.WithLabelValues(string(e.Stage), outcome).Inc()
			if e.Diff != nil && e.Diff.Stage != nil {
				c.StageAdvances.WithLabelValues(string(e.Diff.Stage.From), string(e.Diff.Stage.To)).Inc()
			}
		},
		OnStreamToken: func(context.Context, string) {
			c.StreamTokens.Inc()
		},
	}
}

// TurnLogFailed counts one failed turn log write. Its signature matches
// turnlog.WithFailureHook.
func (c *Collectors) TurnLogFailed(error) {
	c.TurnLogFailures.Inc()
}
