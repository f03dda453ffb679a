// Package metrics records Prometheus metrics for ipcwire dispatches.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bjaus/ipcwire"
)

// Dispatch outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

// Collector counts dispatches per channel and outcome and observes their
// duration.
type Collector struct {
	dispatches *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inFlight   *prometheus.GaugeVec
}

// NewCollector creates a collector and registers it with reg. A nil reg
// means prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ipcwire",
				Subsystem: "dispatch",
				Name:      "total",
				Help:      "Dispatches by channel and outcome.",
			},
			[]string{"channel", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ipcwire",
				Subsystem: "dispatch",
				Name:      "duration_seconds",
				Help:      "Dispatch duration by channel and outcome.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"channel", "outcome"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "ipcwire",
				Subsystem: "dispatch",
				Name:      "in_flight",
				Help:      "Dispatches currently running by channel.",
			},
			[]string{"channel"},
		),
	}

	for _, col := range []prometheus.Collector{c.dispatches, c.duration, c.inFlight} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Options returns the hooks that feed the collector.
//
// Example:
//
//	col, err := metrics.NewCollector(prometheus.DefaultRegisterer)
//	if err != nil {
//	    return err
//	}
//	app := ipcwire.New(cfg, col.Options()...)
func (c *Collector) Options() []ipcwire.Option {
	return []ipcwire.Option{
		ipcwire.WithOnReceive(func(ctx context.Context, path string, _ ipcwire.Mode) context.Context {
			c.inFlight.WithLabelValues(path).Inc()
			return ctx
		}),
		ipcwire.WithOnSuccess(func(_ context.Context, path string, d time.Duration) {
			c.observe(path, OutcomeSuccess, d)
		}),
		ipcwire.WithOnFailure(func(_ context.Context, path string, _ error, d time.Duration) {
			c.observe(path, OutcomeFailure, d)
		}),
		ipcwire.WithOnDenied(func(_ context.Context, path, _ string, d time.Duration) {
			c.observe(path, OutcomeDenied, d)
		}),
	}
}

func (c *Collector) observe(path, outcome string, d time.Duration) {
	c.inFlight.WithLabelValues(path).Dec()
	c.dispatches.WithLabelValues(path, outcome).Inc()
	c.duration.WithLabelValues(path, outcome).Observe(d.Seconds())
}
