// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package metrics exports decoder activity as Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Thermoquad/trackside/pkg/livetiming"
)

// Config configures the collector
type Config struct {
	// Namespace is the metrics namespace (default: "trackside")
	Namespace string

	// ConstLabels are added to every metric, e.g. the source name
	ConstLabels prometheus.Labels

	// Registry receives the metrics (default: a fresh registry)
	Registry *prometheus.Registry
}

// Option configures the collector
type Option func(*Config)

// WithNamespace sets the metrics namespace
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// Collector implements livetiming.Observer on Prometheus counters
type Collector struct {
	registry     *prometheus.Registry
	packets      *prometheus.CounterVec
	payloadBytes prometheus.Counter
	failures     *prometheus.CounterVec
	resets       *prometheus.CounterVec
	events       *prometheus.CounterVec
}

// New creates a collector and registers its metrics
func New(opts ...Option) *Collector {
	config := Config{Namespace: "trackside"}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		registry: config.Registry,

		packets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "packets_total",
			Help:        "Total number of decoded packets",
			ConstLabels: config.ConstLabels,
		}, []string{"family", "kind"}),

		payloadBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "payload_bytes_total",
			Help:        "Total payload bytes of decoded packets",
			ConstLabels: config.ConstLabels,
		}),

		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "decode_failures_total",
			Help:        "Total number of skipped packet attempts",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),

		resets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "cipher_resets_total",
			Help:        "Total number of cipher salt resets",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),

		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "session_events_total",
			Help:        "Total number of session events by phase",
			ConstLabels: config.ConstLabels,
		}, []string{"phase"}),
	}
}

// PacketDecoded implements livetiming.Observer
func (c *Collector) PacketDecoded(p *livetiming.Packet) {
	family := "system"
	if p.IsCar() {
		family = "car"
	}
	c.packets.WithLabelValues(family, p.Kind().String()).Inc()
	c.payloadBytes.Add(float64(p.Length()))
}

// DecodeFailed implements livetiming.Observer
func (c *Collector) DecodeFailed(err error) {
	c.failures.WithLabelValues(FailureReason(err)).Inc()
}

// CipherReset implements livetiming.Observer
func (c *Collector) CipherReset(reason livetiming.ResetReason) {
	c.resets.WithLabelValues(reason.String()).Inc()
}

// RecordEvent counts a session event against its phase
func (c *Collector) RecordEvent(ev livetiming.Event) {
	c.events.WithLabelValues(ev.Phase.String()).Inc()
}

// Registry returns the registry holding the collector's metrics
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns a router serving /metrics and /healthz
func (c *Collector) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	return r
}

// FailureReason maps a decode error to a metric label
func FailureReason(err error) string {
	switch {
	case errors.Is(err, livetiming.ErrMalformedHeader):
		return "malformed_header"
	case errors.Is(err, livetiming.ErrUnknownPacketType):
		return "unknown_type"
	default:
		return "other"
	}
}

// Multi fans decoder events out to several observers
type Multi []livetiming.Observer

// PacketDecoded implements livetiming.Observer
func (m Multi) PacketDecoded(p *livetiming.Packet) {
	for _, o := range m {
		o.PacketDecoded(p)
	}
}

// DecodeFailed implements livetiming.Observer
func (m Multi) DecodeFailed(err error) {
	for _, o := range m {
		o.DecodeFailed(err)
	}
}

// CipherReset implements livetiming.Observer
func (m Multi) CipherReset(reason livetiming.ResetReason) {
	for _, o := range m {
		o.CipherReset(reason)
	}
}
