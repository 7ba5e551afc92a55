package esmirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/esmirror/internal/domain"
)

// Operation labels, one per public Client call.
const (
	opPut          = "put"
	opGet          = "get"
	opSimpleSearch = "simple_search"
	opPutRecords   = "put_records"
	opLoad         = "load"
	opPing         = "ping"
)

var operations = []string{opPut, opGet, opSimpleSearch, opPutRecords, opLoad, opPing}

// Outcome labels. A rejected call was refused by the mirror (or had an unusable
// input file) and never reached the search service; an error is a transport failure.
const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, domain.ErrInvalidState):
		return outcomeRejected
	default:
		return outcomeError
	}
}

// sdkMetrics are registered on the registerer passed to WithPrometheus.
type sdkMetrics struct {
	calls     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	documents *prometheus.GaugeVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "esmirror",
			Subsystem: "sdk",
			Name:      "calls_total",
			Help:      "SDK calls by operation and outcome (ok, rejected by the mirror, transport error).",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "esmirror",
			Subsystem: "sdk",
			Name:      "call_duration_seconds",
			Help:      "SDK call duration in seconds, including mirror checks.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"operation"}),
		documents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "esmirror",
			Subsystem: "sdk",
			Name:      "mirror_documents",
			Help:      "Document ids tracked by the client mirror.",
		}, []string{"index", "type"}),
	}
	if err := registerOrReuse(reg, &m.calls); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.documents); err != nil {
		return nil, err
	}

	// Expose every operation from the start, so rates do not miss the first call.
	for _, op := range operations {
		for _, oc := range []string{outcomeOK, outcomeRejected, outcomeError} {
			m.calls.WithLabelValues(op, oc)
		}
	}
	return m, nil
}

// registerOrReuse registers c, or swaps in the collector already registered
// under the same name so several clients can share one registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("esmirror: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("esmirror: metric already registered with incompatible type: %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer logs and counts Client calls. A nil observer does nothing.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// mirrorGauge returns the gauge the document service reports mirror sizes to, or nil.
func (o *observer) mirrorGauge() *prometheus.GaugeVec {
	if o == nil || o.metrics == nil {
		return nil
	}
	return o.metrics.documents
}

// observe records one call. attrs describe the call target (index, type, id, path).
func (o *observer) observe(ctx context.Context, op string, start time.Time, err error, attrs ...slog.Attr) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	outcome := outcomeOf(err)

	if o.metrics != nil {
		o.metrics.calls.WithLabelValues(op, outcome).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}
	if o.logger == nil {
		return
	}

	attrs = append(attrs, slog.String("op", op), slog.Duration("duration", dur))
	switch outcome {
	case outcomeOK:
		o.logger.LogAttrs(ctx, slog.LevelDebug, "call completed", attrs...)
	case outcomeRejected:
		o.logger.LogAttrs(ctx, slog.LevelInfo, "call rejected by mirror", append(attrs, slog.Any("error", err))...)
	default:
		o.logger.LogAttrs(ctx, slog.LevelWarn, "call failed", append(attrs, slog.Any("error", err))...)
	}
}

func target(index, typ string) []slog.Attr {
	return []slog.Attr{slog.String("index", index), slog.String("type", typ)}
}
