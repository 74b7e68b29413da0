// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "loremgate"

// Admission outcomes.
const (
	OutcomeAdmitted     = "admitted"
	OutcomeQuota        = "quota_exceeded"
	OutcomeUnauthorized = "unauthorized"
	OutcomeInvalid      = "invalid"
	OutcomeError        = "error"
)

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight  prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	admissions    *prometheus.CounterVec
	units         *prometheus.CounterVec
	registrations *prometheus.CounterVec
	persistTime   prometheus.Histogram
	persistErrors prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"method", "route"}),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quota",
			Name:      "admissions_total",
			Help:      "Generation requests by admission outcome.",
		}, []string{"kind", "outcome"}),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quota",
			Name:      "units_charged_total",
			Help:      "Quota units charged to clients.",
		}, []string{"kind"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registration",
			Name:      "events_total",
			Help:      "Registration flow events.",
		}, []string{"event"}),
		persistTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "persist_duration_seconds",
			Help:      "Time spent writing the snapshot document.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		persistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "persist_errors_total",
			Help:      "Snapshot writes that failed.",
		}),
	}

	m.Registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.admissions,
		m.units,
		m.registrations,
		m.persistTime,
		m.persistErrors,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) IncrementInFlight() { m.httpInFlight.Inc() }
func (m *Metrics) DecrementInFlight() { m.httpInFlight.Dec() }

func (m *Metrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordAdmission counts one generation request of kind ("words" or
// "paragraphs"). err is the service result.
func (m *Metrics) RecordAdmission(kind string, units int, err error) {
	outcome := AdmissionOutcome(err)
	m.admissions.WithLabelValues(kind, outcome).Inc()
	if outcome == OutcomeAdmitted {
		m.units.WithLabelValues(kind).Add(float64(units))
	}
}

// RecordRegistration counts a registration flow event such as "requested",
// "refreshed", "confirmed" or "deregistered".
func (m *Metrics) RecordRegistration(event string) {
	m.registrations.WithLabelValues(event).Inc()
}

// ObservePersist has the shape of store.PersistObserver.
func (m *Metrics) ObservePersist(d time.Duration, err error) {
	m.persistTime.Observe(d.Seconds())
	if err != nil {
		m.persistErrors.Inc()
	}
}

// AdmissionOutcome maps a service error to its outcome label.
func AdmissionOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeAdmitted
	case errors.Is(err, common.ErrorQuotaExceeded):
		return OutcomeQuota
	case errors.Is(err, common.ErrorUnauthorized):
		return OutcomeUnauthorized
	case errors.Is(err, common.ErrorInvalidArgument):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}
