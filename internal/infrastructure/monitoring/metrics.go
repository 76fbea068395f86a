package monitoring

import (
	"sort"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "imageviewer"

// Metrics holds the Prometheus collectors of one viewer process
type Metrics struct {
	registry *prometheus.Registry

	// Operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	OperationsActive  *prometheus.GaugeVec

	// Sync client metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	Sessions       prometheus.Gauge
	ImagesUploaded prometheus.Counter
	StoredBytes    prometheus.Gauge
}

// NewMetrics creates collectors registered on a private registry, so several
// instances can coexist in one process
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Session operations by outcome",
			},
			[]string{"op", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Session operation duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"op"},
		),
		OperationsActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "operations_active",
				Help:      "Session operations currently running",
			},
			[]string{"op"},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_requests_total",
				Help:      "Requests sent to the sync service",
			},
			[]string{"method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_request_duration_seconds",
				Help:      "Sync service request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),

		Sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Sessions held by the API",
		}),
		ImagesUploaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_uploaded_total",
			Help:      "Images uploaded to the remote image store",
		}),
		StoredBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stored_bytes",
			Help:      "Size of the last value written to the local store",
		}),
	}
}

// Registry exposes the private registry for gathering or HTTP exposition
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Start marks op as running
func (m *Metrics) Start(op string) {
	m.OperationsActive.WithLabelValues(op).Inc()
}

// Succeed records a successful op
func (m *Metrics) Succeed(op string, took time.Duration) {
	m.finish(op, "success", took)
}

// Fail records a failed op
func (m *Metrics) Fail(op string, took time.Duration, _ error) {
	m.finish(op, "error", took)
}

func (m *Metrics) finish(op, status string, took time.Duration) {
	m.OperationsActive.WithLabelValues(op).Dec()
	m.OperationsTotal.WithLabelValues(op, status).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(took.Seconds())
}

// RecordRequest records one sync service round trip
func (m *Metrics) RecordRequest(method string, status int, took time.Duration) {
	m.RequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(took.Seconds())
}

// SetSessions sets the number of sessions held
func (m *Metrics) SetSessions(n int) {
	m.Sessions.Set(float64(n))
}

// IncUploads counts one uploaded image
func (m *Metrics) IncUploads() {
	m.ImagesUploaded.Inc()
}

// SetStoredBytes records the size of the last stored value
func (m *Metrics) SetStoredBytes(n int) {
	m.StoredBytes.Set(float64(n))
}

// OpSummary is the outcome count of one operation
type OpSummary struct {
	Op        string
	Successes int
	Failures  int
}

// Summary gathers operation counters, sorted by op name
func (m *Metrics) Summary() ([]OpSummary, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	byOp := make(map[string]*OpSummary)
	for _, mf := range families {
		if mf.GetName() != namespace+"_operations_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			op, status := labels(metric)
			s, ok := byOp[op]
			if !ok {
				s = &OpSummary{Op: op}
				byOp[op] = s
			}
			n := int(metric.GetCounter().GetValue())
			if status == "success" {
				s.Successes += n
			} else {
				s.Failures += n
			}
		}
	}

	out := make([]OpSummary, 0, len(byOp))
	for _, s := range byOp {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Op < out[j].Op })
	return out, nil
}

func labels(metric *dto.Metric) (op, status string) {
	for _, lp := range metric.GetLabel() {
		switch lp.GetName() {
		case "op":
			op = lp.GetValue()
		case "status":
			status = lp.GetValue()
		}
	}
	return op, status
}
