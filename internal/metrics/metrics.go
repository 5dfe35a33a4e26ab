package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nft_monitor"

// Run results
const (
	RunResultSuccess = "success"
	RunResultEmpty   = "empty"
	RunResultError   = "error"
)

// Recorder receives the outcome of monitor runs
type Recorder interface {
	// ObserveRun records one run and its duration
	ObserveRun(result string, duration time.Duration)
	// AddEventsPersisted counts transfer events saved to the store
	AddEventsPersisted(count int)
	// SetWatermark publishes the last checked block
	SetWatermark(blockNumber uint64)
}

// MonitorMetrics is the Prometheus Recorder
type MonitorMetrics struct {
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	eventsPersisted prometheus.Counter
	watermark       prometheus.Gauge
}

// NewMonitorMetrics creates the monitor collectors and registers them on reg
func NewMonitorMetrics(reg prometheus.Registerer) (*MonitorMetrics, error) {
	m := &MonitorMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "runs_total", Help: "Monitor runs by result"},
			[]string{"result"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{Namespace: namespace, Name: "run_duration_seconds", Help: "Monitor run latency", Buckets: prometheus.DefBuckets},
		),
		eventsPersisted: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: namespace, Name: "events_persisted_total", Help: "Transfer events saved"},
		),
		watermark: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: namespace, Name: "last_block_checked", Help: "Last checked block number"},
		),
	}

	for _, c := range []prometheus.Collector{m.runsTotal, m.runDuration, m.eventsPersisted, m.watermark} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *MonitorMetrics) ObserveRun(result string, duration time.Duration) {
	m.runsTotal.WithLabelValues(result).Inc()
	m.runDuration.Observe(duration.Seconds())
}

func (m *MonitorMetrics) AddEventsPersisted(count int) {
	m.eventsPersisted.Add(float64(count))
}

func (m *MonitorMetrics) SetWatermark(blockNumber uint64) {
	m.watermark.Set(float64(blockNumber))
}

// HTTPMetrics tracks API requests
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics creates the HTTP collectors and registers them on reg
func NewHTTPMetrics(reg prometheus.Registerer) (*HTTPMetrics, error) {
	m := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests"},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "Request latency", Buckets: prometheus.DefBuckets},
			[]string{"method", "route"},
		),
	}

	for _, c := range []prometheus.Collector{m.requestsTotal, m.requestDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// ObserveRequest records one served request
func (m *HTTPMetrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

type nopRecorder struct{}

// NewNopRecorder returns a Recorder that drops everything
func NewNopRecorder() Recorder {
	return nopRecorder{}
}

func (nopRecorder) ObserveRun(string, time.Duration) {}
func (nopRecorder) AddEventsPersisted(int)           {}
func (nopRecorder) SetWatermark(uint64)              {}
