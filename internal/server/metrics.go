package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/metaxime/pathview/pkg/observability"
)

// Metrics collects dashboard metrics on its own registry. It implements the
// pipeline, cache and HTTP hook interfaces of pkg/observability.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	fetches         *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	layoutDuration  *prometheus.HistogramVec
	layoutNodes     prometheus.Histogram
	renders         *prometheus.CounterVec
	structureErrors prometheus.Counter
	cacheEvents     *prometheus.CounterVec
	cacheBytes      *prometheus.CounterVec
	backendCalls    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	backendErrors   *prometheus.CounterVec
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)

// NewMetrics creates the collectors on a fresh registry that also carries
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pathview_http_requests_total",
			Help: "Dashboard requests, labelled by route pattern and status code.",
		}, []string{"route", "code"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pathview_http_request_duration_seconds",
			Help:    "Dashboard request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pathview_fetches_total",
			Help: "Backend fetches by resource and outcome.",
		}, []string{"resource", "outcome"}),
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pathview_fetch_duration_seconds",
			Help:    "Backend fetch latency by resource.",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource"}),
		layoutDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pathview_layout_duration_seconds",
			Help:    "Layout pass latency by engine.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"engine"}),
		layoutNodes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pathview_layout_nodes",
			Help:    "Visible nodes per layout pass.",
			Buckets: []float64{5, 10, 25, 50, 100, 250},
		}),
		renders: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pathview_renders_total",
			Help: "Diagram exports by format and outcome.",
		}, []string{"format", "outcome"}),
		structureErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "pathview_structure_errors_total",
			Help: "Compound structures that could not be depicted.",
		}),
		cacheEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pathview_cache_events_total",
			Help: "Cache lookups and writes by key type and event.",
		}, []string{"key_type", "event"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pathview_cache_written_bytes_total",
			Help: "Bytes written to the cache by key type.",
		}, []string{"key_type"}),
		backendCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pathview_backend_requests_total",
			Help: "Requests sent to the prediction backend by method and status code.",
		}, []string{"method", "code"}),
		backendDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pathview_backend_request_duration_seconds",
			Help:    "Prediction backend latency by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		backendErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pathview_backend_errors_total",
			Help: "Transport failures talking to the prediction backend.",
		}, []string{"method"}),
	}
}

// Install registers m as the process-wide observability hooks.
func (m *Metrics) Install() {
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveRequest records one served dashboard request.
func (m *Metrics) ObserveRequest(route string, code int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) OnFetchStart(context.Context, string) {}

func (m *Metrics) OnFetchComplete(_ context.Context, resource string, d time.Duration, err error) {
	m.fetches.WithLabelValues(resource, outcome(err)).Inc()
	m.fetchDuration.WithLabelValues(resource).Observe(d.Seconds())
}

func (m *Metrics) OnLayoutStart(_ context.Context, _ string, nodes int) {
	m.layoutNodes.Observe(float64(nodes))
}

func (m *Metrics) OnLayoutComplete(_ context.Context, engine string, d time.Duration, _ error) {
	m.layoutDuration.WithLabelValues(engine).Observe(d.Seconds())
}

func (m *Metrics) OnRenderStart(context.Context, string) {}

func (m *Metrics) OnRenderComplete(_ context.Context, format string, _ time.Duration, err error) {
	m.renders.WithLabelValues(format, outcome(err)).Inc()
}

func (m *Metrics) OnStructureError(context.Context, string, error) {
	m.structureErrors.Inc()
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheEvents.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, method, _, _ string, code int, d time.Duration) {
	m.backendCalls.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.backendDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) OnError(_ context.Context, method, _, _ string, _ error) {
	m.backendErrors.WithLabelValues(method).Inc()
}
