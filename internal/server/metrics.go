package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/deptree/pkg/observability"
)

// Metrics records server, resolution, cache and registry activity in a
// private Prometheus registry. It implements the observability hook
// interfaces; call Register to route library events to it.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	resolutions   prometheus.Counter
	resolveRoots  prometheus.Histogram
	resolveNodes  prometheus.Histogram
	resolveTime   prometheus.Histogram
	fetches       *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	cacheEvents   *prometheus.CounterVec
	cacheBytes    prometheus.Counter
	upstream      *prometheus.CounterVec
	upstreamTime  *prometheus.HistogramVec
}

// NewMetrics creates a Metrics with Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "deptree_http_requests_total",
			Help: "HTTP requests served by route, method and status",
		}, []string{"route", "method", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "deptree_http_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		resolutions: f.NewCounter(prometheus.CounterOpts{
			Name: "deptree_resolutions_total",
			Help: "Completed batch resolutions",
		}),
		resolveRoots: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "deptree_resolution_roots",
			Help:    "Root packages per resolution",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		resolveNodes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "deptree_resolution_nodes",
			Help:    "Nodes produced per resolution",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		resolveTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "deptree_resolution_duration_seconds",
			Help:    "Resolution wall time",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "deptree_registry_fetches_total",
			Help: "Registry fetches that missed the cache, by outcome",
		}, []string{"outcome"}),
		fetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "deptree_registry_fetch_duration_seconds",
			Help:    "Registry fetch duration including fallback",
			Buckets: prometheus.DefBuckets,
		}),
		cacheEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "deptree_cache_events_total",
			Help: "Cache hits, misses and writes by key type",
		}, []string{"key_type", "event"}),
		cacheBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "deptree_cache_written_bytes_total",
			Help: "Bytes written to the cache",
		}),
		upstream: f.NewCounterVec(prometheus.CounterOpts{
			Name: "deptree_upstream_requests_total",
			Help: "Outgoing registry HTTP requests by host and status",
		}, []string{"host", "status"}),
		upstreamTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "deptree_upstream_request_duration_seconds",
			Help:    "Outgoing registry HTTP request duration by host",
			Buckets: prometheus.DefBuckets,
		}, []string{"host"}),
	}
}

// Register installs m as the process-wide observability hooks.
func (m *Metrics) Register() {
	observability.SetResolveHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) OnResolveStart(ctx context.Context, roots int) {
	m.resolveRoots.Observe(float64(roots))
}

func (m *Metrics) OnResolveComplete(ctx context.Context, roots, nodes int, d time.Duration) {
	m.resolutions.Inc()
	m.resolveNodes.Observe(float64(nodes))
	m.resolveTime.Observe(d.Seconds())
}

func (m *Metrics) OnFetch(ctx context.Context, outcome string, d time.Duration) {
	m.fetches.WithLabelValues(outcome).Inc()
	m.fetchDuration.Observe(d.Seconds())
}

func (m *Metrics) OnCacheHit(ctx context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(ctx context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(ctx context.Context, keyType string, size int) {
	m.cacheEvents.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.Add(float64(size))
}

func (m *Metrics) OnRequest(ctx context.Context, method, host, path string) {}

func (m *Metrics) OnResponse(ctx context.Context, method, host, path string, status int, d time.Duration) {
	m.upstream.WithLabelValues(host, strconv.Itoa(status)).Inc()
	m.upstreamTime.WithLabelValues(host).Observe(d.Seconds())
}

func (m *Metrics) OnError(ctx context.Context, method, host, path string, err error) {
	m.upstream.WithLabelValues(host, "error").Inc()
}

// routePattern labels requests by chi route so IDs in paths never explode
// label cardinality.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

var (
	_ observability.ResolveHooks = (*Metrics)(nil)
	_ observability.CacheHooks   = (*Metrics)(nil)
	_ observability.HTTPHooks    = (*Metrics)(nil)
)
