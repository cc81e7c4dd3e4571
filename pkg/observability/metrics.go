package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/hangar/pkg/httputil"
	"github.com/platinummonkey/hangar/pkg/plugins"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Control protocol metrics
	ControlAuthTotal *prometheus.CounterVec
	RateLimitedTotal prometheus.Counter

	// Plugin metrics
	PluginTransitionsTotal *prometheus.CounterVec
	Plugins                *prometheus.GaugeVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hangar_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hangar_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ControlAuthTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hangar_control_auth_total",
				Help: "Signed control request verifications by result",
			},
			[]string{"result"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hangar_rate_limited_total",
				Help: "Control requests rejected by the rate limiter",
			},
		),
		PluginTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hangar_plugin_transitions_total",
				Help: "Plugin lifecycle transitions by target status",
			},
			[]string{"to"},
		),
		Plugins: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hangar_plugins",
				Help: "Registered plugins by lifecycle status",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ControlAuthTotal,
		m.RateLimitedTotal,
		m.PluginTransitionsTotal,
		m.Plugins,
	)

	return m
}

// RecordAuth counts one verification outcome
func (m *Metrics) RecordAuth(result string) {
	m.ControlAuthTotal.WithLabelValues(result).Inc()
}

// RecordRateLimited counts one rate-limited request
func (m *Metrics) RecordRateLimited() {
	m.RateLimitedTotal.Inc()
}

// ObserveTransition is a registry observer keeping the plugin gauges current
func (m *Metrics) ObserveTransition(name string, from, to plugins.Status) {
	m.PluginTransitionsTotal.WithLabelValues(to.String()).Inc()
	m.Plugins.WithLabelValues(from.String()).Dec()
	m.Plugins.WithLabelValues(to.String()).Inc()
}

// SetPluginCounts overwrites the plugin gauges
func (m *Metrics) SetPluginCounts(counts map[plugins.Status]int) {
	for _, status := range plugins.Statuses {
		m.Plugins.WithLabelValues(status.String()).Set(float64(counts[status]))
	}
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Requests are labelled by their mux route template.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := httputil.NewStatusRecorder(w)

			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.Status())).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, gatherer prometheus.Gatherer) {
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
