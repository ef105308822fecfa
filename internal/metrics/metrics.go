package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	imageRefreshes  prometheus.Counter
	uploadTokens    prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "journal",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "journal",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		imageRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "journal",
			Name:      "image_url_refreshes_total",
			Help:      "Expired project image URLs that were signed again.",
		}),
		uploadTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "journal",
			Name:      "upload_tokens_total",
			Help:      "Upload URLs handed out to clients.",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.imageRefreshes,
		m.uploadTokens,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) ImageRefreshed() {
	if m != nil {
		m.imageRefreshes.Inc()
	}
}

func (m *Metrics) UploadTokenIssued() {
	if m != nil {
		m.uploadTokens.Inc()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records every request under its chi route pattern, so ids in
// query strings or paths do not blow up label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
