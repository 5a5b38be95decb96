// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var LedgerMutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "campuscoin",
	Subsystem: "ledger",
	Name:      "mutations_total",
	Help:      "Committed balance mutations by ledger and kind.",
}, []string{"ledger", "kind"})

var LedgerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "campuscoin",
	Subsystem: "ledger",
	Name:      "rejections_total",
	Help:      "Balance mutations refused before commit, by reason.",
}, []string{"reason"})

var RedemptionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "campuscoin",
	Subsystem: "redemption",
	Name:      "transitions_total",
	Help:      "Redemption requests created and processed, by resulting status.",
}, []string{"status"})

var WeeklyCreditOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "campuscoin",
	Subsystem: "weekly_credit",
	Name:      "accounts_total",
	Help:      "Per-account weekly credit outcomes.",
}, []string{"outcome"})

var MessPayments = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "campuscoin",
	Subsystem: "mess",
	Name:      "payments_total",
	Help:      "Recorded mess payments by method.",
}, []string{"method"})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "campuscoin",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by route pattern, method and status code.",
}, []string{"route", "method", "code"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "campuscoin",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route pattern.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route", "method"})

// Instrument records request count and latency under the matched chi route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
