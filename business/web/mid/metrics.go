package mid

import (
	"context"
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ardanlabs/fundme/foundation/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set of metrics collected for every request.
var (
	requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fundme",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests.",
		},
		[]string{"method", "status"},
	)

	duration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fundme",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method"},
	)

	errorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fundme",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Total number of requests that returned an error.",
		},
	)

	goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fundme",
			Subsystem: "api",
			Name:      "goroutines",
			Help:      "Number of goroutines sampled every 100 requests.",
		},
	)
)

// Metrics updates program counters.
func Metrics() web.Middleware {
	var n atomic.Uint64

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			start := time.Now()

			// Call the next handler.
			err := handler(ctx, w, r)

			status := http.StatusOK
			if v, verr := web.GetValues(ctx); verr == nil && v.StatusCode != 0 {
				status = v.StatusCode
			}

			requests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
			duration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())

			// Update the count for the number of active goroutines every 100 requests.
			if n.Add(1)%100 == 0 {
				goroutines.Set(float64(runtime.NumGoroutine()))
			}

			// Increment if there is an error flowing through the request.
			if err != nil {
				errorsTotal.Inc()
			}

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return m
}
