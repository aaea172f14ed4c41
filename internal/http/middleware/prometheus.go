package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests that hit no route so scanners cannot blow up
// label cardinality.
const unmatchedRoute = "unmatched"

// methodUse is the Route.Method Fiber gives middleware registered with Use.
const methodUse = "USE"

// PrometheusMiddleware records request counts, latency and in-flight requests.
type PrometheusMiddleware struct {
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

func NewPrometheusMiddleware(reg prometheus.Registerer) (*PrometheusMiddleware, error) {
	m := &PrometheusMiddleware{
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "path"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Requests currently being served.",
		}),
	}

	for _, c := range []prometheus.Collector{m.requestCount, m.requestDuration, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler instruments every request except scrapes and probes.
func (m *PrometheusMiddleware) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if skipMetrics(c.Path()) {
			return c.Next()
		}

		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		route := routeLabel(c, status)
		m.requestCount.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())

		return err
	}
}

func skipMetrics(path string) bool {
	return path == "/metrics" || strings.HasPrefix(path, "/health")
}

// routeLabel returns the matched route pattern (e.g. /products/:id). A 404
// that only reached middleware (app or group Use routes match by prefix)
// is reported as unmatched.
func routeLabel(c *fiber.Ctx, status int) string {
	r := c.Route()
	if r == nil || r.Path == "" {
		return unmatchedRoute
	}
	if status == fiber.StatusNotFound && (r.Method == methodUse || r.Path == "/*") {
		return unmatchedRoute
	}
	return r.Path
}
