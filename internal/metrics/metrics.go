// Package metrics defines the Prometheus collectors of the gateway.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	guardOutcomes   *prometheus.CounterVec
	initializations *prometheus.CounterVec
	callbacks       *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the collectors with reg. Collectors already registered by an
// earlier call are reused.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	m := &Metrics{gatherer: gatherer}
	var err error
	if m.guardOutcomes, err = registerCounter(reg, prometheus.CounterOpts{
		Name: "auth_guard_outcomes_total",
		Help: "Route guard decisions by outcome",
	}, "outcome"); err != nil {
		return nil, err
	}
	if m.initializations, err = registerCounter(reg, prometheus.CounterOpts{
		Name: "auth_initialize_total",
		Help: "Identity provider initializations by mode and result",
	}, "mode", "result"); err != nil {
		return nil, err
	}
	if m.callbacks, err = registerCounter(reg, prometheus.CounterOpts{
		Name: "auth_callback_total",
		Help: "Login callbacks by result",
	}, "result"); err != nil {
		return nil, err
	}
	if m.requests, err = registerCounter(reg, prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests processed",
	}, "method", "path", "status"); err != nil {
		return nil, err
	}

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
	if err := reg.Register(duration); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		duration = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	m.requestDuration = duration

	return m, nil
}

func registerCounter(reg prometheus.Registerer, opts prometheus.CounterOpts, labels ...string) (*prometheus.CounterVec, error) {
	counter := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(counter); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		return are.ExistingCollector.(*prometheus.CounterVec), nil
	}
	return counter, nil
}

// Handler serves the metrics page.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) GuardOutcome(outcome string) {
	if m == nil {
		return
	}
	m.guardOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Initialize(mode string, authenticated bool, err error) {
	if m == nil {
		return
	}
	result := "authenticated"
	switch {
	case err != nil:
		result = "error"
	case !authenticated:
		result = "unauthenticated"
	}
	m.initializations.WithLabelValues(mode, result).Inc()
}

func (m *Metrics) Callback(result string) {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues(result).Inc()
}

// Middleware counts requests and their latency by route pattern.
func (m *Metrics) Middleware(next http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		method := strings.ToUpper(r.Method)
		path := routeLabel(r)
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			m.requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		}()

		next(rec, r)
	}
}

// routeLabel uses the mux pattern so path parameters do not explode the label set.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	if _, path, ok := strings.Cut(r.Pattern, " "); ok {
		return path
	}
	return r.Pattern
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
