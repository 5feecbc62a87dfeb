package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fx_portal",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fx_portal",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	applications = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fx_portal",
		Name:      "applications_total",
		Help:      "Applications accepted through onboarding.",
	})

	activations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fx_portal",
		Name:      "sunday_activations_total",
		Help:      "Clients moved to active by the Sunday batch.",
	}, []string{"trigger"})

	proofs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fx_portal",
		Name:      "payment_proofs_total",
		Help:      "Payment proofs by lifecycle step.",
	}, []string{"step"})

	chats = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fx_portal",
		Name:      "assistant_chats_total",
		Help:      "Assistant conversations by outcome.",
	}, []string{"outcome"})

	balanceUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fx_portal",
		Name:      "balance_updates_total",
		Help:      "Broker balance updates applied, by source.",
	}, []string{"source"})

	streamSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fx_portal",
		Name:      "change_stream_subscribers",
		Help:      "Open change stream connections.",
	})
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		applications,
		activations,
		proofs,
		chats,
		balanceUpdates,
		streamSubscribers,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}

		httpRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

func ApplicationReceived() { applications.Inc() }

func ClientsActivated(trigger string, n int) {
	activations.WithLabelValues(trigger).Add(float64(n))
}

func ProofSubmitted() { proofs.WithLabelValues("submitted").Inc() }
func ProofConfirmed() { proofs.WithLabelValues("confirmed").Inc() }

func ChatFinished(outcome string) { chats.WithLabelValues(outcome).Inc() }

func BalancesApplied(source string, n int) {
	balanceUpdates.WithLabelValues(source).Add(float64(n))
}

func StreamOpened() { streamSubscribers.Inc() }
func StreamClosed() { streamSubscribers.Dec() }
