// Package metrics собирает Prometheus-метрики аутентификации и HTTP.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Значения label outcome
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// MetricsCollector is what services and middleware record into.
type MetricsCollector interface {
	RecordRegistration()
	RecordLogin(surface, outcome string)
	RecordTokenConsumption(kind, outcome string)
	RecordSessionRotation(outcome string)
	RecordNotification(template, outcome string)
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

type Collector struct {
	registrations     prometheus.Counter
	logins            *prometheus.CounterVec
	tokenConsumptions *prometheus.CounterVec
	sessionRotations  *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewCollector создает Collector и регистрирует метрики в reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Accounts created through registration or admin bootstrap.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by login surface and outcome.",
		}, []string{"surface", "outcome"}),
		tokenConsumptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_token_consumptions_total",
			Help: "Single-use token validations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		sessionRotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_session_rotations_total",
			Help: "Refresh token rotations by outcome.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_notifications_total",
			Help: "Outgoing emails by template and outcome.",
		}, []string{"template", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.registrations,
		c.logins,
		c.tokenConsumptions,
		c.sessionRotations,
		c.notifications,
		c.httpRequests,
		c.httpDuration,
	)
	return c
}

func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

func (c *Collector) RecordLogin(surface, outcome string) {
	c.logins.WithLabelValues(surface, outcome).Inc()
}

func (c *Collector) RecordTokenConsumption(kind, outcome string) {
	c.tokenConsumptions.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) RecordSessionRotation(outcome string) {
	c.sessionRotations.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordNotification(template, outcome string) {
	c.notifications.WithLabelValues(template, outcome).Inc()
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Nop discards everything. Used where no registry is wired, e.g. the admin CLI.
type Nop struct{}

func (Nop) RecordRegistration() {}
func (Nop) RecordLogin(string, string) {}
func (Nop) RecordTokenConsumption(string, string) {}
func (Nop) RecordSessionRotation(string) {}
func (Nop) RecordNotification(string, string) {}
func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}

// Outcome maps an error to the outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// Handler возвращает HTTP-обработчик для скрейпа Prometheus
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
