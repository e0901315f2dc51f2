package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the counters for contact review and HTTP traffic. It
// satisfies contacts.Observer.
type Collector struct {
	registry *prometheus.Registry

	submitted   *prometheus.CounterVec
	decided     *prometheus.CounterVec
	credits     prometheus.Counter
	requests    *prometheus.CounterVec
	reqDuration *prometheus.HistogramVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ambassador_contacts_submitted_total",
			Help: "Contacts submitted for review, by source.",
		}, []string{"source"}),
		decided: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ambassador_contacts_decided_total",
			Help: "Review decisions, by resulting status.",
		}, []string{"status"}),
		credits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ambassador_credits_awarded_total",
			Help: "Credits awarded to ambassadors.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ambassador_http_requests_total",
			Help: "HTTP requests, by route and status code.",
		}, []string{"method", "route", "code"}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ambassador_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.submitted, c.decided, c.credits, c.requests, c.reqDuration,
	)
	return c
}

func (c *Collector) ContactSubmitted(source string) { c.submitted.WithLabelValues(source).Inc() }

func (c *Collector) ContactDecided(status string) { c.decided.WithLabelValues(status).Inc() }

func (c *Collector) CreditsAwarded(amount int) { c.credits.Add(float64(amount)) }

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records every request under its route pattern.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.requests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.reqDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
