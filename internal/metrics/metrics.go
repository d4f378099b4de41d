package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"route", "method", "status"},
	)
	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request duration seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "http_in_flight_requests", Help: "In-flight HTTP requests"},
	)
	AuthAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "auth_attempts_total", Help: "Sign-in attempts by method and result"},
		[]string{"method", "result"},
	)
	ResetCodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "password_reset_codes_total", Help: "Reset codes by stage (issued, verified, rejected)"},
		[]string{"stage"},
	)
	MailJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mail_jobs_total", Help: "Mail jobs handled by the notifier"},
		[]string{"result"},
	)
)

// MustRegister registers the collectors on the default registry. Safe to call
// more than once.
func MustRegister() {
	for _, c := range []prometheus.Collector{RequestsTotal, ReqDuration, InFlight, AuthAttempts, ResetCodes, MailJobs} {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
}

// Middleware records request count, latency and in-flight requests per route
// template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		ReqDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

func Handler() http.Handler { return promhttp.Handler() }

func Auth(method string, err error) {
	result := "ok"
	if err != nil {
		result = "fail"
	}
	AuthAttempts.WithLabelValues(method, result).Inc()
}
