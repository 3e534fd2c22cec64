package metricsvc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/escuela/core/attendance"
	"github.com/trezcool/escuela/core/calendar"
)

const namespace = "escuela"

// Recorder exposes the calendar, attendance & HTTP metrics to prometheus.
type Recorder struct {
	registry *prometheus.Registry

	calendarGaps   *prometheus.CounterVec
	ambiguousWeeks *prometheus.CounterVec
	reports        *prometheus.HistogramVec
	digests        prometheus.Counter
	requests       *prometheus.HistogramVec
}

var (
	_ calendar.Observer   = (*Recorder)(nil)
	_ attendance.Observer = (*Recorder)(nil)
)

// NewRecorder registers the application metrics (plus the go & process collectors) in a new registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		calendarGaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calendar",
			Name:      "gaps_total",
			Help:      "Dates resolved outside of any bimester or academic week.",
		}, []string{"scope"}),
		ambiguousWeeks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calendar",
			Name:      "ambiguous_weeks_total",
			Help:      "Dates covered by more than one academic week.",
		}, []string{"bimester_id"}),
		reports: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "attendance",
			Name:      "report_duration_seconds",
			Help:      "Time spent computing attendance reports.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		digests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attendance",
			Name:      "digests_sent_total",
			Help:      "Daily attendance digests sent.",
		}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP requests latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.calendarGaps,
		r.ambiguousWeeks,
		r.reports,
		r.digests,
		r.requests,
	)
	return r
}

func (r *Recorder) CalendarGap(scope string) {
	r.calendarGaps.WithLabelValues(scope).Inc()
}

func (r *Recorder) AmbiguousWeek(bimesterID int64) {
	r.ambiguousWeeks.WithLabelValues(strconv.FormatInt(bimesterID, 10)).Inc()
}

func (r *Recorder) ReportComputed(kind string, elapsed time.Duration) {
	r.reports.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (r *Recorder) DigestsSent(n int) {
	r.digests.Add(float64(n))
}

// Handler serves the registry in the prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Middleware observes the latency of every request, labelled by route (not path) to bound cardinality.
func (r *Recorder) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			code := ctx.Response().Status
			if herr, ok := err.(*echo.HTTPError); ok {
				code = herr.Code
			}
			r.requests.
				WithLabelValues(ctx.Request().Method, ctx.Path(), strconv.Itoa(code)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
