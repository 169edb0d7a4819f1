package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	PassManual = "manual"
	PassAuto   = "auto"
)

// Collector holds the scheduler and journey metrics. A nil *Collector is valid and records nothing.
type Collector struct {
	reg *prometheus.Registry

	Ticks            prometheus.Counter
	Passes           *prometheus.CounterVec // kind label: manual|auto
	SkippedPasses    prometheus.Counter
	ListenerFailures *prometheus.CounterVec // listener label
	LiveMode         prometheus.Gauge
	LiveTimeouts     prometheus.Counter
	Listeners        prometheus.Gauge

	PassDuration prometheus.Histogram

	Journeys        prometheus.Gauge
	IngestedEvents  prometheus.Counter
	IngestRejected  prometheus.Counter
	ViewBuildErrors prometheus.Counter
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transitlog_clock_ticks_total",
			Help: "Total live mode ticks handled.",
		}),
		Passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transitlog_clock_update_passes_total",
			Help: "Update passes that notified listeners.",
		}, []string{"kind"}),
		SkippedPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transitlog_clock_skipped_passes_total",
			Help: "Auto passes skipped because the clock was not current.",
		}),
		ListenerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transitlog_clock_listener_failures_total",
			Help: "Listener invocations that returned an error or panicked.",
		}, []string{"listener"}),
		LiveMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transitlog_clock_live",
			Help: "1 if the clock is in live mode, 0 otherwise.",
		}),
		LiveTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transitlog_clock_live_timeouts_total",
			Help: "Live sessions ended by the safety timeout.",
		}),
		Listeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transitlog_clock_listeners",
			Help: "Number of registered update listeners.",
		}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transitlog_clock_pass_duration_seconds",
			Help:    "Duration of update passes.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		Journeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transitlog_journeys",
			Help: "Number of reconciled journeys in the store.",
		}),
		IngestedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transitlog_ingest_events_total",
			Help: "Position events appended from the ingest queue.",
		}),
		IngestRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transitlog_ingest_rejected_total",
			Help: "Ingest deliveries rejected as undecodable.",
		}),
		ViewBuildErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transitlog_view_build_errors_total",
			Help: "Journey view builds that failed.",
		}),
	}

	reg.MustRegister(
		c.Ticks, c.Passes, c.SkippedPasses, c.ListenerFailures,
		c.LiveMode, c.LiveTimeouts, c.Listeners, c.PassDuration,
		c.Journeys, c.IngestedEvents, c.IngestRejected, c.ViewBuildErrors,
	)

	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.reg
}

func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveTick() {
	if c == nil {
		return
	}
	c.Ticks.Inc()
}

func (c *Collector) ObservePass(kind string, seconds float64) {
	if c == nil {
		return
	}
	c.Passes.WithLabelValues(kind).Inc()
	c.PassDuration.Observe(seconds)
}

func (c *Collector) ObserveSkippedPass() {
	if c == nil {
		return
	}
	c.SkippedPasses.Inc()
}

func (c *Collector) ObserveListenerFailure(name string) {
	if c == nil {
		return
	}
	c.ListenerFailures.WithLabelValues(name).Inc()
}

func (c *Collector) SetLive(live bool) {
	if c == nil {
		return
	}
	if live {
		c.LiveMode.Set(1)
	} else {
		c.LiveMode.Set(0)
	}
}

func (c *Collector) ObserveLiveTimeout() {
	if c == nil {
		return
	}
	c.LiveTimeouts.Inc()
}

func (c *Collector) SetListeners(count int) {
	if c == nil {
		return
	}
	c.Listeners.Set(float64(count))
}

func (c *Collector) SetJourneys(count int) {
	if c == nil {
		return
	}
	c.Journeys.Set(float64(count))
}

func (c *Collector) ObserveIngested(count int) {
	if c == nil {
		return
	}
	c.IngestedEvents.Add(float64(count))
}

func (c *Collector) ObserveIngestRejected() {
	if c == nil {
		return
	}
	c.IngestRejected.Inc()
}

func (c *Collector) ObserveViewBuildError() {
	if c == nil {
		return
	}
	c.ViewBuildErrors.Inc()
}
