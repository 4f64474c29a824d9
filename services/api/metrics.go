package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector tracks session lifecycle counts for Prometheus.
type Collector struct {
	started    *prometheus.CounterVec
	completed  prometheus.Counter
	cancelled  prometheus.Counter
	sweepCount prometheus.Counter
}

// NewCollector registers the focusd API metrics on the given registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "focusd_sessions_started_total",
			Help: "Sessions created, by session type.",
		}, []string{"type"}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "focusd_sessions_completed_total",
			Help: "Sessions that reached COMPLETED.",
		}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "focusd_sessions_cancelled_total",
			Help: "Sessions force-cancelled by a superseding start.",
		}),
		sweepCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "focusd_stale_sessions_swept_total",
			Help: "Stale paused sessions deleted by the listing sweep.",
		}),
	}

	reg.MustRegister(c.started, c.completed, c.cancelled, c.sweepCount)
	return c
}

func (c *Collector) recordStart(sessionType string) {
	if c == nil {
		return
	}
	c.started.WithLabelValues(sessionType).Inc()
}

func (c *Collector) recordCompleted() {
	if c == nil {
		return
	}
	c.completed.Inc()
}

func (c *Collector) recordCancelled(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.cancelled.Add(float64(n))
}

func (c *Collector) recordSwept(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.sweepCount.Add(float64(n))
}
