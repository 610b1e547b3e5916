package dispatcher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess  = "success"
	resultError    = "error"
	resultConflict = "conflict"

	operationCreateOrUpdate = "createOrUpdate"
	operationDelete         = "delete"
)

// Metrics 是 dispatcher 的 prometheus 指标。nil 的 *Metrics 可以安全使用。
type Metrics struct {
	events          *prometheus.CounterVec
	controllerCalls *prometheus.CounterVec
	replaces        *prometheus.CounterVec
	eventDuration   *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: "dispatcher",
				Name:      "events_total",
				Help:      "Number of watch events received, by action.",
			},
			[]string{"dispatcher", "action"},
		),
		controllerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: "dispatcher",
				Name:      "controller_calls_total",
				Help:      "Number of controller invocations, by operation and result.",
			},
			[]string{"dispatcher", "operation", "result"},
		),
		replaces: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: "dispatcher",
				Name:      "replace_total",
				Help:      "Number of version-checked replaces, by result.",
			},
			[]string{"dispatcher", "result"},
		),
		eventDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Subsystem: "dispatcher",
				Name:      "event_duration_seconds",
				Help:      "Time spent handling one watch event.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"dispatcher", "action"},
		),
	}
}

// Register 把所有指标注册到 reg
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.events, m.controllerCalls, m.replaces, m.eventDuration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) recordEvent(name, action string, start time.Time) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(name, action).Inc()
	m.eventDuration.WithLabelValues(name, action).Observe(time.Since(start).Seconds())
}

func (m *Metrics) recordControllerCall(name, operation string, err error) {
	if m == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	m.controllerCalls.WithLabelValues(name, operation, result).Inc()
}

func (m *Metrics) recordReplace(name, result string) {
	if m == nil {
		return
	}
	m.replaces.WithLabelValues(name, result).Inc()
}
