package tool

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
)

// unresolvedToolLabel keeps model-invented tool names out of label values.
const unresolvedToolLabel = "unresolved"

type Metrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics registers the dispatcher collectors on reg. Registering twice on
// the same registry reuses the collectors already present.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	invocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "telecom_assistant",
		Subsystem: "tool",
		Name:      "invocations_total",
		Help:      "Tool invocations by tool, status and error kind.",
	}, []string{"tool", "status", "error_kind"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "telecom_assistant",
		Subsystem: "tool",
		Name:      "duration_seconds",
		Help:      "Tool handler latency.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"tool"})

	var err error
	if invocations, err = register(reg, invocations); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	return &Metrics{invocations: invocations, duration: duration}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) observe(tool string, res contractx.ToolResult, elapsed time.Duration) {
	if m == nil {
		return
	}
	if res.ErrorKind == contractx.ErrorKindUnknownTool {
		tool = unresolvedToolLabel
	}
	m.invocations.WithLabelValues(tool, string(res.Status), string(res.ErrorKind)).Inc()
	m.duration.WithLabelValues(tool).Observe(elapsed.Seconds())
}
