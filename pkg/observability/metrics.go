package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/callflow/pkg/domain"
)

// Metrics holds the Prometheus collectors fed by MetricsHooks.
type Metrics struct {
	NodeVisits     *prometheus.CounterVec
	ActionResults  *prometheus.CounterVec
	ActionDuration *prometheus.HistogramVec
	Rejections     *prometheus.CounterVec
	Ended          prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callflow_node_visits_total",
				Help: "Total number of node entries",
			},
			[]string{"node_id"},
		),
		ActionResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callflow_action_results_total",
				Help: "Action executions by status and error reason",
			},
			[]string{"action", "status", "reason"},
		),
		ActionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "callflow_action_duration_seconds",
				Help:    "Duration of action handler executions, retries included",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 20},
			},
			[]string{"action"},
		),
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callflow_action_rejections_total",
				Help: "Invocations of actions not offered by the current node",
			},
			[]string{"node_id"},
		),
		Ended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "callflow_conversations_ended_total",
			Help: "Conversations terminated by end_conversation",
		}),
	}

	for _, c := range []prometheus.Collector{m.NodeVisits, m.ActionResults, m.ActionDuration, m.Rejections, m.Ended} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks records lifecycle events into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.NodeID).Inc()
		},
		OnActionReturn: func(ctx context.Context, e *domain.ActionEvent) {
			status, reason := "unknown", ""
			if e.Result != nil {
				status, reason = string(e.Result.Status), string(e.Result.Reason)
			}
			m.ActionResults.WithLabelValues(e.Action, status, reason).Inc()
			m.ActionDuration.WithLabelValues(e.Action).Observe(e.Duration.Seconds())
		},
		OnActionRejected: func(ctx context.Context, e *domain.ActionEvent) {
			m.Rejections.WithLabelValues(e.NodeID).Inc()
		},
		OnEnd: func(ctx context.Context, e *domain.NodeEvent) {
			m.Ended.Inc()
		},
	}
}
