// Package metrics exposes Prometheus metrics for the dashboard actions,
// the queues and the HTTP layer.
package metrics

import (
	"github.com/ksred/watchdog/internal/approval"
	"github.com/ksred/watchdog/internal/queue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ActionsTotal counts every dashboard action by outcome
var ActionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "watchdog",
		Name:      "actions_total",
		Help:      "Total number of dashboard actions",
	},
	[]string{"action", "outcome"}, // outcome: success, failed
)

// PromotionsTotal counts records moved to the terminal's queues
var PromotionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "watchdog",
		Name:      "promotions_total",
		Help:      "Total number of records promoted after both approvals",
	},
	[]string{"workflow"},
)

// QueueDepth is the number of lines in each queue at the last scan
var QueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "watchdog",
		Name:      "queue_depth",
		Help:      "Current number of records in each queue",
	},
	[]string{"queue"},
)

// OpenPositions is the number of positions in the terminal's snapshot
var OpenPositions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "watchdog",
		Name:      "open_positions",
		Help:      "Open positions reported by the terminal",
	},
)

// ExternalChanges counts queue changes made outside the dashboard,
// usually the terminal consuming a queue
var ExternalChanges = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "watchdog",
		Name:      "external_queue_changes_total",
		Help:      "Queue depth changes not caused by a dashboard action",
	},
	[]string{"queue", "direction"}, // direction: grew, shrank
)

// HTTPRequestDuration tracks API latency
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "watchdog",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	},
	[]string{"method", "route", "status"},
)

var workflowBySource = map[queue.Name]string{
	approval.Orders.Source:        approval.Orders.Name,
	approval.Modifications.Source: approval.Modifications.Name,
}

// Collector turns approval outcomes into metrics
type Collector struct{}

func NewCollector() *Collector {
	return &Collector{}
}

// Observe implements approval.Observer
func (c *Collector) Observe(o approval.Outcome) {
	outcome := "success"
	if !o.Success {
		outcome = "failed"
	}
	ActionsTotal.WithLabelValues(string(o.Action), outcome).Inc()

	if o.Success && o.Promoted {
		PromotionsTotal.WithLabelValues(workflowBySource[o.Queue]).Inc()
	}
}
