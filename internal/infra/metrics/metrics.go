// Package metrics provides Prometheus metrics for the task list.
// Counters, gauges and histograms for task operations, escrow, rewards,
// record fanout and health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Tasks ──────────────────────────────────────────────────────────────────

// TasksCreated counts created tasks.
var TasksCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "tasklist",
	Name:      "tasks_created_total",
	Help:      "Total tasks created.",
})

// TaskTransitions counts state transitions by target state.
var TaskTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tasklist",
	Name:      "task_transitions_total",
	Help:      "Total task state transitions by resulting state.",
}, []string{"state"})

// OperationsFailed counts rejected operations by operation and error kind.
var OperationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tasklist",
	Name:      "operations_failed_total",
	Help:      "Total rejected task operations.",
}, []string{"operation", "kind"})

// OperationLatency tracks how long a committed operation held the writer.
var OperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "tasklist",
	Name:      "operation_latency_seconds",
	Help:      "Task operation duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
}, []string{"operation"})

// ─── Escrow ─────────────────────────────────────────────────────────────────

// EscrowFunded counts native units deposited into task escrow.
var EscrowFunded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "tasklist",
	Name:      "escrow_funded_total",
	Help:      "Total native units deposited into task escrow.",
})

// EscrowPaid counts native units paid out to workers.
var EscrowPaid = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "tasklist",
	Name:      "escrow_paid_total",
	Help:      "Total native units paid out to workers.",
})

// ContractBalance tracks the aggregate escrow balance.
var ContractBalance = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "tasklist",
	Name:      "contract_balance",
	Help:      "Sum of all task escrow balances.",
})

// ─── Rewards ────────────────────────────────────────────────────────────────

// RewardsMinted counts reward units minted to workers.
var RewardsMinted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "tasklist",
	Name:      "rewards_minted_total",
	Help:      "Total reward units minted.",
})

// RewardsCompensated counts reward units burned to undo a failed validation.
var RewardsCompensated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "tasklist",
	Name:      "rewards_compensated_total",
	Help:      "Total reward units burned during validation rollback.",
})

// ─── Records ────────────────────────────────────────────────────────────────

// RecordsEmitted counts committed records by operation.
var RecordsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tasklist",
	Name:      "records_emitted_total",
	Help:      "Total committed operation records.",
}, []string{"operation"})

// RecordSubscribers tracks live record observers.
var RecordSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "tasklist",
	Name:      "record_subscribers",
	Help:      "Number of live record subscribers.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "tasklist",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})
