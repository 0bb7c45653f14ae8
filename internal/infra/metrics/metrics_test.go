package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func gatheredNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestTaskCounters(t *testing.T) {
	TasksCreated.Inc()
	TaskTransitions.WithLabelValues("COMPLETED").Inc()
	OperationsFailed.WithLabelValues("validate_task", "unauthorized").Inc()
	OperationLatency.WithLabelValues("create_task").Observe(0.002)

	names := gatheredNames(t)
	expected := []string{
		"tasklist_tasks_created_total",
		"tasklist_task_transitions_total",
		"tasklist_operations_failed_total",
		"tasklist_operation_latency_seconds",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestEscrowMetrics(t *testing.T) {
	EscrowFunded.Add(10)
	EscrowPaid.Add(5)
	ContractBalance.Set(5)

	names := gatheredNames(t)
	for _, name := range []string{
		"tasklist_escrow_funded_total",
		"tasklist_escrow_paid_total",
		"tasklist_contract_balance",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestRewardAndRecordMetrics(t *testing.T) {
	RewardsMinted.Add(2)
	RewardsCompensated.Add(1)
	RecordsEmitted.WithLabelValues("task_created").Inc()
	RecordSubscribers.Set(1)
	HealthCheckStatus.WithLabelValues("sqlite").Set(1)

	names := gatheredNames(t)
	for _, name := range []string{
		"tasklist_rewards_minted_total",
		"tasklist_rewards_compensated_total",
		"tasklist_records_emitted_total",
		"tasklist_record_subscribers",
		"tasklist_health_check_status",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}
