// Package hours accumulates worked hours per (task, worker).
package hours

import (
	"fmt"
	"time"

	"github.com/ppc-network/tasklist/internal/app/access"
	"github.com/ppc-network/tasklist/internal/app/records"
	"github.com/ppc-network/tasklist/internal/domain"
	"github.com/ppc-network/tasklist/internal/infra/sqlite"
)

// Ledger records hours reported by workers.
type Ledger struct {
	access *access.Control
	now    func() time.Time
}

// NewLedger creates an hours ledger gated by ac.
func NewLedger(ac *access.Control) *Ledger {
	return &Ledger{access: ac, now: time.Now}
}

// Add credits hours to the caller on the task and returns the new total.
// Hours are frozen once the task is validated.
func (l *Ledger) Add(s *sqlite.Store, b *records.Batch, caller domain.Address, taskID, hours int64) (int64, error) {
	task, err := s.RequireTask(taskID)
	if err != nil {
		return 0, err
	}
	if err := l.access.RequireWorker(s, taskID, caller, domain.ReasonWorkerNotAssigned); err != nil {
		return 0, err
	}
	if hours <= 0 {
		return 0, domain.NewTaskError(domain.ErrInvalidArgument, domain.ReasonHoursNotPositive)
	}
	if task.IsTerminal() {
		return 0, domain.NewTaskError(domain.ErrInvalidState, domain.ReasonTaskValidated)
	}

	// Reject deltas that would push the worker's or the task's total past int64.
	totals, err := s.TaskWorkedHours(taskID)
	if err != nil {
		return 0, fmt.Errorf("load worked hours: %w", err)
	}
	sum := hours
	for _, h := range totals {
		var ok bool
		if sum, ok = domain.AddAmount(sum, h.Hours); !ok {
			return 0, domain.NewTaskError(domain.ErrInvalidArgument, domain.ReasonHoursOverflow)
		}
	}

	total, err := s.AddWorkedHours(taskID, caller, hours, l.now())
	if err != nil {
		return 0, fmt.Errorf("add worked hours: %w", err)
	}

	_, err = b.Emit(domain.OpWorkedHoursAdded, taskID, caller, task.State, map[string]any{
		"worker": caller,
		"hours":  hours,
		"total":  total,
	})
	return total, err
}

// Get returns the hours of worker on the task, 0 if none were reported.
func (l *Ledger) Get(s *sqlite.Store, taskID int64, worker domain.Address) (int64, error) {
	return s.WorkedHours(taskID, worker)
}

// Totals returns the hours of every worker that reported any, in
// enrollment order.
func (l *Ledger) Totals(s *sqlite.Store, taskID int64) ([]domain.WorkerHours, error) {
	return s.TaskWorkedHours(taskID)
}
