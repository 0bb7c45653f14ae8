// Package access maintains the per-task validator and worker sets and
// enforces the role checks every gated operation starts with.
package access

import (
	"fmt"
	"time"

	"github.com/ppc-network/tasklist/internal/app/records"
	"github.com/ppc-network/tasklist/internal/domain"
	"github.com/ppc-network/tasklist/internal/infra/sqlite"
)

// Control manages role membership.
type Control struct {
	now func() time.Time
}

// NewControl creates an access controller.
func NewControl() *Control {
	return &Control{now: time.Now}
}

// AddValidator enrolls addr as a validator of the task. The caller must
// already be a validator and addr must not be a worker. Re-adding an
// existing validator is a no-op and emits nothing.
func (c *Control) AddValidator(s *sqlite.Store, b *records.Batch, caller domain.Address, taskID int64, addr domain.Address) (bool, error) {
	addr, err := domain.ParseAddress(string(addr))
	if err != nil {
		return false, err
	}
	task, err := s.RequireTask(taskID)
	if err != nil {
		return false, err
	}
	if err := c.RequireValidator(s, taskID, caller); err != nil {
		return false, err
	}

	isWorker, err := s.IsWorker(taskID, addr)
	if err != nil {
		return false, fmt.Errorf("check worker: %w", err)
	}
	if isWorker {
		return false, domain.NewTaskError(domain.ErrRoleConflict, domain.ReasonWorkerAsValidator)
	}

	added, err := s.AddValidator(taskID, addr, c.now())
	if err != nil {
		return false, fmt.Errorf("add validator: %w", err)
	}
	if !added {
		return false, nil
	}
	_, err = b.Emit(domain.OpValidatorAdded, taskID, caller, task.State, map[string]any{
		"validator": addr,
	})
	return true, err
}

// AddWorker enrolls addr as a worker of the task. The caller must be a
// validator and addr must not be one.
func (c *Control) AddWorker(s *sqlite.Store, b *records.Batch, caller domain.Address, taskID int64, addr domain.Address) (bool, error) {
	addr, err := domain.ParseAddress(string(addr))
	if err != nil {
		return false, err
	}
	task, err := s.RequireTask(taskID)
	if err != nil {
		return false, err
	}
	if err := c.RequireValidator(s, taskID, caller); err != nil {
		return false, err
	}

	isValidator, err := s.IsValidator(taskID, addr)
	if err != nil {
		return false, fmt.Errorf("check validator: %w", err)
	}
	if isValidator {
		return false, domain.NewTaskError(domain.ErrRoleConflict, domain.ReasonValidatorAsWorker)
	}

	added, err := s.AddWorker(taskID, addr, c.now())
	if err != nil {
		return false, fmt.Errorf("add worker: %w", err)
	}
	if !added {
		return false, nil
	}
	_, err = b.Emit(domain.OpWorkerAdded, taskID, caller, task.State, map[string]any{
		"worker": addr,
	})
	return true, err
}

// IsValidator reports whether addr validates the task.
func (c *Control) IsValidator(s *sqlite.Store, taskID int64, addr domain.Address) (bool, error) {
	return s.IsValidator(taskID, addr)
}

// IsWorker reports whether addr works on the task.
func (c *Control) IsWorker(s *sqlite.Store, taskID int64, addr domain.Address) (bool, error) {
	return s.IsWorker(taskID, addr)
}

// RequireValidator fails with Unauthorized unless caller validates the task.
func (c *Control) RequireValidator(s *sqlite.Store, taskID int64, caller domain.Address) error {
	ok, err := s.IsValidator(taskID, caller)
	if err != nil {
		return fmt.Errorf("check validator: %w", err)
	}
	if !ok {
		return domain.NewTaskError(domain.ErrUnauthorized, domain.ReasonNotValidator)
	}
	return nil
}

// RequireWorker fails with Unauthorized(reason) unless caller works on the task.
func (c *Control) RequireWorker(s *sqlite.Store, taskID int64, caller domain.Address, reason string) error {
	ok, err := s.IsWorker(taskID, caller)
	if err != nil {
		return fmt.Errorf("check worker: %w", err)
	}
	if !ok {
		return domain.NewTaskError(domain.ErrUnauthorized, reason)
	}
	return nil
}
