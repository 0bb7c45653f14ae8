// Package domain holds the task list types and errors.
// A Task is a funded unit of collaborative work that flows through
// create → enroll → report hours → complete → validate → pay out.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Address identifies a participant (validator, worker, sponsor or minter).
type Address string

// ParseAddress trims s and rejects empty identities.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", NewTaskError(ErrInvalidArgument, ReasonEmptyAddress)
	}
	return Address(s), nil
}

// String implements fmt.Stringer.
func (a Address) String() string { return string(a) }

// TaskState tracks the task lifecycle. Values follow the contract enum
// ordering (Open=0 … Validated=3) and are stored as integers.
type TaskState int

const (
	StateOpen TaskState = iota
	StateStarted
	StateCompleted
	StateValidated
)

// StateAny is a list filter matching every state.
const StateAny TaskState = -1

var stateNames = [...]string{"OPEN", "STARTED", "COMPLETED", "VALIDATED"}

func (s TaskState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("TaskState(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s TaskState) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(stateNames) {
		return nil, fmt.Errorf("invalid task state %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText decodes a state name (case-insensitive).
func (s *TaskState) UnmarshalText(b []byte) error {
	st, err := ParseTaskState(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseTaskState maps a state name to its value.
func ParseTaskState(name string) (TaskState, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, n := range stateNames {
		if n == name {
			return TaskState(i), nil
		}
	}
	return 0, fmt.Errorf("unknown task state %q", name)
}

// CanTransition reports whether from → to is a legal lifecycle edge.
// Started is optional: Open may go straight to Completed.
func CanTransition(from, to TaskState) bool {
	switch from {
	case StateOpen:
		return to == StateStarted || to == StateCompleted
	case StateStarted:
		return to == StateOpen || to == StateCompleted
	case StateCompleted:
		return to == StateValidated
	default:
		return false
	}
}

// Task is the aggregate: record fields plus the two role sets and the
// worked-hours mapping.
type Task struct {
	ID          int64             `json:"id" yaml:"id"`
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description" yaml:"description"`
	State       TaskState         `json:"state" yaml:"state"`
	Balance     int64             `json:"balance" yaml:"balance"`
	PPCWorker   int64             `json:"ppc_worker" yaml:"ppc_worker"`
	PPC         int64             `json:"ppc" yaml:"ppc"`
	QRating     int64             `json:"q_rating" yaml:"q_rating"`
	Creator     Address           `json:"creator" yaml:"creator"`
	CreatedAt   time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" yaml:"updated_at"`
	Validators  []Address         `json:"validators" yaml:"validators"`
	Workers     []Address         `json:"workers" yaml:"workers"`
	WorkedHours map[Address]int64 `json:"worked_hours" yaml:"worked_hours"`
}

// IsTerminal returns true once the task has been validated.
func (t *Task) IsTerminal() bool {
	return t.State == StateValidated
}

// IsValidator reports membership in the validator set.
func (t *Task) IsValidator(a Address) bool {
	return contains(t.Validators, a)
}

// IsWorker reports membership in the worker set.
func (t *Task) IsWorker(a Address) bool {
	return contains(t.Workers, a)
}

// TotalHours sums worked hours across all workers.
func (t *Task) TotalHours() int64 {
	var total int64
	for _, h := range t.WorkedHours {
		total += h
	}
	return total
}

func contains(set []Address, a Address) bool {
	for _, m := range set {
		if m == a {
			return true
		}
	}
	return false
}

// WorkerHours is one row of the worked-hours ledger.
type WorkerHours struct {
	Worker Address `json:"worker" yaml:"worker"`
	Hours  int64   `json:"hours" yaml:"hours"`
}
