package sqlite

import (
	"time"

	"github.com/ppc-network/tasklist/internal/domain"
)

// ─── Role Sets ──────────────────────────────────────────────────────────────

const (
	validatorsTable = "task_validators"
	workersTable    = "task_workers"
)

// AddValidator inserts addr into the task's validator set.
// Returns false if it was already a member.
func (s *Store) AddValidator(taskID int64, addr domain.Address, at time.Time) (bool, error) {
	return s.addMember(validatorsTable, taskID, addr, at)
}

// AddWorker inserts addr into the task's worker set.
// Returns false if it was already a member.
func (s *Store) AddWorker(taskID int64, addr domain.Address, at time.Time) (bool, error) {
	return s.addMember(workersTable, taskID, addr, at)
}

// Validators returns the validator set in enrollment order.
func (s *Store) Validators(taskID int64) ([]domain.Address, error) {
	return s.members(validatorsTable, taskID)
}

// Workers returns the worker set in enrollment order.
func (s *Store) Workers(taskID int64) ([]domain.Address, error) {
	return s.members(workersTable, taskID)
}

// IsValidator reports whether addr is a validator of the task.
func (s *Store) IsValidator(taskID int64, addr domain.Address) (bool, error) {
	return s.isMember(validatorsTable, taskID, addr)
}

// IsWorker reports whether addr is a worker of the task.
func (s *Store) IsWorker(taskID int64, addr domain.Address) (bool, error) {
	return s.isMember(workersTable, taskID, addr)
}

// table is always one of the constants above, never user input.
func (s *Store) addMember(table string, taskID int64, addr domain.Address, at time.Time) (bool, error) {
	result, err := s.q.Exec(
		`INSERT INTO `+table+` (task_id, address, position, added_at)
		 SELECT ?, ?, COALESCE(MAX(position), -1) + 1, ? FROM `+table+` WHERE task_id = ?
		 ON CONFLICT(task_id, address) DO NOTHING`,
		taskID, string(addr), at.UnixNano(), taskID,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) members(table string, taskID int64) ([]domain.Address, error) {
	rows, err := s.q.Query(
		`SELECT address FROM `+table+` WHERE task_id = ? ORDER BY position`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Address{}
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		out = append(out, domain.Address(a))
	}
	return out, rows.Err()
}

func (s *Store) isMember(table string, taskID int64, addr domain.Address) (bool, error) {
	var n int
	err := s.q.QueryRow(
		`SELECT COUNT(*) FROM `+table+` WHERE task_id = ? AND address = ?`,
		taskID, string(addr),
	).Scan(&n)
	return n > 0, err
}
