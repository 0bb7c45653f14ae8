package sqlite

import (
	"database/sql"
	"time"

	"github.com/ppc-network/tasklist/internal/domain"
)

// ─── Worked Hours ───────────────────────────────────────────────────────────

// AddWorkedHours accumulates delta into the (task, worker) counter and
// returns the new total.
func (s *Store) AddWorkedHours(taskID int64, worker domain.Address, delta int64, at time.Time) (int64, error) {
	_, err := s.q.Exec(
		`INSERT INTO worked_hours (task_id, worker, hours, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(task_id, worker) DO UPDATE SET
			hours = hours + excluded.hours,
			updated_at = excluded.updated_at`,
		taskID, string(worker), delta, at.UnixNano(),
	)
	if err != nil {
		return 0, err
	}
	return s.WorkedHours(taskID, worker)
}

// WorkedHours returns the accumulated hours, zero if none were reported.
func (s *Store) WorkedHours(taskID int64, worker domain.Address) (int64, error) {
	var hours int64
	err := s.q.QueryRow(
		`SELECT hours FROM worked_hours WHERE task_id = ? AND worker = ?`,
		taskID, string(worker),
	).Scan(&hours)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return hours, err
}

// TaskWorkedHours lists every worker with reported hours, in worker
// enrollment order.
func (s *Store) TaskWorkedHours(taskID int64) ([]domain.WorkerHours, error) {
	rows, err := s.q.Query(
		`SELECT h.worker, h.hours
		 FROM worked_hours h
		 LEFT JOIN task_workers w ON w.task_id = h.task_id AND w.address = h.worker
		 WHERE h.task_id = ?
		 ORDER BY COALESCE(w.position, 1 << 30), h.worker`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WorkerHours
	for rows.Next() {
		var h domain.WorkerHours
		var worker string
		if err := rows.Scan(&worker, &h.Hours); err != nil {
			return nil, err
		}
		h.Worker = domain.Address(worker)
		out = append(out, h)
	}
	return out, rows.Err()
}
