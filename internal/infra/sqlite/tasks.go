package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ppc-network/tasklist/internal/domain"
)

// ─── Task Repository ────────────────────────────────────────────────────────

const taskColumns = `id, title, description, state, balance, ppc_worker, ppc, q_rating, creator, created_at, updated_at`

// NextTaskID returns the id the next created task must receive.
// Ids are dense: MAX(id)+1, starting at 1.
func (s *Store) NextTaskID() (int64, error) {
	var next int64
	err := s.q.QueryRow(`SELECT COALESCE(MAX(id), 0) + 1 FROM tasks`).Scan(&next)
	return next, err
}

// TaskCount returns the number of tasks ever created.
func (s *Store) TaskCount() (int64, error) {
	var n int64
	err := s.q.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&n)
	return n, err
}

// InsertTask creates a new task record. Role sets and hours are written
// through their own repositories.
func (s *Store) InsertTask(t domain.Task) error {
	_, err := s.q.Exec(
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, int(t.State), t.Balance,
		t.PPCWorker, t.PPC, t.QRating, string(t.Creator),
		t.CreatedAt.UnixNano(), t.UpdatedAt.UnixNano(),
	)
	return err
}

// UpdateTask writes the mutable scalar fields of a task.
func (s *Store) UpdateTask(t *domain.Task) error {
	result, err := s.q.Exec(
		`UPDATE tasks SET state = ?, balance = ?, ppc_worker = ?, ppc = ?, q_rating = ?, updated_at = ?
		 WHERE id = ?`,
		int(t.State), t.Balance, t.PPCWorker, t.PPC, t.QRating, t.UpdatedAt.UnixNano(), t.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return domain.NewTaskError(domain.ErrNotFound, domain.ReasonTaskNotFound)
	}
	return nil
}

// GetTask retrieves a task with its validators, workers and worked hours.
// Returns (nil, nil) when the task does not exist.
func (s *Store) GetTask(id int64) (*domain.Task, error) {
	row := s.q.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err != nil || t == nil {
		return t, err
	}
	if err := s.loadRelations(t); err != nil {
		return nil, err
	}
	return t, nil
}

// RequireTask is GetTask that turns a missing task into a NotFound error.
func (s *Store) RequireTask(id int64) (*domain.Task, error) {
	t, err := s.GetTask(id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.NewTaskError(domain.ErrNotFound, domain.ReasonTaskNotFound)
	}
	return t, nil
}

// ListTasks returns tasks ordered by id. A negative state lists all states.
func (s *Store) ListTasks(state domain.TaskState, limit int) ([]domain.Task, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	var rows *sql.Rows
	var err error
	if state < 0 {
		rows, err = s.q.Query(`SELECT `+taskColumns+` FROM tasks ORDER BY id LIMIT ?`, limit)
	} else {
		rows, err = s.q.Query(`SELECT `+taskColumns+` FROM tasks WHERE state = ? ORDER BY id LIMIT ?`,
			int(state), limit)
	}
	if err != nil {
		return nil, err
	}

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Relations are loaded after the cursor is closed: the pool holds a
	// single connection.
	for i := range tasks {
		if err := s.loadRelations(&tasks[i]); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// ContractBalance is the sum of all task escrow balances.
func (s *Store) ContractBalance() (int64, error) {
	var total int64
	err := s.q.QueryRow(`SELECT COALESCE(SUM(balance), 0) FROM tasks`).Scan(&total)
	return total, err
}

func (s *Store) loadRelations(t *domain.Task) error {
	var err error
	if t.Validators, err = s.Validators(t.ID); err != nil {
		return fmt.Errorf("load validators: %w", err)
	}
	if t.Workers, err = s.Workers(t.ID); err != nil {
		return fmt.Errorf("load workers: %w", err)
	}
	hours, err := s.TaskWorkedHours(t.ID)
	if err != nil {
		return fmt.Errorf("load worked hours: %w", err)
	}
	t.WorkedHours = make(map[domain.Address]int64, len(hours))
	for _, h := range hours {
		t.WorkedHours[h.Worker] = h.Hours
	}
	return nil
}

func scanTask(s scanner) (*domain.Task, error) {
	var t domain.Task
	var state int
	var creator string
	var createdAt, updatedAt int64

	err := s.Scan(&t.ID, &t.Title, &t.Description, &state, &t.Balance,
		&t.PPCWorker, &t.PPC, &t.QRating, &creator, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}

	t.State = domain.TaskState(state)
	t.Creator = domain.Address(creator)
	t.CreatedAt = time.Unix(0, createdAt)
	t.UpdatedAt = time.Unix(0, updatedAt)
	return &t, nil
}
