package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ppc-network/tasklist/internal/domain"
)

// ─── Operation Records ──────────────────────────────────────────────────────

const recordColumns = `seq, id, operation, task_id, actor, payload, resulting_state, timestamp, prev_hash, hash, signature`

// InsertRecord appends a record. Seq must be the chain head's seq + 1.
func (s *Store) InsertRecord(r domain.Record) error {
	_, err := s.q.Exec(
		`INSERT INTO records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Seq, r.ID, string(r.Operation), r.TaskID, string(r.Actor), string(r.Payload),
		int(r.ResultingState), r.Timestamp.UnixNano(), r.PrevHash, r.Hash, nullStr(r.Signature),
	)
	return err
}

// LastRecord returns the chain head, or nil for an empty chain.
func (s *Store) LastRecord() (*domain.Record, error) {
	row := s.q.QueryRow(`SELECT ` + recordColumns + ` FROM records ORDER BY seq DESC LIMIT 1`)
	return scanRecord(row)
}

// TaskRecords returns every record of one task in chain order.
func (s *Store) TaskRecords(taskID int64) ([]domain.Record, error) {
	return s.queryRecords(`SELECT `+recordColumns+` FROM records WHERE task_id = ? ORDER BY seq`, taskID)
}

// Records returns up to limit records with seq > afterSeq, in chain order.
// limit <= 0 returns all of them.
func (s *Store) Records(afterSeq int64, limit int) ([]domain.Record, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.queryRecords(`SELECT `+recordColumns+` FROM records WHERE seq > ? ORDER BY seq LIMIT ?`, afterSeq, limit)
}

func (s *Store) queryRecords(query string, args ...any) ([]domain.Record, error) {
	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanRecord(s scanner) (*domain.Record, error) {
	var r domain.Record
	var op, actor, payload string
	var state int
	var ts int64
	var sig sql.NullString

	err := s.Scan(&r.Seq, &r.ID, &op, &r.TaskID, &actor, &payload,
		&state, &ts, &r.PrevHash, &r.Hash, &sig)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}

	r.Operation = domain.Operation(op)
	r.Actor = domain.Address(actor)
	r.Payload = []byte(payload)
	r.ResultingState = domain.TaskState(state)
	r.Timestamp = time.Unix(0, ts).UTC()
	if sig.Valid {
		r.Signature = sig.String
	}
	return &r, nil
}
