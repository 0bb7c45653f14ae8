package sqlite

import (
	"database/sql"
	"time"

	"github.com/ppc-network/tasklist/internal/domain"
)

// ─── Escrow Ledger ──────────────────────────────────────────────────────────

// InsertLedgerEntry adds an escrow ledger entry.
func (s *Store) InsertLedgerEntry(entry domain.LedgerEntry) (int64, error) {
	result, err := s.q.Exec(
		`INSERT INTO escrow_ledger (timestamp, type, entry_type, account, amount, task_id, description, balance)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.UnixNano(), string(entry.Type), string(entry.EntryType),
		entry.Account, entry.Amount, entry.TaskID, nullStr(entry.Description), entry.Balance,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// AccountBalance returns the running balance of an account (0 if unused).
func (s *Store) AccountBalance(account string) (int64, error) {
	var balance sql.NullInt64
	err := s.q.QueryRow(
		`SELECT balance FROM escrow_ledger WHERE account = ? ORDER BY id DESC LIMIT 1`,
		account,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance.Int64, nil
}

// LedgerEntries returns recent ledger entries for an account, newest first.
func (s *Store) LedgerEntries(account string, limit int) ([]domain.LedgerEntry, error) {
	rows, err := s.q.Query(
		`SELECT id, timestamp, type, entry_type, account, amount, task_id, description, balance
		 FROM escrow_ledger WHERE account = ? ORDER BY id DESC LIMIT ?`,
		account, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var ts int64
		var desc sql.NullString
		err := rows.Scan(&e.ID, &ts, &e.Type, &e.EntryType, &e.Account,
			&e.Amount, &e.TaskID, &desc, &e.Balance)
		if err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(0, ts)
		if desc.Valid {
			e.Description = desc.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LedgerTotals sums all DEBIT and all CREDIT amounts. They must be equal.
func (s *Store) LedgerTotals() (debits, credits int64, err error) {
	err = s.q.QueryRow(
		`SELECT
			COALESCE(SUM(CASE WHEN entry_type = ? THEN amount END), 0),
			COALESCE(SUM(CASE WHEN entry_type = ? THEN amount END), 0)
		 FROM escrow_ledger`,
		string(domain.EntryDebit), string(domain.EntryCredit),
	).Scan(&debits, &credits)
	return debits, credits, err
}

// TaskAccountsTotal sums the latest running balance of every task account.
func (s *Store) TaskAccountsTotal() (int64, error) {
	var total int64
	err := s.q.QueryRow(
		`SELECT COALESCE(SUM(e.balance), 0) FROM escrow_ledger e
		 WHERE e.account LIKE ? AND e.id = (
			SELECT MAX(id) FROM escrow_ledger WHERE account = e.account
		 )`,
		domain.TaskAccountPrefix+"%",
	).Scan(&total)
	return total, err
}
