package sqlite

import (
	"database/sql"
	"time"

	"github.com/ppc-network/tasklist/internal/domain"
)

// ─── Reward Token Balances ──────────────────────────────────────────────────
// Used by infra/token when the reward token is kept in a local database.

// RewardBalance returns the token balance of an address.
func (s *Store) RewardBalance(addr domain.Address) (int64, error) {
	var bal int64
	err := s.q.QueryRow(`SELECT balance FROM reward_balances WHERE address = ?`, string(addr)).Scan(&bal)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return bal, err
}

// SetRewardBalance overwrites the token balance of an address.
func (s *Store) SetRewardBalance(addr domain.Address, balance int64, at time.Time) error {
	_, err := s.q.Exec(
		`INSERT INTO reward_balances (address, balance, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(address) DO UPDATE SET balance=excluded.balance, updated_at=excluded.updated_at`,
		string(addr), balance, at.UnixNano(),
	)
	return err
}

// RewardSupply is the sum of all token balances.
func (s *Store) RewardSupply() (int64, error) {
	var total int64
	err := s.q.QueryRow(`SELECT COALESCE(SUM(balance), 0) FROM reward_balances`).Scan(&total)
	return total, err
}

// GrantMinter authorizes addr to mint.
func (s *Store) GrantMinter(addr domain.Address, at time.Time) error {
	_, err := s.q.Exec(
		`INSERT INTO reward_minters (address, granted_at) VALUES (?, ?)
		 ON CONFLICT(address) DO NOTHING`,
		string(addr), at.UnixNano(),
	)
	return err
}

// IsMinter reports whether addr may mint.
func (s *Store) IsMinter(addr domain.Address) (bool, error) {
	var n int
	err := s.q.QueryRow(`SELECT COUNT(*) FROM reward_minters WHERE address = ?`, string(addr)).Scan(&n)
	return n > 0, err
}
