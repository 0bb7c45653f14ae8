// Package token provides the reward token behind domain.RewardHook.
// Ledger keeps balances in a local SQLite database of its own; Client talks
// to a remote token service, and Handler exposes a Ledger as one.
package token

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ppc-network/tasklist/internal/domain"
	"github.com/ppc-network/tasklist/internal/infra/sqlite"
)

// Ledger is a SQLite-backed reward token with a minter allow-list.
// It uses its own database so mints never contend for the task store's
// connection while a validation transaction is open.
type Ledger struct {
	mu     sync.Mutex
	db     *sqlite.DB
	owned  bool
	minter domain.Address
	now    func() time.Time
}

// OpenLedger opens (or creates) the token database under dir. minter is the
// identity used by Mint and Burn when the ledger acts as a RewardHook.
func OpenLedger(dir string, minter domain.Address) (*Ledger, error) {
	db, err := sqlite.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open token db: %w", err)
	}
	l := NewLedger(db, minter)
	l.owned = true
	return l, nil
}

// NewLedger wraps an already open database.
func NewLedger(db *sqlite.DB, minter domain.Address) *Ledger {
	return &Ledger{db: db, minter: minter, now: time.Now}
}

// Close closes the database if the ledger opened it.
func (l *Ledger) Close() error {
	if l.owned {
		return l.db.Close()
	}
	return nil
}

// Minter returns the identity the ledger mints as.
func (l *Ledger) Minter() domain.Address { return l.minter }

// Mint implements domain.RewardHook.
func (l *Ledger) Mint(ctx context.Context, to domain.Address, amount int64) error {
	return l.MintAs(ctx, l.minter, to, amount)
}

// Burn implements domain.RewardHook.
func (l *Ledger) Burn(ctx context.Context, from domain.Address, amount int64) error {
	return l.BurnAs(ctx, l.minter, from, amount)
}

// MintAs credits amount to `to` on behalf of minter.
func (l *Ledger) MintAs(ctx context.Context, minter, to domain.Address, amount int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount <= 0 {
		return domain.NewTaskError(domain.ErrInvalidArgument, domain.ReasonAmountNotPositive)
	}
	if _, err := domain.ParseAddress(string(to)); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.db.WithTx(func(s *sqlite.Store) error {
		if err := requireMinter(s, minter); err != nil {
			return err
		}
		bal, err := s.RewardBalance(to)
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}
		if err := s.SetRewardBalance(to, bal+amount, l.now()); err != nil {
			return fmt.Errorf("set balance: %w", err)
		}
		log.Printf("[token] minted %d to %s", amount, to)
		return nil
	})
}

// BurnAs removes amount from `from` on behalf of minter.
func (l *Ledger) BurnAs(ctx context.Context, minter, from domain.Address, amount int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount <= 0 {
		return domain.NewTaskError(domain.ErrInvalidArgument, domain.ReasonAmountNotPositive)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.db.WithTx(func(s *sqlite.Store) error {
		if err := requireMinter(s, minter); err != nil {
			return err
		}
		bal, err := s.RewardBalance(from)
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}
		if bal < amount {
			return fmt.Errorf("burn %d from %s (balance %d): %w", amount, from, bal, domain.ErrInsufficientRewards)
		}
		if err := s.SetRewardBalance(from, bal-amount, l.now()); err != nil {
			return fmt.Errorf("set balance: %w", err)
		}
		log.Printf("[token] burned %d from %s", amount, from)
		return nil
	})
}

// BalanceOf returns the reward balance of addr.
func (l *Ledger) BalanceOf(addr domain.Address) (int64, error) {
	return l.db.Store().RewardBalance(addr)
}

// TotalSupply is the sum of all balances.
func (l *Ledger) TotalSupply() (int64, error) {
	return l.db.Store().RewardSupply()
}

// GrantMinter authorizes addr to mint and burn.
func (l *Ledger) GrantMinter(addr domain.Address) error {
	addr, err := domain.ParseAddress(string(addr))
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Store().GrantMinter(addr, l.now())
}

// IsMinter reports whether addr may mint.
func (l *Ledger) IsMinter(addr domain.Address) (bool, error) {
	return l.db.Store().IsMinter(addr)
}

func requireMinter(s *sqlite.Store, minter domain.Address) error {
	ok, err := s.IsMinter(minter)
	if err != nil {
		return fmt.Errorf("check minter: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", minter, domain.ErrNotMinter)
	}
	return nil
}
