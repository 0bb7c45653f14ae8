// Package escrow implements the per-task escrow ledger.
// Every movement creates matched DEBIT/CREDIT entries, so
// SUM(debits) == SUM(credits) is an invariant, and each task's running
// ledger balance equals the balance column of its task row.
package escrow

import (
	"fmt"
	"time"

	"github.com/ppc-network/tasklist/internal/app/records"
	"github.com/ppc-network/tasklist/internal/domain"
	"github.com/ppc-network/tasklist/internal/infra/sqlite"
)

// Ledger manages task escrow balances.
type Ledger struct {
	now func() time.Time
}

// NewLedger creates an escrow ledger.
func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

// Fund deposits amount into the task's escrow. Anyone may fund.
// Returns the task's new balance.
func (l *Ledger) Fund(s *sqlite.Store, b *records.Batch, caller domain.Address, taskID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.NewTaskError(domain.ErrInvalidArgument, domain.ReasonAmountNotPositive)
	}

	task, err := s.RequireTask(taskID)
	if err != nil {
		return 0, err
	}
	// A validated task can never pay out again; accepting funds would lock them.
	if task.IsTerminal() {
		return 0, domain.NewTaskError(domain.ErrInvalidState, domain.ReasonTaskValidated)
	}

	balance, ok := domain.AddAmount(task.Balance, amount)
	if !ok {
		return 0, domain.NewTaskError(domain.ErrInvalidArgument, domain.ReasonAmountOverflow)
	}
	total, err := s.ContractBalance()
	if err != nil {
		return 0, fmt.Errorf("get contract balance: %w", err)
	}
	if _, ok := domain.AddAmount(total, amount); !ok {
		return 0, domain.NewTaskError(domain.ErrInvalidArgument, domain.ReasonAmountOverflow)
	}

	now := l.now()
	if err := l.transfer(s, now, domain.TxFund,
		domain.SponsorAccount(caller), domain.TaskAccount(taskID),
		amount, taskID, "fund task"); err != nil {
		return 0, err
	}

	task.Balance = balance
	task.UpdatedAt = now
	if err := s.UpdateTask(task); err != nil {
		return 0, fmt.Errorf("update task balance: %w", err)
	}

	if _, err := b.Emit(domain.OpTaskFunded, taskID, caller, task.State, map[string]any{
		"amount":  amount,
		"balance": task.Balance,
	}); err != nil {
		return 0, err
	}
	return task.Balance, nil
}

// Payout moves amount from the task's escrow to the worker's payee account
// and decrements task.Balance in place. Only the validation step calls it;
// caller is the validator and is recorded as the actor.
func (l *Ledger) Payout(s *sqlite.Store, b *records.Batch, task *domain.Task, caller, worker domain.Address, amount int64) error {
	if amount <= 0 {
		return domain.NewTaskError(domain.ErrInvalidArgument, domain.ReasonAmountNotPositive)
	}
	if amount > task.Balance {
		return domain.NewTaskError(domain.ErrInsufficientFunds, domain.ReasonInsufficientFunds)
	}

	now := l.now()
	if err := l.transfer(s, now, domain.TxPayout,
		domain.TaskAccount(task.ID), domain.PayeeAccount(worker),
		amount, task.ID, "salary payout"); err != nil {
		return err
	}

	task.Balance -= amount
	task.UpdatedAt = now
	if err := s.UpdateTask(task); err != nil {
		return fmt.Errorf("update task balance: %w", err)
	}

	_, err := b.Emit(domain.OpPayout, task.ID, caller, task.State, map[string]any{
		"worker":  worker,
		"amount":  amount,
		"balance": task.Balance,
	})
	return err
}

// ContractBalance is the aggregate of all task balances.
func (l *Ledger) ContractBalance(s *sqlite.Store) (int64, error) {
	return s.ContractBalance()
}

// Earnings returns the total salary paid to a worker across all tasks.
func (l *Ledger) Earnings(s *sqlite.Store, worker domain.Address) (int64, error) {
	return s.AccountBalance(domain.PayeeAccount(worker))
}

// History returns recent ledger entries for an account.
func (l *Ledger) History(s *sqlite.Store, account string, limit int) ([]domain.LedgerEntry, error) {
	return s.LedgerEntries(account, limit)
}

// Reconcile checks the escrow invariants: balanced double entry, and the
// task table's aggregate equal to the ledger's task accounts.
func (l *Ledger) Reconcile(s *sqlite.Store) error {
	debits, credits, err := s.LedgerTotals()
	if err != nil {
		return fmt.Errorf("ledger totals: %w", err)
	}
	if debits != credits {
		return fmt.Errorf("ledger unbalanced: debits %d != credits %d", debits, credits)
	}

	aggregate, err := s.ContractBalance()
	if err != nil {
		return fmt.Errorf("contract balance: %w", err)
	}
	ledgerTotal, err := s.TaskAccountsTotal()
	if err != nil {
		return fmt.Errorf("task accounts total: %w", err)
	}
	if aggregate != ledgerTotal {
		return fmt.Errorf("escrow mismatch: tasks hold %d, ledger task accounts hold %d", aggregate, ledgerTotal)
	}
	return nil
}

// transfer writes a matched DEBIT (from) / CREDIT (to) pair.
func (l *Ledger) transfer(s *sqlite.Store, now time.Time, typ domain.TxType, from, to string, amount, taskID int64, reason string) error {
	fromBal, err := s.AccountBalance(from)
	if err != nil {
		return fmt.Errorf("get %s balance: %w", from, err)
	}
	toBal, err := s.AccountBalance(to)
	if err != nil {
		return fmt.Errorf("get %s balance: %w", to, err)
	}

	_, err = s.InsertLedgerEntry(domain.LedgerEntry{
		Timestamp:   now,
		Type:        typ,
		EntryType:   domain.EntryDebit,
		Account:     from,
		Amount:      amount,
		TaskID:      taskID,
		Description: reason,
		Balance:     fromBal - amount,
	})
	if err != nil {
		return fmt.Errorf("debit %s: %w", from, err)
	}

	_, err = s.InsertLedgerEntry(domain.LedgerEntry{
		Timestamp:   now,
		Type:        typ,
		EntryType:   domain.EntryCredit,
		Account:     to,
		Amount:      amount,
		TaskID:      taskID,
		Description: reason,
		Balance:     toBal + amount,
	})
	if err != nil {
		return fmt.Errorf("credit %s: %w", to, err)
	}
	return nil
}
