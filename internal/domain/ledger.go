package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TxType is the business reason for a ledger movement.
type TxType string

const (
	TxFund   TxType = "FUND"
	TxPayout TxType = "PAYOUT"
)

// EntryType is the side of a double-entry pair.
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

// LedgerEntry is one side of a matched DEBIT/CREDIT pair.
// Balance is the account's running balance after this entry.
type LedgerEntry struct {
	ID          int64     `json:"id" yaml:"id"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	Type        TxType    `json:"type" yaml:"type"`
	EntryType   EntryType `json:"entry_type" yaml:"entry_type"`
	Account     string    `json:"account" yaml:"account"`
	Amount      int64     `json:"amount" yaml:"amount"`
	TaskID      int64     `json:"task_id" yaml:"task_id"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Balance     int64     `json:"balance" yaml:"balance"`
}

// Account name prefixes.
const (
	TaskAccountPrefix    = "task:"
	SponsorAccountPrefix = "sponsor:"
	PayeeAccountPrefix   = "payee:"
)

// TaskAccount is the escrow account holding a task's funds.
func TaskAccount(id int64) string {
	return fmt.Sprintf("%s%d", TaskAccountPrefix, id)
}

// SponsorAccount is the external account a funder pays from.
func SponsorAccount(a Address) string {
	return SponsorAccountPrefix + string(a)
}

// PayeeAccount accumulates salary paid out to a worker.
func PayeeAccount(a Address) string {
	return PayeeAccountPrefix + string(a)
}

// IsTaskAccount reports whether account is a task escrow account.
func IsTaskAccount(account string) bool {
	return strings.HasPrefix(account, TaskAccountPrefix)
}

// MulAmount returns a*b for non-negative operands, or false if the product
// does not fit in an int64.
func MulAmount(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a != 0 && b > math.MaxInt64/a {
		return 0, false
	}
	return a * b, true
}

// AddAmount returns a+b for non-negative operands, or false on overflow.
func AddAmount(a, b int64) (int64, bool) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}
