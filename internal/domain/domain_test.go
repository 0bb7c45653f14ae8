package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

// ─── Task Tests ─────────────────────────────────────────────────────────────

func TestTaskState_Names(t *testing.T) {
	tests := []struct {
		state TaskState
		name  string
	}{
		{StateOpen, "OPEN"},
		{StateStarted, "STARTED"},
		{StateCompleted, "COMPLETED"},
		{StateValidated, "VALIDATED"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if int(tt.state) != i {
				t.Errorf("%s = %d, want %d", tt.name, tt.state, i)
			}
			if tt.state.String() != tt.name {
				t.Errorf("String() = %q, want %q", tt.state.String(), tt.name)
			}
			got, err := ParseTaskState(" " + tt.name + " ")
			if err != nil || got != tt.state {
				t.Errorf("ParseTaskState(%q) = %v, %v", tt.name, got, err)
			}
		})
	}
	if _, err := ParseTaskState("done"); err == nil {
		t.Error("ParseTaskState(done) should fail")
	}
	if _, err := StateAny.MarshalText(); err == nil {
		t.Error("StateAny should not marshal")
	}
}

func TestTaskState_UnmarshalText(t *testing.T) {
	var s TaskState
	if err := s.UnmarshalText([]byte("completed")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if s != StateCompleted {
		t.Errorf("state = %v, want COMPLETED", s)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to TaskState
		ok       bool
	}{
		{StateOpen, StateStarted, true},
		{StateStarted, StateOpen, true},
		{StateOpen, StateCompleted, true},
		{StateStarted, StateCompleted, true},
		{StateCompleted, StateValidated, true},
		{StateOpen, StateValidated, false},
		{StateStarted, StateValidated, false},
		{StateCompleted, StateOpen, false},
		{StateCompleted, StateCompleted, false},
		{StateValidated, StateOpen, false},
		{StateValidated, StateCompleted, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.ok {
				t.Errorf("CanTransition = %v, want %v", got, tt.ok)
			}
		})
	}
}

func TestTask_Roles(t *testing.T) {
	task := &Task{
		Validators:  []Address{"alice"},
		Workers:     []Address{"bob", "carol"},
		WorkedHours: map[Address]int64{"bob": 2, "carol": 3},
	}
	if !task.IsValidator("alice") || task.IsValidator("bob") {
		t.Error("IsValidator mismatch")
	}
	if !task.IsWorker("carol") || task.IsWorker("alice") {
		t.Error("IsWorker mismatch")
	}
	if task.TotalHours() != 5 {
		t.Errorf("TotalHours = %d, want 5", task.TotalHours())
	}
	if task.IsTerminal() {
		t.Error("open task should not be terminal")
	}
	task.State = StateValidated
	if !task.IsTerminal() {
		t.Error("validated task should be terminal")
	}
}

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress("  alice ")
	if err != nil || a != "alice" {
		t.Errorf("ParseAddress = %q, %v", a, err)
	}
	_, err = ParseAddress("   ")
	if !errors.Is(err, ErrInvalidArgument) || ReasonOf(err) != ReasonEmptyAddress {
		t.Errorf("empty address: err = %v", err)
	}
}

// ─── Error Tests ────────────────────────────────────────────────────────────

func TestTaskError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("validate: %w", &TaskError{Kind: ErrMintFailed, Reason: ReasonRewardMintFailed, Err: cause})

	if !errors.Is(err, ErrMintFailed) {
		t.Error("errors.Is(kind) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(cause) = false")
	}
	if KindOf(err) != ErrMintFailed {
		t.Errorf("KindOf = %v", KindOf(err))
	}
	if ReasonOf(err) != ReasonRewardMintFailed {
		t.Errorf("ReasonOf = %q", ReasonOf(err))
	}
	want := "validate: reward mint failed: Reward mint failed: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q\nwant %q", err.Error(), want)
	}
}

func TestKindName(t *testing.T) {
	tests := []struct {
		kind error
		name string
	}{
		{ErrUnauthorized, "unauthorized"},
		{ErrRoleConflict, "role_conflict"},
		{ErrInvalidState, "invalid_state"},
		{ErrInsufficientFunds, "insufficient_funds"},
		{ErrNotFound, "not_found"},
		{ErrInvalidArgument, "invalid_argument"},
		{ErrMintFailed, "mint_failed"},
	}
	for _, tt := range tests {
		if got := KindName(NewTaskError(tt.kind, "")); got != tt.name {
			t.Errorf("KindName(%v) = %q, want %q", tt.kind, got, tt.name)
		}
	}
	if got := KindName(errors.New("disk full")); got != "internal" {
		t.Errorf("KindName(plain) = %q, want internal", got)
	}
	if ReasonOf(errors.New("x")) != "" || KindOf(nil) != nil {
		t.Error("non-TaskError should have no reason or kind")
	}
}

// ─── Ledger Tests ───────────────────────────────────────────────────────────

func TestAccounts(t *testing.T) {
	if got := TaskAccount(7); got != "task:7" {
		t.Errorf("TaskAccount = %q", got)
	}
	if got := SponsorAccount("carol"); got != "sponsor:carol" {
		t.Errorf("SponsorAccount = %q", got)
	}
	if got := PayeeAccount("bob"); got != "payee:bob" {
		t.Errorf("PayeeAccount = %q", got)
	}
	if !IsTaskAccount("task:1") || IsTaskAccount("payee:bob") {
		t.Error("IsTaskAccount mismatch")
	}
}

func TestCheckedAmounts(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(a, b int64) (int64, bool)
		a, b   int64
		want   int64
		wantOK bool
	}{
		{"mul", MulAmount, 6, 7, 42, true},
		{"mul zero", MulAmount, 0, math.MaxInt64, 0, true},
		{"mul max", MulAmount, 1, math.MaxInt64, math.MaxInt64, true},
		{"mul overflow", MulAmount, 1_000_000_000_000_000_000, 10, 0, false},
		{"mul negative", MulAmount, -1, 2, 0, false},
		{"add", AddAmount, 2, 3, 5, true},
		{"add max", AddAmount, math.MaxInt64 - 1, 1, math.MaxInt64, true},
		{"add overflow", AddAmount, math.MaxInt64, 1, 0, false},
		{"add negative", AddAmount, 5, -1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.fn(tt.a, tt.b)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("(%d, %d) = %d, %v; want %d, %v", tt.a, tt.b, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
