package token

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/ppc-network/tasklist/internal/domain"
)

var ctx = context.Background()

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := OpenLedger(t.TempDir(), "tasklist")
	if err != nil {
		t.Fatalf("OpenLedger() error: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

func TestLedger_RequiresMinter(t *testing.T) {
	l := newTestLedger(t)

	err := l.Mint(ctx, "w1", 5)
	if !errors.Is(err, domain.ErrNotMinter) {
		t.Fatalf("Mint() before grant error = %v, want ErrNotMinter", err)
	}

	if ok, _ := l.IsMinter("tasklist"); ok {
		t.Error("IsMinter() = true before grant")
	}
	if err := l.GrantMinter("tasklist"); err != nil {
		t.Fatalf("GrantMinter() error: %v", err)
	}
	if ok, _ := l.IsMinter("tasklist"); !ok {
		t.Error("IsMinter() = false after grant")
	}
	if err := l.Mint(ctx, "w1", 5); err != nil {
		t.Fatalf("Mint() error: %v", err)
	}
}

func TestLedger_MintBurn(t *testing.T) {
	l := newTestLedger(t)
	l.GrantMinter("tasklist")

	l.Mint(ctx, "w1", 3)
	l.Mint(ctx, "w1", 4)
	l.Mint(ctx, "w2", 1)

	if bal, _ := l.BalanceOf("w1"); bal != 7 {
		t.Errorf("BalanceOf(w1) = %d, want 7", bal)
	}
	if supply, _ := l.TotalSupply(); supply != 8 {
		t.Errorf("TotalSupply() = %d, want 8", supply)
	}

	if err := l.Burn(ctx, "w1", 2); err != nil {
		t.Fatalf("Burn() error: %v", err)
	}
	if bal, _ := l.BalanceOf("w1"); bal != 5 {
		t.Errorf("BalanceOf(w1) after burn = %d, want 5", bal)
	}

	err := l.Burn(ctx, "w2", 2)
	if !errors.Is(err, domain.ErrInsufficientRewards) {
		t.Errorf("Burn(over balance) error = %v, want ErrInsufficientRewards", err)
	}
}

func TestLedger_RejectsBadInput(t *testing.T) {
	l := newTestLedger(t)
	l.GrantMinter("tasklist")

	if err := l.Mint(ctx, "w1", 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("Mint(0) error = %v", err)
	}
	if err := l.Mint(ctx, "", 1); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("Mint(empty) error = %v", err)
	}
	if err := l.GrantMinter(" "); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("GrantMinter(empty) error = %v", err)
	}
}

// ─── Client / Handler ───────────────────────────────────────────────────────

func TestClient_RoundTrip(t *testing.T) {
	l := newTestLedger(t)
	l.GrantMinter("tasklist")
	srv := httptest.NewServer(Handler(l))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "tasklist")
	if err := c.Mint(ctx, "w1", 9); err != nil {
		t.Fatalf("Client.Mint() error: %v", err)
	}
	if err := c.Burn(ctx, "w1", 4); err != nil {
		t.Fatalf("Client.Burn() error: %v", err)
	}

	bal, err := c.BalanceOf(ctx, "w1")
	if err != nil {
		t.Fatalf("Client.BalanceOf() error: %v", err)
	}
	if bal != 5 {
		t.Errorf("BalanceOf() = %d, want 5", bal)
	}
	if local, _ := l.BalanceOf("w1"); local != 5 {
		t.Errorf("ledger balance = %d, want 5", local)
	}
}

func TestClient_BalanceOfEscapesAddress(t *testing.T) {
	l := newTestLedger(t)
	l.GrantMinter("tasklist")
	srv := httptest.NewServer(Handler(l))
	defer srv.Close()
	c := NewClient(srv.URL, "tasklist")

	tests := []struct {
		addr   domain.Address
		amount int64
	}{
		{"team/alpha", 3},
		{"w 1", 4},
		{"50%", 5},
		{"a?b#c", 6},
	}
	for _, tt := range tests {
		t.Run(string(tt.addr), func(t *testing.T) {
			if err := c.Mint(ctx, tt.addr, tt.amount); err != nil {
				t.Fatalf("Mint() error: %v", err)
			}
			bal, err := c.BalanceOf(ctx, tt.addr)
			if err != nil {
				t.Fatalf("BalanceOf() error: %v", err)
			}
			if bal != tt.amount {
				t.Errorf("BalanceOf(%q) = %d, want %d", tt.addr, bal, tt.amount)
			}
		})
	}
}

func TestClient_Errors(t *testing.T) {
	l := newTestLedger(t)
	l.GrantMinter("tasklist")
	srv := httptest.NewServer(Handler(l))
	defer srv.Close()

	rogue := NewClient(srv.URL, "mallory")
	if err := rogue.Mint(ctx, "w1", 1); !errors.Is(err, domain.ErrNotMinter) {
		t.Errorf("Mint(unauthorized) error = %v, want ErrNotMinter", err)
	}

	c := NewClient(srv.URL, "tasklist")
	if err := c.Burn(ctx, "w1", 1); !errors.Is(err, domain.ErrInsufficientRewards) {
		t.Errorf("Burn(empty) error = %v, want ErrInsufficientRewards", err)
	}
	if err := c.Mint(ctx, "w1", -1); err == nil {
		t.Error("Mint(-1) should fail")
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	c := NewClient(url, "tasklist")
	if err := c.Mint(ctx, "w1", 1); err == nil {
		t.Error("Mint() against closed server should fail")
	}
}
