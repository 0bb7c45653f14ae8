package daemon

import (
	"context"
	"testing"

	"github.com/ppc-network/tasklist/internal/domain"
)

func newTestDaemon(t *testing.T, cfg Config) *Daemon {
	t.Helper()
	t.Setenv("TASKLIST_HOME", t.TempDir())
	d, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig() error: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func TestNewWithConfig_Wiring(t *testing.T) {
	d := newTestDaemon(t, DefaultConfig())

	if d.Tokens == nil || d.Rewards == nil {
		t.Fatal("local token ledger should be wired by default")
	}
	if ok, _ := d.Tokens.IsMinter("tasklist"); !ok {
		t.Error("configured minter should be granted at startup")
	}
	if d.Keypair == nil {
		t.Fatal("records should be signed by default")
	}

	pub, err := d.DB.Store().GetNodeInfo(infoRecordPubKey)
	if err != nil || pub != d.Keypair.PublicKeyHex() {
		t.Errorf("stored public key = %q, %v", pub, err)
	}
	if d.NodeID == "" || d.NodeID == "node-local" {
		t.Errorf("NodeID = %q, want derived from key", d.NodeID)
	}
}

func TestDaemon_ValidationMintsLocally(t *testing.T) {
	d := newTestDaemon(t, DefaultConfig())
	ctx := context.Background()

	id, _ := d.Tasks.CreateTask(ctx, "v", "t", "")
	d.Tasks.AddWorker(ctx, "v", id, "w1")
	d.Tasks.AddWorkedHours(ctx, "w1", id, 2)
	d.Tasks.FundTask(ctx, "s", id, 5)
	if err := d.Tasks.CompleteTask(ctx, "w1", id, 1); err != nil {
		t.Fatalf("CompleteTask() error: %v", err)
	}
	if err := d.Tasks.ValidateTask(ctx, "v", id, 300, 7); err != nil {
		t.Fatalf("ValidateTask() error: %v", err)
	}

	if bal, _ := d.Tokens.BalanceOf("w1"); bal != 3 {
		t.Errorf("reward balance = %d, want 3", bal)
	}
	if n, err := d.Tasks.VerifyRecords(d.PublicKey()); err != nil || n == 0 {
		t.Errorf("VerifyRecords() = %d, %v", n, err)
	}

	for _, s := range d.Health.RunOnce(ctx) {
		if !s.Healthy {
			t.Errorf("check %q unhealthy: %s", s.Name, s.Error)
		}
	}
}

func TestNewWithConfig_RemoteRewardsUnsigned(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Reward.Endpoint = "http://127.0.0.1:1"
	cfg.Records.Sign = false
	d := newTestDaemon(t, cfg)

	if d.Tokens != nil {
		t.Error("remote endpoint should not open a local ledger")
	}
	if d.PublicKey() != nil {
		t.Error("PublicKey() should be nil when signing is off")
	}
	if d.NodeID != "node-local" {
		t.Errorf("NodeID = %q, want node-local", d.NodeID)
	}

	// Unreachable token service: validation fails and leaves the task Completed.
	ctx := context.Background()
	id, _ := d.Tasks.CreateTask(ctx, "v", "t", "")
	d.Tasks.AddWorker(ctx, "v", id, "w1")
	d.Tasks.AddWorkedHours(ctx, "w1", id, 1)
	d.Tasks.FundTask(ctx, "s", id, 1)
	d.Tasks.CompleteTask(ctx, "w1", id, 1)
	err := d.Tasks.ValidateTask(ctx, "v", id, 100, 1)
	if domain.KindOf(err) != domain.ErrMintFailed {
		t.Errorf("ValidateTask() error = %v, want mint failure", err)
	}
}

func TestNewWithConfig_Invalid(t *testing.T) {
	t.Setenv("TASKLIST_HOME", t.TempDir())
	cfg := DefaultConfig()
	cfg.Economics.SalaryRate = -1
	if _, err := NewWithConfig(cfg); err == nil {
		t.Error("NewWithConfig() should reject invalid config")
	}
}
