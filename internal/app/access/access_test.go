package access

import (
	"errors"
	"testing"
	"time"

	"github.com/ppc-network/tasklist/internal/app/records"
	"github.com/ppc-network/tasklist/internal/domain"
	"github.com/ppc-network/tasklist/internal/infra/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedTask creates task 1 with "alice" as its only validator.
func seedTask(t *testing.T, db *sqlite.DB) int64 {
	t.Helper()
	err := db.WithTx(func(s *sqlite.Store) error {
		now := time.Now()
		if err := s.InsertTask(domain.Task{ID: 1, Title: "t", Creator: "alice", CreatedAt: now, UpdatedAt: now}); err != nil {
			return err
		}
		_, err := s.AddValidator(1, "alice", now)
		return err
	})
	if err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return 1
}

type fixture struct {
	db  *sqlite.DB
	c   *Control
	rec *records.Recorder
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{db: newTestDB(t), c: NewControl(), rec: records.NewRecorder(nil)}
	seedTask(t, f.db)
	return f
}

func (f *fixture) addValidator(caller, addr domain.Address) (bool, error) {
	var added bool
	err := f.db.WithTx(func(s *sqlite.Store) error {
		var err error
		added, err = f.c.AddValidator(s, f.rec.Begin(s), caller, 1, addr)
		return err
	})
	return added, err
}

func (f *fixture) addWorker(caller, addr domain.Address) (bool, error) {
	var added bool
	err := f.db.WithTx(func(s *sqlite.Store) error {
		var err error
		added, err = f.c.AddWorker(s, f.rec.Begin(s), caller, 1, addr)
		return err
	})
	return added, err
}

// ─── Validators ─────────────────────────────────────────────────────────────

func TestAddValidator(t *testing.T) {
	f := newFixture(t)

	added, err := f.addValidator("alice", "bob")
	if err != nil {
		t.Fatalf("AddValidator() error: %v", err)
	}
	if !added {
		t.Error("AddValidator() should report a new member")
	}

	vs, _ := f.db.Store().Validators(1)
	if len(vs) != 2 || vs[0] != "alice" || vs[1] != "bob" {
		t.Errorf("Validators() = %v, want [alice bob]", vs)
	}

	// A newly enrolled validator can enroll others.
	if _, err := f.addValidator("bob", "carol"); err != nil {
		t.Errorf("AddValidator(by bob) error: %v", err)
	}
}

func TestAddValidator_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.addValidator("alice", "bob")

	added, err := f.addValidator("alice", "bob")
	if err != nil {
		t.Fatalf("AddValidator() repeat error: %v", err)
	}
	if added {
		t.Error("repeat AddValidator() should not report a change")
	}

	recs, _ := f.db.Store().TaskRecords(1)
	if len(recs) != 1 {
		t.Errorf("records = %d, want 1 (repeat emits nothing)", len(recs))
	}
}

func TestAddValidator_Unauthorized(t *testing.T) {
	f := newFixture(t)

	_, err := f.addValidator("mallory", "bob")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("AddValidator() error = %v, want ErrUnauthorized", err)
	}
	if domain.ReasonOf(err) != domain.ReasonNotValidator {
		t.Errorf("reason = %q, want %q", domain.ReasonOf(err), domain.ReasonNotValidator)
	}
}

func TestAddValidator_WorkerConflict(t *testing.T) {
	f := newFixture(t)
	f.addWorker("alice", "w1")

	_, err := f.addValidator("alice", "w1")
	if !errors.Is(err, domain.ErrRoleConflict) {
		t.Fatalf("AddValidator(worker) error = %v, want ErrRoleConflict", err)
	}
	if domain.ReasonOf(err) != domain.ReasonWorkerAsValidator {
		t.Errorf("reason = %q", domain.ReasonOf(err))
	}
}

func TestAddValidator_UnknownTask(t *testing.T) {
	f := newFixture(t)
	err := f.db.WithTx(func(s *sqlite.Store) error {
		_, err := f.c.AddValidator(s, f.rec.Begin(s), "alice", 42, "bob")
		return err
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("AddValidator(unknown task) error = %v, want ErrNotFound", err)
	}
}

// ─── Workers ────────────────────────────────────────────────────────────────

func TestAddWorker(t *testing.T) {
	f := newFixture(t)

	if _, err := f.addWorker("alice", "w1"); err != nil {
		t.Fatalf("AddWorker() error: %v", err)
	}
	if _, err := f.addWorker("alice", "w2"); err != nil {
		t.Fatalf("AddWorker() error: %v", err)
	}

	ws, _ := f.db.Store().Workers(1)
	if len(ws) != 2 || ws[0] != "w1" || ws[1] != "w2" {
		t.Errorf("Workers() = %v, want enrollment order [w1 w2]", ws)
	}

	ok, _ := f.c.IsWorker(f.db.Store(), 1, "w1")
	if !ok {
		t.Error("IsWorker(w1) = false")
	}
	ok, _ = f.c.IsValidator(f.db.Store(), 1, "w1")
	if ok {
		t.Error("IsValidator(w1) = true")
	}
}

func TestAddWorker_ValidatorConflict(t *testing.T) {
	f := newFixture(t)

	_, err := f.addWorker("alice", "alice")
	if !errors.Is(err, domain.ErrRoleConflict) {
		t.Fatalf("AddWorker(validator) error = %v, want ErrRoleConflict", err)
	}
	if domain.ReasonOf(err) != domain.ReasonValidatorAsWorker {
		t.Errorf("reason = %q", domain.ReasonOf(err))
	}
}

func TestAddWorker_Unauthorized(t *testing.T) {
	f := newFixture(t)
	f.addWorker("alice", "w1")

	// Workers cannot enroll workers.
	_, err := f.addWorker("w1", "w2")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("AddWorker(by worker) error = %v, want ErrUnauthorized", err)
	}
}

func TestAddWorker_EmptyAddress(t *testing.T) {
	f := newFixture(t)
	_, err := f.addWorker("alice", "  ")
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("AddWorker(empty) error = %v, want ErrInvalidArgument", err)
	}
}

// ─── Role Checks ────────────────────────────────────────────────────────────

func TestRequireWorker_Reason(t *testing.T) {
	f := newFixture(t)
	err := f.c.RequireWorker(f.db.Store(), 1, "nobody", domain.ReasonWorkerNotAssigned)
	if !errors.Is(err, domain.ErrUnauthorized) || domain.ReasonOf(err) != domain.ReasonWorkerNotAssigned {
		t.Errorf("RequireWorker() = %v", err)
	}
	if err := f.c.RequireValidator(f.db.Store(), 1, "alice"); err != nil {
		t.Errorf("RequireValidator(alice) error: %v", err)
	}
}
