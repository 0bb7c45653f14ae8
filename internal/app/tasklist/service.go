// Package tasklist implements the task state machine.
// It owns the task records and orchestrates access control, the hours
// ledger, escrow and the reward hook. Every mutating operation holds the
// service mutex and runs in one SQLite transaction together with the
// records it emits, so an operation either commits completely or leaves
// no trace.
package tasklist

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ppc-network/tasklist/internal/app/access"
	"github.com/ppc-network/tasklist/internal/app/escrow"
	"github.com/ppc-network/tasklist/internal/app/hours"
	"github.com/ppc-network/tasklist/internal/app/records"
	"github.com/ppc-network/tasklist/internal/app/reward"
	"github.com/ppc-network/tasklist/internal/domain"
	"github.com/ppc-network/tasklist/internal/infra/metrics"
	"github.com/ppc-network/tasklist/internal/infra/sqlite"
	"github.com/ppc-network/tasklist/internal/logx"
)

// DefaultSalaryRate is the native units paid per worked hour.
const DefaultSalaryRate int64 = 1

// Config holds the economic parameters of the service.
type Config struct {
	SalaryRate int64
	Reward     reward.Policy
}

// DefaultConfig returns a salary rate of 1 and the flat reward policy.
func DefaultConfig() Config {
	return Config{SalaryRate: DefaultSalaryRate, Reward: reward.DefaultPolicy()}
}

// Service is the task list.
type Service struct {
	mu       sync.Mutex
	db       *sqlite.DB
	access   *access.Control
	hours    *hours.Ledger
	escrow   *escrow.Ledger
	recorder *records.Recorder
	sink     domain.RecordSink
	rewards  domain.RewardHook
	cfg      Config
	now      func() time.Time
}

// NewService wires the task list. sink and rewards may be nil: without a
// sink records are only persisted, without a reward hook nothing is minted.
func NewService(db *sqlite.DB, recorder *records.Recorder, sink domain.RecordSink, rewards domain.RewardHook, cfg Config) *Service {
	if recorder == nil {
		recorder = records.NewRecorder(nil)
	}
	if cfg.Reward.PPCPerUnit <= 0 {
		cfg.Reward = reward.DefaultPolicy()
	}
	ac := access.NewControl()
	return &Service{
		db:       db,
		access:   ac,
		hours:    hours.NewLedger(ac),
		escrow:   escrow.NewLedger(),
		recorder: recorder,
		sink:     sink,
		rewards:  rewards,
		cfg:      cfg,
		now:      time.Now,
	}
}

// run executes fn as one atomic operation and publishes its records after
// commit.
func (s *Service) run(ctx context.Context, op string, fn func(st *sqlite.Store, b *records.Batch) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	var batch *records.Batch
	err := s.db.WithTx(func(st *sqlite.Store) error {
		batch = s.recorder.Begin(st)
		return fn(st, batch)
	})
	if err != nil {
		metrics.OperationsFailed.WithLabelValues(op, domain.KindName(err)).Inc()
		logx.Debugf("[tasklist] %s failed: %v", op, err)
		return err
	}
	metrics.OperationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())

	recs := batch.Records()
	for _, r := range recs {
		metrics.RecordsEmitted.WithLabelValues(string(r.Operation)).Inc()
	}
	if s.sink != nil && len(recs) > 0 {
		s.sink.Publish(recs...)
	}
	return nil
}

// ─── Lifecycle ──────────────────────────────────────────────────────────────

// CreateTask opens a new task with the caller as its only validator.
func (s *Service) CreateTask(ctx context.Context, caller domain.Address, title, description string) (int64, error) {
	caller, err := domain.ParseAddress(string(caller))
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.run(ctx, "create", func(st *sqlite.Store, b *records.Batch) error {
		next, err := st.NextTaskID()
		if err != nil {
			return fmt.Errorf("next task id: %w", err)
		}
		now := s.now()
		task := domain.Task{
			ID:          next,
			Title:       title,
			Description: description,
			State:       domain.StateOpen,
			Creator:     caller,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := st.InsertTask(task); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		if _, err := st.AddValidator(next, caller, now); err != nil {
			return fmt.Errorf("enroll creator: %w", err)
		}
		if _, err := b.Emit(domain.OpTaskCreated, next, caller, domain.StateOpen, map[string]any{
			"id":         next,
			"title":      title,
			"state":      domain.StateOpen,
			"validators": []domain.Address{caller},
		}); err != nil {
			return err
		}
		id = next
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.TasksCreated.Inc()
	log.Printf("[tasklist] task %d created by %s", id, caller)
	return id, nil
}

// ToggleStarted flips a task between Open and Started. Validators only.
// Returns the resulting state.
func (s *Service) ToggleStarted(ctx context.Context, caller domain.Address, id int64) (domain.TaskState, error) {
	var state domain.TaskState
	err := s.run(ctx, "toggle_started", func(st *sqlite.Store, b *records.Batch) error {
		task, err := st.RequireTask(id)
		if err != nil {
			return err
		}
		if err := s.access.RequireValidator(st, id, caller); err != nil {
			return err
		}

		op := domain.OpTaskStarted
		next := domain.StateStarted
		switch task.State {
		case domain.StateOpen:
		case domain.StateStarted:
			op, next = domain.OpTaskReopened, domain.StateOpen
		default:
			return domain.NewTaskError(domain.ErrInvalidState, domain.ReasonTaskNotOpen)
		}

		task.State = next
		task.UpdatedAt = s.now()
		if err := st.UpdateTask(task); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if _, err := b.Emit(op, id, caller, next, map[string]any{"state": next}); err != nil {
			return err
		}
		state = next
		return nil
	})
	if err != nil {
		return 0, err
	}
	metrics.TaskTransitions.WithLabelValues(state.String()).Inc()
	return state, nil
}

// CompleteTask marks the task Completed with the worker's self-reported
// metric. Only assigned workers may complete, from Open or Started.
func (s *Service) CompleteTask(ctx context.Context, caller domain.Address, id, ppcWorker int64) error {
	err := s.run(ctx, "complete", func(st *sqlite.Store, b *records.Batch) error {
		task, err := st.RequireTask(id)
		if err != nil {
			return err
		}
		if err := s.access.RequireWorker(st, id, caller, domain.ReasonNotWorker); err != nil {
			return err
		}
		if !domain.CanTransition(task.State, domain.StateCompleted) {
			if task.IsTerminal() {
				return domain.NewTaskError(domain.ErrInvalidState, domain.ReasonTaskValidated)
			}
			return domain.NewTaskError(domain.ErrInvalidState, domain.ReasonTaskNotOpen)
		}

		task.PPCWorker = ppcWorker
		task.State = domain.StateCompleted
		task.UpdatedAt = s.now()
		if err := st.UpdateTask(task); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		_, err = b.Emit(domain.OpTaskCompleted, id, caller, domain.StateCompleted, map[string]any{
			"ppc_worker": ppcWorker,
		})
		return err
	})
	if err != nil {
		return err
	}
	metrics.TaskTransitions.WithLabelValues(domain.StateCompleted.String()).Inc()
	log.Printf("[tasklist] task %d completed by %s", id, caller)
	return nil
}

// mint is one reward credit made during validation.
type mint struct {
	to     domain.Address
	amount int64
}

// ValidateTask finalizes a Completed task: records ppc and qRating, pays
// every worker with hours SalaryRate*hours from escrow, and mints their
// reward units. The transition, payouts and mints succeed or fail together;
// mints already made when the operation fails are burned back.
func (s *Service) ValidateTask(ctx context.Context, caller domain.Address, id, ppc, qRating int64) error {
	var minted []mint
	var paid int64

	err := s.run(ctx, "validate", func(st *sqlite.Store, b *records.Batch) error {
		task, err := st.RequireTask(id)
		if err != nil {
			return err
		}
		if err := s.access.RequireValidator(st, id, caller); err != nil {
			return err
		}
		if task.State != domain.StateCompleted {
			if task.IsTerminal() {
				return domain.NewTaskError(domain.ErrInvalidState, domain.ReasonTaskValidated)
			}
			return domain.NewTaskError(domain.ErrInvalidState, domain.ReasonTaskNotCompleted)
		}

		totals, err := s.hours.Totals(st, id)
		if err != nil {
			return fmt.Errorf("load worked hours: %w", err)
		}
		// Amounts are settled before any mutation. A payout that overflows
		// int64 can never be covered by the balance.
		var totalHours, totalPayout int64
		payouts := make([]int64, len(totals))
		for i, h := range totals {
			var ok bool
			if totalHours, ok = domain.AddAmount(totalHours, h.Hours); !ok {
				return domain.NewTaskError(domain.ErrInvalidArgument, domain.ReasonHoursOverflow)
			}
			if payouts[i], ok = domain.MulAmount(s.cfg.SalaryRate, h.Hours); !ok {
				return domain.NewTaskError(domain.ErrInsufficientFunds, domain.ReasonInsufficientFunds)
			}
			if totalPayout, ok = domain.AddAmount(totalPayout, payouts[i]); !ok {
				return domain.NewTaskError(domain.ErrInsufficientFunds, domain.ReasonInsufficientFunds)
			}
		}
		if totalPayout > task.Balance {
			return domain.NewTaskError(domain.ErrInsufficientFunds, domain.ReasonInsufficientFunds)
		}
		units := make([]int64, len(totals))
		if s.rewards != nil {
			for i, h := range totals {
				amount, err := s.cfg.Reward.Amount(ppc, h.Hours, totalHours)
				if err != nil {
					return &domain.TaskError{Kind: domain.ErrInvalidArgument, Reason: domain.ReasonAmountOverflow, Err: err}
				}
				units[i] = amount
			}
		}

		task.PPC = ppc
		task.QRating = qRating
		task.State = domain.StateValidated
		task.UpdatedAt = s.now()
		if err := st.UpdateTask(task); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if _, err := b.Emit(domain.OpTaskValidated, id, caller, domain.StateValidated, map[string]any{
			"ppc":         ppc,
			"q_rating":    qRating,
			"total_hours": totalHours,
			"payout":      totalPayout,
		}); err != nil {
			return err
		}

		for i, h := range totals {
			if h.Hours <= 0 || payouts[i] <= 0 {
				continue
			}
			if err := s.escrow.Payout(st, b, task, caller, h.Worker, payouts[i]); err != nil {
				return err
			}
		}
		paid = totalPayout

		// Mints go last so a storage failure above never needs compensation.
		if s.rewards == nil {
			return nil
		}
		for i, h := range totals {
			amount := units[i]
			if amount <= 0 {
				continue
			}
			if err := s.rewards.Mint(ctx, h.Worker, amount); err != nil {
				return &domain.TaskError{Kind: domain.ErrMintFailed, Reason: domain.ReasonRewardMintFailed, Err: err}
			}
			minted = append(minted, mint{to: h.Worker, amount: amount})
		}
		return nil
	})
	if err != nil {
		s.compensate(ctx, id, minted)
		return err
	}

	metrics.TaskTransitions.WithLabelValues(domain.StateValidated.String()).Inc()
	metrics.EscrowPaid.Add(float64(paid))
	for _, m := range minted {
		metrics.RewardsMinted.Add(float64(m.amount))
	}
	s.refreshBalanceGauge()
	log.Printf("[tasklist] task %d validated by %s: paid %d, %d reward mints", id, caller, paid, len(minted))
	return nil
}

// compensate burns rewards minted by a validation that did not commit.
func (s *Service) compensate(ctx context.Context, id int64, minted []mint) {
	if len(minted) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, m := range minted {
		if err := s.rewards.Burn(ctx, m.to, m.amount); err != nil {
			log.Printf("[tasklist] WARNING: task %d: could not burn %d reward units from %s: %v", id, m.amount, m.to, err)
			continue
		}
		metrics.RewardsCompensated.Add(float64(m.amount))
	}
	log.Printf("[tasklist] task %d validation rolled back, compensated %d mints", id, len(minted))
}

// ─── Roles ──────────────────────────────────────────────────────────────────

// AddValidator enrolls addr as a validator. Reports whether the set changed.
func (s *Service) AddValidator(ctx context.Context, caller domain.Address, id int64, addr domain.Address) (bool, error) {
	var added bool
	err := s.run(ctx, "add_validator", func(st *sqlite.Store, b *records.Batch) error {
		var err error
		added, err = s.access.AddValidator(st, b, caller, id, addr)
		return err
	})
	return added, err
}

// AddWorker enrolls addr as a worker. Reports whether the set changed.
func (s *Service) AddWorker(ctx context.Context, caller domain.Address, id int64, addr domain.Address) (bool, error) {
	var added bool
	err := s.run(ctx, "add_worker", func(st *sqlite.Store, b *records.Batch) error {
		var err error
		added, err = s.access.AddWorker(st, b, caller, id, addr)
		return err
	})
	return added, err
}

// ─── Hours & Escrow ─────────────────────────────────────────────────────────

// AddWorkedHours credits hours to the calling worker and returns the total.
func (s *Service) AddWorkedHours(ctx context.Context, caller domain.Address, id, hrs int64) (int64, error) {
	var total int64
	err := s.run(ctx, "add_hours", func(st *sqlite.Store, b *records.Batch) error {
		var err error
		total, err = s.hours.Add(st, b, caller, id, hrs)
		return err
	})
	return total, err
}

// FundTask deposits amount into the task escrow and returns its balance.
func (s *Service) FundTask(ctx context.Context, caller domain.Address, id, amount int64) (int64, error) {
	caller, err := domain.ParseAddress(string(caller))
	if err != nil {
		return 0, err
	}

	var balance int64
	err = s.run(ctx, "fund", func(st *sqlite.Store, b *records.Batch) error {
		var err error
		balance, err = s.escrow.Fund(st, b, caller, id, amount)
		return err
	})
	if err != nil {
		return 0, err
	}
	metrics.EscrowFunded.Add(float64(amount))
	s.refreshBalanceGauge()
	return balance, nil
}

func (s *Service) refreshBalanceGauge() {
	total, err := s.db.Store().ContractBalance()
	if err != nil {
		log.Printf("[tasklist] contract balance: %v", err)
		return
	}
	metrics.ContractBalance.Set(float64(total))
}

// ─── Queries ────────────────────────────────────────────────────────────────

// GetTask returns a snapshot of the task.
func (s *Service) GetTask(id int64) (*domain.Task, error) {
	return s.db.Store().RequireTask(id)
}

// ListTasks lists tasks in id order. domain.StateAny matches every state.
func (s *Service) ListTasks(state domain.TaskState, limit int) ([]domain.Task, error) {
	return s.db.Store().ListTasks(state, limit)
}

// Validators returns the task's validators in enrollment order.
func (s *Service) Validators(id int64) ([]domain.Address, error) {
	if _, err := s.db.Store().RequireTask(id); err != nil {
		return nil, err
	}
	return s.db.Store().Validators(id)
}

// Workers returns the task's workers in enrollment order.
func (s *Service) Workers(id int64) ([]domain.Address, error) {
	if _, err := s.db.Store().RequireTask(id); err != nil {
		return nil, err
	}
	return s.db.Store().Workers(id)
}

// IsValidator reports whether addr validates the task.
func (s *Service) IsValidator(id int64, addr domain.Address) (bool, error) {
	return s.access.IsValidator(s.db.Store(), id, addr)
}

// IsWorker reports whether addr works on the task.
func (s *Service) IsWorker(id int64, addr domain.Address) (bool, error) {
	return s.access.IsWorker(s.db.Store(), id, addr)
}

// WorkedHours returns the worker's hours on the task, 0 if unset.
func (s *Service) WorkedHours(id int64, worker domain.Address) (int64, error) {
	return s.hours.Get(s.db.Store(), id, worker)
}

// ContractBalance is the sum of all task escrow balances.
func (s *Service) ContractBalance() (int64, error) {
	return s.escrow.ContractBalance(s.db.Store())
}

// Earnings returns the salary paid to a worker across all tasks.
func (s *Service) Earnings(worker domain.Address) (int64, error) {
	return s.escrow.Earnings(s.db.Store(), worker)
}

// LedgerHistory returns recent escrow entries for an account.
func (s *Service) LedgerHistory(account string, limit int) ([]domain.LedgerEntry, error) {
	return s.escrow.History(s.db.Store(), account, limit)
}

// SalaryRate is the configured payout per worked hour.
func (s *Service) SalaryRate() int64 {
	return s.cfg.SalaryRate
}

// RewardPolicy is the configured ppc scaling.
func (s *Service) RewardPolicy() reward.Policy {
	return s.cfg.Reward
}

// TaskCount returns the number of tasks created.
func (s *Service) TaskCount() (int64, error) {
	return s.db.Store().TaskCount()
}

// TaskRecords returns the records of one task in chain order.
func (s *Service) TaskRecords(id int64) ([]domain.Record, error) {
	return s.db.Store().TaskRecords(id)
}

// Records returns up to limit records after seq.
func (s *Service) Records(afterSeq int64, limit int) ([]domain.Record, error) {
	return s.db.Store().Records(afterSeq, limit)
}

// VerifyRecords checks the whole record chain. pub may be nil to skip
// signature checks.
func (s *Service) VerifyRecords(pub ed25519.PublicKey) (int, error) {
	recs, err := s.db.Store().Records(0, 0)
	if err != nil {
		return 0, fmt.Errorf("load records: %w", err)
	}
	return len(recs), records.VerifyChain(recs, pub)
}

// Reconcile checks the escrow invariants.
func (s *Service) Reconcile() error {
	return s.escrow.Reconcile(s.db.Store())
}
