// Package records emits the structured record of every state-changing task
// operation. Records are appended inside the operation's transaction and
// linked into a hash chain, so a committed operation and its records become
// visible together and later tampering is detectable.
package records

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ppc-network/tasklist/internal/domain"
	"github.com/ppc-network/tasklist/internal/infra/sqlite"
)

// Signer signs chain hashes. *security.Keypair satisfies it.
type Signer interface {
	Sign(message []byte) []byte
}

// Recorder creates per-operation batches.
type Recorder struct {
	signer Signer
	now    func() time.Time
}

// NewRecorder creates a recorder. signer may be nil (unsigned chain).
func NewRecorder(signer Signer) *Recorder {
	return &Recorder{signer: signer, now: time.Now}
}

// SetClock overrides the time source (tests).
func (r *Recorder) SetClock(now func() time.Time) { r.now = now }

// Begin starts a batch bound to an open transaction.
func (r *Recorder) Begin(s *sqlite.Store) *Batch {
	return &Batch{rec: r, store: s}
}

// Batch collects the records of one operation. It is only valid for the
// lifetime of the transaction it was started on.
type Batch struct {
	rec     *Recorder
	store   *sqlite.Store
	head    *domain.Record
	loaded  bool
	records []domain.Record
}

// Emit appends a record for op to the chain.
func (b *Batch) Emit(op domain.Operation, taskID int64, actor domain.Address, state domain.TaskState, payload any) (*domain.Record, error) {
	if !b.loaded {
		head, err := b.store.LastRecord()
		if err != nil {
			return nil, fmt.Errorf("load chain head: %w", err)
		}
		b.head = head
		b.loaded = true
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", op, err)
	}

	r := domain.Record{
		ID:             uuid.New().String(),
		Seq:            1,
		Operation:      op,
		TaskID:         taskID,
		Actor:          actor,
		Payload:        raw,
		ResultingState: state,
		Timestamp:      b.rec.now().UTC(),
		PrevHash:       domain.GenesisHash,
	}
	if b.head != nil {
		r.Seq = b.head.Seq + 1
		r.PrevHash = b.head.Hash
	}

	r.Hash, err = Hash(r)
	if err != nil {
		return nil, fmt.Errorf("hash record: %w", err)
	}
	if b.rec.signer != nil {
		r.Signature = hex.EncodeToString(b.rec.signer.Sign([]byte(r.Hash)))
	}

	if err := b.store.InsertRecord(r); err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	b.head = &r
	b.records = append(b.records, r)
	return &r, nil
}

// Records returns what the batch emitted, in order.
func (b *Batch) Records() []domain.Record {
	return b.records
}
