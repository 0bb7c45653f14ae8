package records

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ucarion/jcs"

	"github.com/ppc-network/tasklist/internal/domain"
	"github.com/ppc-network/tasklist/internal/security"
)

// Hash computes sha256(PrevHash || JCS(record fields)).
// RFC 8785 canonicalization makes the hash independent of key order.
func Hash(r domain.Record) (string, error) {
	var payload json.RawMessage
	if len(r.Payload) > 0 {
		payload = r.Payload
	}

	fields := map[string]any{
		"id":              r.ID,
		"seq":             r.Seq,
		"operation":       string(r.Operation),
		"task_id":         r.TaskID,
		"actor":           string(r.Actor),
		"payload":         payload,
		"resulting_state": int(r.ResultingState),
		"timestamp":       r.Timestamp.UTC().Format(time.RFC3339Nano),
	}

	// Round-trip through encoding/json so jcs sees plain JSON values.
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var normalized any
	if err := dec.Decode(&normalized); err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	if normalized, err = exactNumbers(normalized); err != nil {
		return "", err
	}
	canonical, err := jcs.Format(normalized)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(r.PrevHash))
	h.Write([]byte(canonical))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// maxExactInt is the largest integer a float64 holds exactly.
const maxExactInt = 1 << 53

// exactNumbers rewrites json.Number values for jcs, which only formats
// float64. Integers a double cannot hold exactly keep their decimal digits
// as a string so distinct amounts never hash alike.
func exactNumbers(v any) (any, error) {
	var err error
	switch x := v.(type) {
	case json.Number:
		s := x.String()
		if strings.ContainsAny(s, ".eE") {
			return x.Float64()
		}
		if i, err := x.Int64(); err == nil && i >= -maxExactInt && i <= maxExactInt {
			return float64(i), nil
		}
		return s, nil
	case []any:
		for i := range x {
			if x[i], err = exactNumbers(x[i]); err != nil {
				return nil, err
			}
		}
	case map[string]any:
		for k := range x {
			if x[k], err = exactNumbers(x[k]); err != nil {
				return nil, err
			}
		}
	}
	return v, nil
}

// ChainError reports the first record that breaks the chain.
type ChainError struct {
	Seq int64
	Msg string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("record chain broken at seq %d: %s", e.Seq, e.Msg)
}

// VerifyChain checks a full chain (starting at seq 1) for contiguous
// sequence numbers, prev-hash linkage, recomputed hashes and, when pub is
// non-nil, signatures.
func VerifyChain(recs []domain.Record, pub ed25519.PublicKey) error {
	prev := domain.GenesisHash
	for i, r := range recs {
		if want := int64(i + 1); r.Seq != want {
			return &ChainError{Seq: r.Seq, Msg: fmt.Sprintf("expected seq %d", want)}
		}
		if r.PrevHash != prev {
			return &ChainError{Seq: r.Seq, Msg: "prev_hash mismatch"}
		}
		got, err := Hash(r)
		if err != nil {
			return &ChainError{Seq: r.Seq, Msg: err.Error()}
		}
		if got != r.Hash {
			return &ChainError{Seq: r.Seq, Msg: "hash mismatch"}
		}
		if pub != nil {
			sig, err := hex.DecodeString(r.Signature)
			if err != nil || !security.Verify([]byte(r.Hash), sig, pub) {
				return &ChainError{Seq: r.Seq, Msg: "invalid signature"}
			}
		}
		prev = r.Hash
	}
	return nil
}
