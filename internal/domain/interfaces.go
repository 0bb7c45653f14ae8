package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the application layer depends on them.

// RewardHook mints reward-token units to workers on validation.
// The token itself lives outside the task core (infra/token provides a local
// SQLite ledger and an HTTP client for a remote token service).
type RewardHook interface {
	// Mint credits amount reward units to the given address.
	Mint(ctx context.Context, to Address, amount int64) error

	// Burn removes units previously minted. Only used to compensate mints
	// when the surrounding validation cannot commit.
	Burn(ctx context.Context, from Address, amount int64) error
}

// RecordSink receives committed operation records. Implementations must not
// block the caller.
type RecordSink interface {
	Publish(records ...Record)
}
