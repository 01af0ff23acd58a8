package repository

import (
	"context"

	"playermodels-api/internal/model"
)

// Ledger defines durable access to ownership records, equipped slots, the
// transaction log and usage statistics. All errors are reported to the
// caller; callers on hot paths (spawn/join) decide whether to degrade to
// "no data" instead of failing.
type Ledger interface {
	// Owns reports whether the player owns the model.
	Owns(ctx context.Context, steamID uint64, modelID string) (bool, error)

	// GrantOwnership records ownership. Idempotent: re-granting an
	// already-owned model is a no-op, never an error.
	GrantOwnership(ctx context.Context, rec *model.OwnershipRecord) error

	// OwnedModelIDs returns every model id the player owns.
	OwnedModelIDs(ctx context.Context, steamID uint64) ([]string, error)

	// OwnedModelIDsBatch resolves ownership for many players in one query.
	OwnedModelIDsBatch(ctx context.Context, steamIDs []uint64) (map[uint64][]string, error)

	// Equipped returns the slot row, or nil when the player has no model
	// equipped for that slot.
	Equipped(ctx context.Context, steamID uint64, slot model.TeamSlot) (*model.EquippedSlot, error)

	// EquippedBatch fetches every slot row for many players in a single
	// query. This is what the cache's batch load depends on; it must not
	// degrade to one query per player.
	EquippedBatch(ctx context.Context, steamIDs []uint64) (map[uint64][]model.EquippedSlot, error)

	// SetEquipped upserts the (player, team slot) row, increments its
	// usage counter and the per-(player, model) usage statistic. A
	// re-equip of a different model resets the stored variant selections.
	SetEquipped(ctx context.Context, slot *model.EquippedSlot) error

	// DeleteEquipped removes the slot row (unequip).
	DeleteEquipped(ctx context.Context, steamID uint64, slot model.TeamSlot) error

	// VariantSelections returns the encoded variant blob for the slot,
	// empty when none is stored.
	VariantSelections(ctx context.Context, steamID uint64, slot model.TeamSlot) (string, error)

	// SetVariantSelections stores the encoded variant blob for the slot.
	SetVariantSelections(ctx context.Context, steamID uint64, slot model.TeamSlot, data string) error

	// LogTransaction appends an audit record.
	LogTransaction(ctx context.Context, entry *model.TransactionLogEntry) error

	// HasStartingBalanceGrant reports whether the one-time starting
	// balance was already granted.
	HasStartingBalanceGrant(ctx context.Context, steamID uint64) (bool, error)

	// MarkStartingBalanceGrant records the one-time grant. Idempotent.
	MarkStartingBalanceGrant(ctx context.Context, steamID uint64) error

	// DeletePlayerData wipes every row belonging to the player.
	DeletePlayerData(ctx context.Context, steamID uint64) error

	// Stats returns counters about the ledger for the admin endpoint.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the underlying connection.
	Close() error
}

// AuditLog is an optional append-only mirror of the transaction log for
// operator tooling. Failures here are observability losses, never
// correctness failures.
type AuditLog interface {
	Insert(ctx context.Context, entry *model.TransactionLogEntry) error
	List(ctx context.Context, limit, offset int) ([]model.TransactionLogEntry, int64, error)
	Close() error
}
