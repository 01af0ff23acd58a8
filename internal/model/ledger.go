package model

import "time"

// OwnershipSource records how a player came to own a model.
type OwnershipSource string

const (
	SourcePurchased OwnershipSource = "purchased"
	SourceGifted    OwnershipSource = "gifted"
	SourceFree      OwnershipSource = "free"
)

// TransactionAction classifies a transaction log entry.
type TransactionAction string

const (
	ActionPurchase    TransactionAction = "purchase"
	ActionAdminGive   TransactionAction = "admin_give"
	ActionAdminTake   TransactionAction = "admin_take"
	ActionAdminSet    TransactionAction = "admin_set"
	ActionGrantWallet TransactionAction = "starting_balance"
)

// OwnershipRecord is one row of the owned-models ledger. Its presence means
// the player may equip the model regardless of later price or catalog
// changes.
type OwnershipRecord struct {
	SteamID     uint64          `json:"steam_id"`
	ModelID     string          `json:"model_id"`
	PricePaid   int64           `json:"price_paid"`
	Source      OwnershipSource `json:"source"`
	GiftedBy    uint64          `json:"gifted_by,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	PurchasedAt time.Time       `json:"purchased_at"`
}

// EquippedSlot is the durable equip state for one (player, team slot) pair.
// At most one row exists per pair; writes are upserts.
type EquippedSlot struct {
	SteamID    uint64    `json:"steam_id"`
	TeamSlot   TeamSlot  `json:"team_slot"`
	ModelID    string    `json:"model_id"`
	ModelPath  string    `json:"model_path"`
	ArmsPath   string    `json:"arms_path,omitempty"`
	Variants   string    `json:"variants,omitempty"` // encoded component-variant blob, see variants.go
	PlayerName string    `json:"player_name,omitempty"`
	UsageCount int64     `json:"usage_count"`
	EquippedAt time.Time `json:"equipped_at"`
}

// TransactionLogEntry is an append-only audit record. Writing it must never
// block or roll back the economic operation that caused it.
type TransactionLogEntry struct {
	ID            string            `json:"id,omitempty" bson:"id,omitempty"`
	SteamID       uint64            `json:"steam_id" bson:"steam_id"`
	ModelID       string            `json:"model_id,omitempty" bson:"model_id,omitempty"`
	Action        TransactionAction `json:"action" bson:"action"`
	Amount        int64             `json:"amount" bson:"amount"`
	BalanceBefore int64             `json:"balance_before" bson:"balance_before"`
	BalanceAfter  int64             `json:"balance_after" bson:"balance_after"`
	OperatorID    uint64            `json:"operator_id,omitempty" bson:"operator_id,omitempty"`
	Reason        string            `json:"reason,omitempty" bson:"reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at" bson:"created_at"`
}

// UsageStat is the per-(player, model) equip counter.
type UsageStat struct {
	SteamID    uint64    `json:"steam_id"`
	ModelID    string    `json:"model_id"`
	UseCount   int64     `json:"use_count"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// PlayerContext carries the host-resolved facts about a player that the
// core needs for permission and team decisions. The game server owns
// permission checks and team state; this service only consumes the result.
type PlayerContext struct {
	SteamID     uint64   `json:"steam_id"`
	Name        string   `json:"name,omitempty"`
	Team        string   `json:"team,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	Vip         bool     `json:"vip"`
	Alive       bool     `json:"alive"`
}

// HasPermission reports whether the context carries the named permission.
// An empty requirement always passes.
func (p *PlayerContext) HasPermission(perm string) bool {
	if perm == "" {
		return true
	}
	for _, have := range p.Permissions {
		if have == perm {
			return true
		}
	}
	return false
}
