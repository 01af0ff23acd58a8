package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"playermodels-api/internal/model"
	"playermodels-api/internal/repository"
)

// SlotRef is the cached view of one equipped slot.
type SlotRef struct {
	ModelID   string `json:"model_id"`
	ModelPath string `json:"model_path"`
	ArmsPath  string `json:"arms_path,omitempty"`
}

// Entry mirrors the three equipped-slot rows for one player. Entries are
// immutable once published: every mutation builds a fresh Entry and swaps
// the pointer, so readers never observe a half-updated entry.
type Entry struct {
	All         *SlotRef
	CT          *SlotRef
	T           *SlotRef
	LastUpdated time.Time
}

// Slot returns the cached ref for the given team slot.
func (e *Entry) Slot(slot model.TeamSlot) *SlotRef {
	switch slot {
	case model.TeamAll:
		return e.All
	case model.TeamCT:
		return e.CT
	case model.TeamT:
		return e.T
	}
	return nil
}

// Resolve applies the priority rule: the All slot wins; the team slot is
// consulted only when All is empty.
func (e *Entry) Resolve(team model.TeamSlot) *SlotRef {
	if e.All != nil && e.All.ModelPath != "" {
		return e.All
	}
	return e.Slot(team)
}

func (e *Entry) clone() *Entry {
	c := *e
	return &c
}

// ModelCache is the in-memory read-through view of the ledger's equip
// state, hit on every spawn/join/round-start instead of the database.
type ModelCache struct {
	mu      sync.RWMutex
	entries map[uint64]*Entry
	ledger  repository.Ledger
}

// New creates a cache backed by the given ledger.
func New(ledger repository.Ledger) *ModelCache {
	return &ModelCache{
		entries: make(map[uint64]*Entry),
		ledger:  ledger,
	}
}

// Get returns the player's cache entry. ok is false when the player was
// never loaded; an empty-but-present entry means "loaded, nothing
// equipped".
func (c *ModelCache) Get(steamID uint64) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[steamID]
	return entry, ok
}

// BatchLoad populates entries for all given players from a single ledger
// query. Players with no rows get an empty entry so future lookups
// short-circuit. On ledger failure nothing is populated, so the next
// spawn retries the load.
func (c *ModelCache) BatchLoad(ctx context.Context, steamIDs []uint64) error {
	if len(steamIDs) == 0 {
		return nil
	}

	batch, err := c.ledger.EquippedBatch(ctx, steamIDs)
	if err != nil {
		return err
	}

	now := time.Now()
	loaded := make(map[uint64]*Entry, len(steamIDs))
	for _, steamID := range steamIDs {
		entry := &Entry{LastUpdated: now}
		for _, slot := range batch[steamID] {
			ref := &SlotRef{
				ModelID:   slot.ModelID,
				ModelPath: slot.ModelPath,
				ArmsPath:  slot.ArmsPath,
			}
			switch slot.TeamSlot {
			case model.TeamAll:
				entry.All = ref
			case model.TeamCT:
				entry.CT = ref
			case model.TeamT:
				entry.T = ref
			}
		}
		loaded[steamID] = entry
	}

	c.mu.Lock()
	for steamID, entry := range loaded {
		c.entries[steamID] = entry
	}
	c.mu.Unlock()

	log.Printf("[ModelCache] Batch loaded %d players", len(steamIDs))
	return nil
}

// Load is the single-player read-through used when a player spawns before
// any batch load has seen them.
func (c *ModelCache) Load(ctx context.Context, steamID uint64) error {
	return c.BatchLoad(ctx, []uint64{steamID})
}

// UpdateSlot publishes a local change for one slot, used right after an
// equip or unequip so the new state is visible before the next ledger
// round trip. A nil ref clears the slot.
func (c *ModelCache) UpdateSlot(steamID uint64, slot model.TeamSlot, ref *SlotRef) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[steamID]
	if !ok {
		entry = &Entry{}
	} else {
		entry = entry.clone()
	}

	switch slot {
	case model.TeamAll:
		entry.All = ref
	case model.TeamCT:
		entry.CT = ref
	case model.TeamT:
		entry.T = ref
	default:
		return
	}
	entry.LastUpdated = time.Now()
	c.entries[steamID] = entry
}

// Resolve returns the slot to render for the player on the given team,
// following the All > CT/T priority rule. ok is false when the player is
// not loaded or nothing resolves; the caller falls back to the configured
// default.
func (c *ModelCache) Resolve(steamID uint64, team model.TeamSlot) (*SlotRef, bool) {
	entry, ok := c.Get(steamID)
	if !ok {
		return nil, false
	}
	ref := entry.Resolve(team)
	if ref == nil || ref.ModelPath == "" {
		return nil, false
	}
	return ref, true
}

// Clear removes the player's entry.
func (c *ModelCache) Clear(steamID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, steamID)
}

// ClearAll removes every entry.
func (c *ModelCache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]*Entry)
}

// Len returns the number of cached players.
func (c *ModelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
