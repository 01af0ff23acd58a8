package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"playermodels-api/internal/cache"
	"playermodels-api/internal/catalog"
	"playermodels-api/internal/model"
	"playermodels-api/internal/repository"
	"playermodels-api/internal/wallet"
	"playermodels-api/pkg/apierror"
	"playermodels-api/pkg/uid"
)

// EquipState is the terminal state of one equip action. Either way the
// next spawn re-reads the cache, which is what makes deferred equips
// eventually consistent.
type EquipState string

const (
	// EquipSaved means the equip was durably recorded but not pushed to
	// the live entity (wrong team, dead player, or immediate apply off).
	EquipSaved EquipState = "saved"
	// EquipApplied means the caller should also push the model to the
	// live entity now.
	EquipApplied EquipState = "applied"
)

// PurchaseResult reports a successful purchase.
type PurchaseResult struct {
	ModelID     string                `json:"model_id"`
	DisplayName string                `json:"display_name"`
	PricePaid   int64                 `json:"price_paid"`
	Balance     int64                 `json:"balance"`
	Source      model.OwnershipSource `json:"source"`
}

// VariantApplication tells the caller which body group to set on the
// player entity.
type VariantApplication struct {
	ComponentID   string `json:"component_id"`
	BodyGroupName string `json:"body_group_name"`
	Index         int    `json:"index"`
}

// EquipResult reports a successful equip.
type EquipResult struct {
	State     EquipState           `json:"state"`
	TeamSlot  model.TeamSlot       `json:"team_slot"`
	ModelPath string               `json:"model_path"`
	ArmsPath  string               `json:"arms_path,omitempty"`
	Variants  []VariantApplication `json:"variants,omitempty"`
}

// UnequipResult reports the re-resolved state after an unequip. Deleting
// the All slot can reveal a previously shadowed team equip, so the caller
// gets the path to push live (or the team default).
type UnequipResult struct {
	TeamSlot      model.TeamSlot `json:"team_slot"`
	NextModelPath string         `json:"next_model_path,omitempty"`
	NextArmsPath  string         `json:"next_arms_path,omitempty"`
	FromDefault   bool           `json:"from_default"`
	Apply         bool           `json:"apply"`
}

// ResolveResult is the answer to "which model should this player render
// as right now".
type ResolveResult struct {
	ModelPath   string `json:"model_path,omitempty"`
	ArmsPath    string `json:"arms_path,omitempty"`
	ModelID     string `json:"model_id,omitempty"`
	FromDefault bool   `json:"from_default"`
}

// Config holds the orchestrator's behavior switches.
type Config struct {
	PurchaseEnabled    bool
	WalletKind         string
	ImmediateApply     bool
	DefaultCTModelPath string
	DefaultTModelPath  string
	MaxAdjustAmount    int64
}

// Orchestrator sequences the multi-step purchase/equip/unequip operations
// across the catalog, ledger, cache and the external wallet. It is the
// only place cross-cutting failure policy is decided.
type Orchestrator struct {
	catalog *catalog.Catalog
	ledger  repository.Ledger
	cache   *cache.ModelCache
	wallet  wallet.Wallet       // nil when no economy is connected
	audit   repository.AuditLog // nil when no audit sink is configured
	cfg     Config

	purchaseLocks keyedMutex
}

// New wires the orchestrator. catalog, ledger and cache are required;
// wallet and audit are optional collaborators.
func New(cat *catalog.Catalog, ledger repository.Ledger, modelCache *cache.ModelCache,
	w wallet.Wallet, audit repository.AuditLog, cfg Config) *Orchestrator {
	return &Orchestrator{
		catalog: cat,
		ledger:  ledger,
		cache:   modelCache,
		wallet:  w,
		audit:   audit,
		cfg:     cfg,
	}
}

// Purchase runs the purchase protocol. Ordering guarantee: the wallet
// debit happens before the ownership grant is recorded. A crash between
// the two leaves the player paid but not granted; the wallet is the
// source of truth for money and there is no compensating transaction.
func (o *Orchestrator) Purchase(ctx context.Context, player *model.PlayerContext, modelID string) (*PurchaseResult, error) {
	if !o.cfg.PurchaseEnabled {
		return nil, apierror.PurchaseDisabled()
	}
	if o.wallet == nil {
		return nil, apierror.EconomyUnavailable()
	}

	def := o.catalog.ByID(modelID)
	if def == nil {
		return nil, apierror.ModelNotFound(modelID)
	}
	if !o.catalog.CanUse(player, def) {
		return nil, apierror.PermissionDenied(modelID)
	}

	// Serialize concurrent purchases of the same model by the same
	// player: both could otherwise pass the AlreadyOwned check and both
	// debit the wallet before either grant lands.
	unlock := o.purchaseLocks.lock(fmt.Sprintf("%d/%s", player.SteamID, modelID))
	defer unlock()

	owns, err := o.ledger.Owns(ctx, player.SteamID, modelID)
	if err != nil {
		return nil, apierror.PersistenceFailure("ownership check", err)
	}
	if owns {
		return nil, apierror.AlreadyOwned(modelID)
	}

	if def.Price == 0 {
		rec := &model.OwnershipRecord{
			SteamID: player.SteamID,
			ModelID: modelID,
			Source:  model.SourceFree,
		}
		if err := o.ledger.GrantOwnership(ctx, rec); err != nil {
			return nil, apierror.PersistenceFailure("ownership grant", err)
		}
		return &PurchaseResult{
			ModelID:     modelID,
			DisplayName: def.DisplayName,
			Source:      model.SourceFree,
		}, nil
	}

	balance, err := o.wallet.GetBalance(ctx, player.SteamID, o.cfg.WalletKind)
	if err != nil {
		return nil, apierror.EconomyUnavailable()
	}
	if balance < def.Price {
		return nil, apierror.InsufficientFunds(def.Price, balance, o.cfg.WalletKind)
	}

	newBalance, err := o.wallet.Debit(ctx, player.SteamID, o.cfg.WalletKind, def.Price)
	if err == wallet.ErrInsufficientFunds {
		return nil, apierror.InsufficientFunds(def.Price, balance, o.cfg.WalletKind)
	}
	if err != nil {
		return nil, apierror.EconomyUnavailable()
	}

	rec := &model.OwnershipRecord{
		SteamID:   player.SteamID,
		ModelID:   modelID,
		PricePaid: def.Price,
		Source:    model.SourcePurchased,
	}
	if err := o.ledger.GrantOwnership(ctx, rec); err != nil {
		// Money left the wallet but the grant did not land. Surface the
		// failure and leave a loud trail for the operator.
		log.Printf("[Orchestrator] CRITICAL: player %d paid %d for %s but ownership grant failed: %v",
			player.SteamID, def.Price, modelID, err)
		return nil, apierror.PersistenceFailure("ownership grant after debit", err)
	}

	o.logTransaction(ctx, &model.TransactionLogEntry{
		SteamID:       player.SteamID,
		ModelID:       modelID,
		Action:        model.ActionPurchase,
		Amount:        def.Price,
		BalanceBefore: balance,
		BalanceAfter:  newBalance,
	})

	return &PurchaseResult{
		ModelID:     modelID,
		DisplayName: def.DisplayName,
		PricePaid:   def.Price,
		Balance:     newBalance,
		Source:      model.SourcePurchased,
	}, nil
}

// Equip runs the equip protocol: validate, durably record, then update
// the cache. The cache update must follow the durable write so a crash
// between them costs one extra ledger read, not data loss.
func (o *Orchestrator) Equip(ctx context.Context, player *model.PlayerContext, modelID string) (*EquipResult, error) {
	def := o.catalog.ByID(modelID)
	if def == nil {
		return nil, apierror.ModelNotFound(modelID)
	}
	if !o.catalog.CanUse(player, def) {
		return nil, apierror.PermissionDenied(modelID)
	}

	if def.Price > 0 {
		owns, err := o.ledger.Owns(ctx, player.SteamID, modelID)
		if err != nil {
			return nil, apierror.PersistenceFailure("ownership check", err)
		}
		if !owns {
			return nil, apierror.NotOwned(modelID)
		}
	}

	slot := &model.EquippedSlot{
		SteamID:    player.SteamID,
		TeamSlot:   def.Team,
		ModelID:    def.ModelID,
		ModelPath:  def.ModelPath,
		ArmsPath:   def.ArmsPath,
		PlayerName: player.Name,
	}
	if err := o.ledger.SetEquipped(ctx, slot); err != nil {
		return nil, apierror.PersistenceFailure("equip write", err)
	}

	o.cache.UpdateSlot(player.SteamID, def.Team, &cache.SlotRef{
		ModelID:   def.ModelID,
		ModelPath: def.ModelPath,
		ArmsPath:  def.ArmsPath,
	})

	variants, err := o.ensureVariants(ctx, player.SteamID, def)
	if err != nil {
		// The equip itself is durable; variant defaults are cosmetic.
		log.Printf("[Orchestrator] variant defaults for player %d model %s failed: %v",
			player.SteamID, modelID, err)
	}

	state := EquipSaved
	if o.shouldApplyNow(player, def) {
		state = EquipApplied
	}

	return &EquipResult{
		State:     state,
		TeamSlot:  def.Team,
		ModelPath: def.ModelPath,
		ArmsPath:  def.ArmsPath,
		Variants:  variants,
	}, nil
}

// ensureVariants applies each component's default selection only when no
// selection is persisted yet for the slot, then returns what the caller
// should apply to the entity.
func (o *Orchestrator) ensureVariants(ctx context.Context, steamID uint64, def *model.Definition) ([]VariantApplication, error) {
	if len(def.Components) == 0 {
		return nil, nil
	}

	stored, err := o.ledger.VariantSelections(ctx, steamID, def.Team)
	if err != nil {
		return nil, err
	}

	selections := model.DecodeVariants(stored)
	if len(selections) == 0 {
		selections = make(map[string]int, len(def.Components))
		for _, comp := range def.Components {
			if opt := comp.DefaultOption(); opt != nil {
				selections[comp.ComponentID] = opt.Index
			}
		}
		if len(selections) > 0 {
			if err := o.ledger.SetVariantSelections(ctx, steamID, def.Team,
				model.EncodeVariants(selections)); err != nil {
				return nil, err
			}
		}
	}

	apps := make([]VariantApplication, 0, len(selections))
	for _, comp := range def.Components {
		if index, ok := selections[comp.ComponentID]; ok {
			apps = append(apps, VariantApplication{
				ComponentID:   comp.ComponentID,
				BodyGroupName: comp.BodyGroupName,
				Index:         index,
			})
		}
	}
	return apps, nil
}

// SelectVariant persists one component choice and tells the caller how to
// apply it.
func (o *Orchestrator) SelectVariant(ctx context.Context, player *model.PlayerContext, modelID, componentID, optionID string) (*VariantApplication, error) {
	def := o.catalog.ByID(modelID)
	if def == nil {
		return nil, apierror.ModelNotFound(modelID)
	}
	if !o.catalog.CanUse(player, def) {
		return nil, apierror.PermissionDenied(modelID)
	}

	comp := def.Component(componentID)
	if comp == nil {
		return nil, apierror.BadRequest(fmt.Sprintf("model %q has no component %q", modelID, componentID))
	}
	opt := comp.Option(optionID)
	if opt == nil {
		return nil, apierror.BadRequest(fmt.Sprintf("component %q has no option %q", componentID, optionID))
	}

	stored, err := o.ledger.VariantSelections(ctx, player.SteamID, def.Team)
	if err != nil {
		return nil, apierror.PersistenceFailure("variant read", err)
	}
	selections := model.DecodeVariants(stored)
	selections[componentID] = opt.Index

	if err := o.ledger.SetVariantSelections(ctx, player.SteamID, def.Team,
		model.EncodeVariants(selections)); err != nil {
		return nil, apierror.PersistenceFailure("variant write", err)
	}

	return &VariantApplication{
		ComponentID:   componentID,
		BodyGroupName: comp.BodyGroupName,
		Index:         opt.Index,
	}, nil
}

// Unequip deletes the slot row, clears the cache slot and re-resolves the
// priority rule so the caller knows what to render next.
func (o *Orchestrator) Unequip(ctx context.Context, player *model.PlayerContext, slot model.TeamSlot) (*UnequipResult, error) {
	if err := o.ledger.DeleteEquipped(ctx, player.SteamID, slot); err != nil {
		return nil, apierror.PersistenceFailure("unequip", err)
	}

	o.cache.UpdateSlot(player.SteamID, slot, nil)

	result := &UnequipResult{TeamSlot: slot}

	team, onTeam := model.ParsePlayableTeam(player.Team)
	if !onTeam {
		return result, nil
	}

	resolved := o.resolve(ctx, player.SteamID, team)
	result.NextModelPath = resolved.ModelPath
	result.NextArmsPath = resolved.ArmsPath
	result.FromDefault = resolved.FromDefault
	result.Apply = o.cfg.ImmediateApply && player.Alive
	return result, nil
}

// Resolve answers the spawn-time question: which model path applies for
// this player on this team. Ledger failures degrade to the configured
// default; availability wins over consistency on this path.
func (o *Orchestrator) Resolve(ctx context.Context, steamID uint64, team model.TeamSlot) *ResolveResult {
	return o.resolve(ctx, steamID, team)
}

func (o *Orchestrator) resolve(ctx context.Context, steamID uint64, team model.TeamSlot) *ResolveResult {
	if _, loaded := o.cache.Get(steamID); !loaded {
		if err := o.cache.Load(ctx, steamID); err != nil {
			log.Printf("[Orchestrator] cache load for %d failed, falling back to default: %v", steamID, err)
			return o.defaultResult(team)
		}
	}

	if ref, ok := o.cache.Resolve(steamID, team); ok {
		return &ResolveResult{
			ModelPath: ref.ModelPath,
			ArmsPath:  ref.ArmsPath,
			ModelID:   ref.ModelID,
		}
	}
	return o.defaultResult(team)
}

func (o *Orchestrator) defaultResult(team model.TeamSlot) *ResolveResult {
	path := o.cfg.DefaultTModelPath
	if team == model.TeamCT {
		path = o.cfg.DefaultCTModelPath
	}
	return &ResolveResult{ModelPath: path, FromDefault: true}
}

// BatchLoad populates the cache for every given player in one ledger
// round trip and returns the resolved path per player. Used on
// round-start so per-player apply never issues N queries.
func (o *Orchestrator) BatchLoad(ctx context.Context, players map[uint64]model.TeamSlot) (map[uint64]*ResolveResult, error) {
	steamIDs := make([]uint64, 0, len(players))
	for steamID := range players {
		steamIDs = append(steamIDs, steamID)
	}

	if err := o.cache.BatchLoad(ctx, steamIDs); err != nil {
		// Hot path: degrade every player to the team default.
		log.Printf("[Orchestrator] batch load failed, serving defaults: %v", err)
		results := make(map[uint64]*ResolveResult, len(players))
		for steamID, team := range players {
			results[steamID] = o.defaultResult(team)
		}
		return results, nil
	}

	results := make(map[uint64]*ResolveResult, len(players))
	for steamID, team := range players {
		if ref, ok := o.cache.Resolve(steamID, team); ok {
			results[steamID] = &ResolveResult{
				ModelPath: ref.ModelPath,
				ArmsPath:  ref.ArmsPath,
				ModelID:   ref.ModelID,
			}
		} else {
			results[steamID] = o.defaultResult(team)
		}
	}
	return results, nil
}

// Gift grants a model without payment (admin/operator flow).
func (o *Orchestrator) Gift(ctx context.Context, steamID uint64, modelID string, operatorID uint64, notes string) error {
	def := o.catalog.ByID(modelID)
	if def == nil {
		return apierror.ModelNotFound(modelID)
	}

	rec := &model.OwnershipRecord{
		SteamID:  steamID,
		ModelID:  modelID,
		Source:   model.SourceGifted,
		GiftedBy: operatorID,
		Notes:    notes,
	}
	if err := o.ledger.GrantOwnership(ctx, rec); err != nil {
		return apierror.PersistenceFailure("gift grant", err)
	}

	o.logTransaction(ctx, &model.TransactionLogEntry{
		SteamID:    steamID,
		ModelID:    modelID,
		Action:     model.ActionAdminGive,
		OperatorID: operatorID,
		Reason:     notes,
	})
	return nil
}

// AdjustCredits applies an admin wallet adjustment (give/take/set).
func (o *Orchestrator) AdjustCredits(ctx context.Context, steamID uint64, op string, amount int64, operatorID uint64, reason string) (int64, error) {
	if o.wallet == nil {
		return 0, apierror.EconomyUnavailable()
	}
	if amount < 0 {
		return 0, apierror.BadRequest("amount must not be negative")
	}
	if o.cfg.MaxAdjustAmount > 0 && amount > o.cfg.MaxAdjustAmount {
		return 0, apierror.BadRequest(fmt.Sprintf("amount exceeds the single-operation limit of %d", o.cfg.MaxAdjustAmount))
	}

	before, err := o.wallet.GetBalance(ctx, steamID, o.cfg.WalletKind)
	if err != nil {
		return 0, apierror.EconomyUnavailable()
	}

	var after int64
	var action model.TransactionAction

	switch op {
	case "give":
		action = model.ActionAdminGive
		after, err = o.wallet.Credit(ctx, steamID, o.cfg.WalletKind, amount)
	case "take":
		action = model.ActionAdminTake
		after, err = o.wallet.Debit(ctx, steamID, o.cfg.WalletKind, amount)
		if err == wallet.ErrInsufficientFunds {
			return 0, apierror.InsufficientFunds(amount, before, o.cfg.WalletKind)
		}
	case "set":
		action = model.ActionAdminSet
		switch {
		case amount > before:
			after, err = o.wallet.Credit(ctx, steamID, o.cfg.WalletKind, amount-before)
		case amount < before:
			after, err = o.wallet.Debit(ctx, steamID, o.cfg.WalletKind, before-amount)
		default:
			after = before
		}
	default:
		return 0, apierror.BadRequest(fmt.Sprintf("unknown credit operation %q", op))
	}
	if err != nil {
		return 0, apierror.EconomyUnavailable()
	}

	o.logTransaction(ctx, &model.TransactionLogEntry{
		SteamID:       steamID,
		Action:        action,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		OperatorID:    operatorID,
		Reason:        reason,
	})
	return after, nil
}

// WipePlayer deletes every ledger row for the player and drops the cache
// entry.
func (o *Orchestrator) WipePlayer(ctx context.Context, steamID uint64) error {
	if err := o.ledger.DeletePlayerData(ctx, steamID); err != nil {
		return apierror.PersistenceFailure("player wipe", err)
	}
	o.cache.Clear(steamID)
	return nil
}

// Stats merges ledger and cache counters for the admin endpoint.
func (o *Orchestrator) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats, err := o.ledger.Stats(ctx)
	if err != nil {
		return nil, apierror.PersistenceFailure("stats", err)
	}
	stats["cached_players"] = o.cache.Len()
	stats["catalog_models"] = len(o.catalog.All())
	stats["economy_connected"] = o.wallet != nil
	return stats, nil
}

// ClearCache drops the player's cache entry (disconnect handling).
func (o *Orchestrator) ClearCache(steamID uint64) {
	o.cache.Clear(steamID)
}

func (o *Orchestrator) shouldApplyNow(player *model.PlayerContext, def *model.Definition) bool {
	if !o.cfg.ImmediateApply || !player.Alive {
		return false
	}
	team, ok := model.ParsePlayableTeam(player.Team)
	if !ok {
		return false
	}
	return def.Team.Matches(team)
}

// logTransaction appends to the transaction log and the optional audit
// mirror. Failures here are logged and swallowed; they must never roll
// back or block the operation that produced the entry.
func (o *Orchestrator) logTransaction(ctx context.Context, entry *model.TransactionLogEntry) {
	entry.ID = uid.New()
	entry.CreatedAt = time.Now().UTC()

	if err := o.ledger.LogTransaction(ctx, entry); err != nil {
		log.Printf("[Orchestrator] transaction log write failed (ignored): %v", err)
	}
	if o.audit != nil {
		if err := o.audit.Insert(ctx, entry); err != nil {
			log.Printf("[Orchestrator] audit mirror write failed (ignored): %v", err)
		}
	}
}

// keyedMutex serializes work per string key. Lock entries are reference
// counted and removed when the last holder releases.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*lockEntry)
	}
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
