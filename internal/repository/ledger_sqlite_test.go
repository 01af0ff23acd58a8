package repository

import (
	"context"
	"path/filepath"
	"testing"

	"playermodels-api/internal/model"
)

func newTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	ledger, err := NewSQLiteLedger(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func TestGrantOwnershipIdempotent(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	rec := &model.OwnershipRecord{SteamID: 1, ModelID: "skeleton", PricePaid: 500, Source: model.SourcePurchased}
	if err := ledger.GrantOwnership(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := ledger.GrantOwnership(ctx, rec); err != nil {
		t.Fatalf("re-grant must be a no-op, got %v", err)
	}

	owns, err := ledger.Owns(ctx, 1, "skeleton")
	if err != nil || !owns {
		t.Fatalf("owns = %v, err = %v", owns, err)
	}

	ids, err := ledger.OwnedModelIDs(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Fatalf("owned ids = %v, want exactly one row", ids)
	}
}

func TestOwnsUnknown(t *testing.T) {
	ledger := newTestLedger(t)

	owns, err := ledger.Owns(context.Background(), 1, "ghost")
	if err != nil {
		t.Fatal(err)
	}
	if owns {
		t.Fatal("unknown model reported as owned")
	}
}

func TestOwnedModelIDsBatch(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	for _, grant := range []struct {
		steamID uint64
		modelID string
	}{
		{1, "skeleton"}, {1, "ranger"}, {2, "skeleton"},
	} {
		if err := ledger.GrantOwnership(ctx, &model.OwnershipRecord{
			SteamID: grant.steamID, ModelID: grant.modelID, Source: model.SourceFree,
		}); err != nil {
			t.Fatal(err)
		}
	}

	batch, err := ledger.OwnedModelIDsBatch(ctx, []uint64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(batch[1]) != 2 || len(batch[2]) != 1 {
		t.Fatalf("batch = %v", batch)
	}
	if _, ok := batch[3]; ok {
		t.Fatal("player without rows must be absent from the batch result")
	}
}

func TestEquippedAbsentIsNilNil(t *testing.T) {
	ledger := newTestLedger(t)

	eq, err := ledger.Equipped(context.Background(), 1, model.TeamCT)
	if err != nil {
		t.Fatal(err)
	}
	if eq != nil {
		t.Fatalf("absent slot = %+v, want nil", eq)
	}
}

func TestSetEquippedUpsertAndUsageCount(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	slot := &model.EquippedSlot{
		SteamID: 1, TeamSlot: model.TeamCT, ModelID: "swat",
		ModelPath: "models/swat.vmdl", PlayerName: "tester",
	}
	if err := ledger.SetEquipped(ctx, slot); err != nil {
		t.Fatal(err)
	}
	if err := ledger.SetEquipped(ctx, slot); err != nil {
		t.Fatal(err)
	}

	eq, err := ledger.Equipped(ctx, 1, model.TeamCT)
	if err != nil {
		t.Fatal(err)
	}
	if eq == nil || eq.ModelID != "swat" {
		t.Fatalf("equipped = %+v", eq)
	}
	if eq.UsageCount != 2 {
		t.Fatalf("usage count = %d, want 2", eq.UsageCount)
	}
}

func TestSetEquippedResetsVariantsOnModelChange(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	equip := func(modelID string) {
		t.Helper()
		if err := ledger.SetEquipped(ctx, &model.EquippedSlot{
			SteamID: 1, TeamSlot: model.TeamAll, ModelID: modelID,
			ModelPath: "models/" + modelID + ".vmdl",
		}); err != nil {
			t.Fatal(err)
		}
	}

	equip("ranger")
	if err := ledger.SetVariantSelections(ctx, 1, model.TeamAll, "v1;head:1"); err != nil {
		t.Fatal(err)
	}

	// Same model re-equipped: selections survive.
	equip("ranger")
	data, err := ledger.VariantSelections(ctx, 1, model.TeamAll)
	if err != nil {
		t.Fatal(err)
	}
	if data != "v1;head:1" {
		t.Fatalf("variants = %q, want preserved", data)
	}

	// Different model: selections reset.
	equip("skeleton")
	data, err = ledger.VariantSelections(ctx, 1, model.TeamAll)
	if err != nil {
		t.Fatal(err)
	}
	if data != "" {
		t.Fatalf("variants = %q, want reset after model change", data)
	}
}

func TestEquippedBatch(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	rows := []*model.EquippedSlot{
		{SteamID: 1, TeamSlot: model.TeamAll, ModelID: "skeleton", ModelPath: "a.vmdl"},
		{SteamID: 1, TeamSlot: model.TeamCT, ModelID: "swat", ModelPath: "b.vmdl"},
		{SteamID: 2, TeamSlot: model.TeamT, ModelID: "phoenix", ModelPath: "c.vmdl"},
	}
	for _, row := range rows {
		if err := ledger.SetEquipped(ctx, row); err != nil {
			t.Fatal(err)
		}
	}

	batch, err := ledger.EquippedBatch(ctx, []uint64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(batch[1]) != 2 || len(batch[2]) != 1 {
		t.Fatalf("batch = %v", batch)
	}
	if _, ok := batch[3]; ok {
		t.Fatal("player without rows must be absent")
	}
}

func TestEquippedBatchEmptyInput(t *testing.T) {
	ledger := newTestLedger(t)

	batch, err := ledger.EquippedBatch(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 0 {
		t.Fatalf("batch = %v", batch)
	}
}

func TestDeleteEquipped(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	if err := ledger.SetEquipped(ctx, &model.EquippedSlot{
		SteamID: 1, TeamSlot: model.TeamCT, ModelID: "swat", ModelPath: "a.vmdl",
	}); err != nil {
		t.Fatal(err)
	}
	if err := ledger.DeleteEquipped(ctx, 1, model.TeamCT); err != nil {
		t.Fatal(err)
	}

	eq, err := ledger.Equipped(ctx, 1, model.TeamCT)
	if err != nil {
		t.Fatal(err)
	}
	if eq != nil {
		t.Fatal("slot survived delete")
	}

	// Deleting an absent slot is not an error.
	if err := ledger.DeleteEquipped(ctx, 1, model.TeamCT); err != nil {
		t.Fatal(err)
	}
}

func TestLogTransactionAndStats(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	if err := ledger.LogTransaction(ctx, &model.TransactionLogEntry{
		ID: "tx-1", SteamID: 1, ModelID: "skeleton",
		Action: model.ActionPurchase, Amount: 500,
		BalanceBefore: 800, BalanceAfter: 300,
	}); err != nil {
		t.Fatal(err)
	}

	stats, err := ledger.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats["transactions"] != int64(1) {
		t.Fatalf("stats = %v", stats)
	}
	if stats["backend"] != "sqlite" {
		t.Fatalf("backend = %v", stats["backend"])
	}
}

func TestStartingBalanceGrantMarker(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	granted, err := ledger.HasStartingBalanceGrant(ctx, 1)
	if err != nil || granted {
		t.Fatalf("granted = %v, err = %v", granted, err)
	}

	if err := ledger.MarkStartingBalanceGrant(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := ledger.MarkStartingBalanceGrant(ctx, 1); err != nil {
		t.Fatalf("re-mark must be a no-op, got %v", err)
	}

	granted, err = ledger.HasStartingBalanceGrant(ctx, 1)
	if err != nil || !granted {
		t.Fatalf("granted = %v, err = %v", granted, err)
	}
}

func TestDeletePlayerData(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	if err := ledger.GrantOwnership(ctx, &model.OwnershipRecord{
		SteamID: 1, ModelID: "skeleton", Source: model.SourceFree,
	}); err != nil {
		t.Fatal(err)
	}
	if err := ledger.SetEquipped(ctx, &model.EquippedSlot{
		SteamID: 1, TeamSlot: model.TeamAll, ModelID: "skeleton", ModelPath: "a.vmdl",
	}); err != nil {
		t.Fatal(err)
	}
	if err := ledger.MarkStartingBalanceGrant(ctx, 1); err != nil {
		t.Fatal(err)
	}

	if err := ledger.DeletePlayerData(ctx, 1); err != nil {
		t.Fatal(err)
	}

	if owns, _ := ledger.Owns(ctx, 1, "skeleton"); owns {
		t.Fatal("ownership survived the wipe")
	}
	if eq, _ := ledger.Equipped(ctx, 1, model.TeamAll); eq != nil {
		t.Fatal("equipped slot survived the wipe")
	}
	if granted, _ := ledger.HasStartingBalanceGrant(ctx, 1); granted {
		t.Fatal("grant marker survived the wipe")
	}
}
