package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"playermodels-api/internal/model"
)

const testCatalogJSON = `{
	"models": [
		{
			"model_id": "skeleton",
			"display_name": "Skeleton",
			"model_path": "models/skeleton.vmdl",
			"team": "All",
			"price": 500,
			"enabled": true,
			"priority": 2
		},
		{
			"model_id": "ct_swat",
			"display_name": "SWAT",
			"model_path": "models/swat.vmdl",
			"team": "CT",
			"price": 0,
			"enabled": true,
			"priority": 1
		},
		{
			"model_id": "t_phoenix",
			"display_name": "Phoenix",
			"model_path": "models/phoenix.vmdl",
			"team": "T",
			"price": 250,
			"enabled": true,
			"priority": 3,
			"vip_only": true
		},
		{
			"model_id": "retired",
			"display_name": "Retired",
			"model_path": "models/retired.vmdl",
			"team": "All",
			"price": 0,
			"enabled": false
		},
		{
			"model_id": "staff_only",
			"display_name": "Staff",
			"model_path": "models/staff.vmdl",
			"team": "All",
			"price": 0,
			"enabled": true,
			"priority": 4,
			"required_permission": "models.staff"
		}
	]
}`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "models.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := New(writeCatalog(t, testCatalogJSON))
	if err != nil {
		t.Fatal(err)
	}
	return cat
}

func TestLoadFiltersDisabledAndSortsByPriority(t *testing.T) {
	cat := newTestCatalog(t)

	all := cat.All()
	if len(all) != 4 {
		t.Fatalf("got %d enabled models, want 4", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Priority > all[i].Priority {
			t.Fatalf("models not sorted by priority: %v before %v", all[i-1].ModelID, all[i].ModelID)
		}
	}
	if cat.ByID("retired") != nil {
		t.Fatal("disabled model must not be resolvable")
	}
}

func TestByID(t *testing.T) {
	cat := newTestCatalog(t)

	def := cat.ByID("skeleton")
	if def == nil {
		t.Fatal("skeleton not found")
	}
	if def.Price != 500 || def.Team != model.TeamAll {
		t.Fatalf("unexpected definition: %+v", def)
	}
	if cat.ByID("missing") != nil {
		t.Fatal("unknown id must resolve to nil")
	}
}

func TestAvailableForTeamFilter(t *testing.T) {
	cat := newTestCatalog(t)
	player := &model.PlayerContext{SteamID: 1, Vip: true, Permissions: []string{"models.staff"}}

	ct := model.TeamCT
	available := cat.AvailableFor(player, &ct)

	for _, def := range available {
		if def.Team != model.TeamAll && def.Team != model.TeamCT {
			t.Errorf("model %s with team %s leaked into CT filter", def.ModelID, def.Team)
		}
	}
	if len(available) != 3 {
		t.Fatalf("got %d CT models, want 3 (swat, skeleton, staff)", len(available))
	}
}

func TestAvailableForGates(t *testing.T) {
	cat := newTestCatalog(t)

	plain := &model.PlayerContext{SteamID: 1}
	for _, def := range cat.AvailableFor(plain, nil) {
		if def.ModelID == "t_phoenix" {
			t.Error("vip-only model visible to non-vip player")
		}
		if def.ModelID == "staff_only" {
			t.Error("permission-gated model visible without permission")
		}
	}

	vip := &model.PlayerContext{SteamID: 1, Vip: true}
	found := false
	for _, def := range cat.AvailableFor(vip, nil) {
		if def.ModelID == "t_phoenix" {
			found = true
		}
	}
	if !found {
		t.Error("vip-only model hidden from vip player")
	}
}

func TestCanUseIgnoresTeamRestriction(t *testing.T) {
	cat := newTestCatalog(t)
	player := &model.PlayerContext{SteamID: 1, Team: "CT"}

	// t_phoenix is a T model; a CT may still interact with it (deferred
	// equip), only the vip gate applies.
	def := cat.ByID("t_phoenix")
	if cat.CanUse(player, def) {
		t.Fatal("non-vip must not pass the vip gate")
	}
	player.Vip = true
	if !cat.CanUse(player, def) {
		t.Fatal("team restriction must not block CanUse")
	}
}

func TestAllowedSteamIDs(t *testing.T) {
	path := writeCatalog(t, `{"models":[{
		"model_id": "private",
		"model_path": "models/private.vmdl",
		"team": "All",
		"enabled": true,
		"allowed_steam_ids": [42]
	}]}`)
	cat, err := New(path)
	if err != nil {
		t.Fatal(err)
	}

	if cat.CanUse(&model.PlayerContext{SteamID: 7}, cat.ByID("private")) {
		t.Fatal("player outside the allow-list passed")
	}
	if !cat.CanUse(&model.PlayerContext{SteamID: 42}, cat.ByID("private")) {
		t.Fatal("allow-listed player rejected")
	}
}

func TestReloadFailureKeepsSnapshot(t *testing.T) {
	path := writeCatalog(t, testCatalogJSON)
	cat, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	before := len(cat.All())

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := cat.Reload(); err == nil {
		t.Fatal("reload of corrupt file must fail")
	}

	if len(cat.All()) != before {
		t.Fatal("failed reload must keep the previous snapshot")
	}
	if cat.ByID("skeleton") == nil {
		t.Fatal("previous snapshot lost after failed reload")
	}
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	path := writeCatalog(t, `{"models":[
		{"model_id": "dup", "model_path": "a.vmdl", "team": "All", "enabled": true},
		{"model_id": "dup", "model_path": "b.vmdl", "team": "All", "enabled": true}
	]}`)
	if _, err := New(path); err == nil {
		t.Fatal("duplicate model_id must be rejected")
	}
}

func TestLoadNormalizesTeamSpelling(t *testing.T) {
	path := writeCatalog(t, `{"models":[
		{"model_id": "legacy", "model_path": "a.vmdl", "team": "Both", "enabled": true}
	]}`)
	cat, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := cat.ByID("legacy").Team; got != model.TeamAll {
		t.Fatalf("team = %q, want %q", got, model.TeamAll)
	}
}
