package catalog

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"sync/atomic"

	"playermodels-api/internal/model"
)

// Catalog holds the active set of model definitions as an immutable
// snapshot. Reload builds a complete replacement snapshot and swaps it in;
// readers never observe a half-loaded catalog, and a failed reload keeps
// the previous snapshot active.
type Catalog struct {
	path     string
	snapshot atomic.Pointer[snapshot]
}

type snapshot struct {
	// ordered holds enabled definitions sorted by priority ascending.
	ordered []model.Definition
	byID    map[string]*model.Definition
}

type catalogFile struct {
	Models []model.Definition `json:"models"`
}

// New creates a catalog bound to a JSON config file and performs the
// initial load.
func New(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the config file and atomically replaces the active
// snapshot. On any error the previous snapshot stays active.
func (c *Catalog) Reload() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("failed to read catalog file %s: %w", c.path, err)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse catalog file %s: %w", c.path, err)
	}

	snap, err := buildSnapshot(file.Models)
	if err != nil {
		return err
	}

	c.snapshot.Store(snap)
	log.Printf("[Catalog] Loaded %d enabled models from %s", len(snap.ordered), c.path)
	return nil
}

func buildSnapshot(defs []model.Definition) (*snapshot, error) {
	seen := make(map[string]struct{}, len(defs))
	for i := range defs {
		d := &defs[i]
		if d.ModelID == "" {
			return nil, fmt.Errorf("catalog entry %d has no model_id", i)
		}
		if _, dup := seen[d.ModelID]; dup {
			return nil, fmt.Errorf("duplicate model_id %q in catalog", d.ModelID)
		}
		seen[d.ModelID] = struct{}{}
		if d.ModelPath == "" {
			return nil, fmt.Errorf("model %q has no model_path", d.ModelID)
		}
		if _, ok := model.ParseTeamSlot(string(d.Team)); !ok {
			return nil, fmt.Errorf("model %q has invalid team %q", d.ModelID, d.Team)
		}
		if d.Price < 0 {
			return nil, fmt.Errorf("model %q has negative price", d.ModelID)
		}
		// normalize the team spelling once, at the boundary
		slot, _ := model.ParseTeamSlot(string(d.Team))
		d.Team = slot
	}

	ordered := make([]model.Definition, 0, len(defs))
	for _, d := range defs {
		if d.Enabled {
			ordered = append(ordered, d)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	byID := make(map[string]*model.Definition, len(ordered))
	for i := range ordered {
		byID[ordered[i].ModelID] = &ordered[i]
	}

	return &snapshot{ordered: ordered, byID: byID}, nil
}

// All returns the enabled definitions sorted by priority ascending.
func (c *Catalog) All() []model.Definition {
	return c.snapshot.Load().ordered
}

// ByID returns the enabled definition with the given id, or nil.
func (c *Catalog) ByID(modelID string) *model.Definition {
	return c.snapshot.Load().byID[modelID]
}

// AvailableFor filters the catalog for one player: team restriction (a
// model's TeamAll matches any filter), Steam allow-list, required
// permission and VIP gate. Pure function of its inputs.
func (c *Catalog) AvailableFor(player *model.PlayerContext, teamFilter *model.TeamSlot) []model.Definition {
	all := c.All()
	result := make([]model.Definition, 0, len(all))

	for _, def := range all {
		if teamFilter != nil && !def.Team.Matches(*teamFilter) {
			continue
		}
		if !c.playerPasses(player, &def) {
			continue
		}
		result = append(result, def)
	}

	return result
}

// CanUse reports whether the player passes the availability filter for one
// model, ignoring team restriction (equipping off-team is allowed and
// deferred, per the equip state machine).
func (c *Catalog) CanUse(player *model.PlayerContext, def *model.Definition) bool {
	return c.playerPasses(player, def)
}

func (c *Catalog) playerPasses(player *model.PlayerContext, def *model.Definition) bool {
	if len(def.AllowedSteamIDs) > 0 {
		allowed := false
		for _, id := range def.AllowedSteamIDs {
			if id == player.SteamID {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	if def.RequiredPermission != "" && !player.HasPermission(def.RequiredPermission) {
		return false
	}

	if def.VipOnly && !player.Vip {
		return false
	}

	return true
}
