package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"playermodels-api/internal/model"
	"playermodels-api/internal/repository"
	"playermodels-api/internal/service"
	"playermodels-api/pkg/apierror"
	"playermodels-api/pkg/response"
)

// PlayerHandler serves everything the game server calls on behalf of a
// connected player.
type PlayerHandler struct {
	orchestrator *service.Orchestrator
	credits      *service.CreditsService
	ledger       repository.Ledger
}

func NewPlayerHandler(o *service.Orchestrator, c *service.CreditsService, l repository.Ledger) *PlayerHandler {
	return &PlayerHandler{orchestrator: o, credits: c, ledger: l}
}

// playerBody is the caller-supplied player context embedded in mutating
// requests. The steam ID always comes from the URL.
type playerBody struct {
	Name        string   `json:"name"`
	Team        string   `json:"team"`
	Permissions []string `json:"permissions"`
	Vip         bool     `json:"vip"`
	Alive       bool     `json:"alive"`
}

func (b playerBody) toContext(steamID uint64) *model.PlayerContext {
	return &model.PlayerContext{
		SteamID:     steamID,
		Name:        b.Name,
		Team:        b.Team,
		Permissions: b.Permissions,
		Vip:         b.Vip,
		Alive:       b.Alive,
	}
}

func parseSteamID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "steamID"), 10, 64)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return false
	}
	return true
}

// Purchase buys a model for the player.
//
//	POST /api/v1/players/{steamID}/purchase
func (h *PlayerHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	steamID, err := parseSteamID(r)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid steam ID"))
		return
	}

	var req struct {
		ModelID string     `json:"model_id"`
		Player  playerBody `json:"player"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ModelID == "" {
		response.Error(w, apierror.BadRequest("model_id is required"))
		return
	}

	result, err := h.orchestrator.Purchase(r.Context(), req.Player.toContext(steamID), req.ModelID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, result)
}

// Equip durably selects a model for the player's team slot.
//
//	POST /api/v1/players/{steamID}/equip
func (h *PlayerHandler) Equip(w http.ResponseWriter, r *http.Request) {
	steamID, err := parseSteamID(r)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid steam ID"))
		return
	}

	var req struct {
		ModelID string     `json:"model_id"`
		Player  playerBody `json:"player"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ModelID == "" {
		response.Error(w, apierror.BadRequest("model_id is required"))
		return
	}

	result, err := h.orchestrator.Equip(r.Context(), req.Player.toContext(steamID), req.ModelID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, result)
}

// Unequip clears one team slot and reports what to render next.
//
//	POST /api/v1/players/{steamID}/unequip
func (h *PlayerHandler) Unequip(w http.ResponseWriter, r *http.Request) {
	steamID, err := parseSteamID(r)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid steam ID"))
		return
	}

	var req struct {
		TeamSlot string     `json:"team_slot"`
		Player   playerBody `json:"player"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	slot, ok := model.ParseTeamSlot(req.TeamSlot)
	if !ok {
		response.Error(w, apierror.BadRequest("invalid team_slot"))
		return
	}

	result, err := h.orchestrator.Unequip(r.Context(), req.Player.toContext(steamID), slot)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, result)
}

// SelectVariant persists one body-group choice.
//
//	POST /api/v1/players/{steamID}/variants
func (h *PlayerHandler) SelectVariant(w http.ResponseWriter, r *http.Request) {
	steamID, err := parseSteamID(r)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid steam ID"))
		return
	}

	var req struct {
		ModelID     string     `json:"model_id"`
		ComponentID string     `json:"component_id"`
		OptionID    string     `json:"option_id"`
		Player      playerBody `json:"player"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ModelID == "" || req.ComponentID == "" || req.OptionID == "" {
		response.Error(w, apierror.BadRequest("model_id, component_id and option_id are required"))
		return
	}

	result, err := h.orchestrator.SelectVariant(r.Context(), req.Player.toContext(steamID),
		req.ModelID, req.ComponentID, req.OptionID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, result)
}

// Resolve returns the model the player should render as on the given
// team. Never errors on persistence problems; degrades to the default.
//
//	GET /api/v1/players/{steamID}/resolve?team=CT
func (h *PlayerHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	steamID, err := parseSteamID(r)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid steam ID"))
		return
	}

	team, ok := model.ParsePlayableTeam(r.URL.Query().Get("team"))
	if !ok {
		response.Error(w, apierror.BadRequest("team must be CT or T"))
		return
	}

	response.OK(w, h.orchestrator.Resolve(r.Context(), steamID, team))
}

// Owned lists the model IDs the player owns.
//
//	GET /api/v1/players/{steamID}/owned
func (h *PlayerHandler) Owned(w http.ResponseWriter, r *http.Request) {
	steamID, err := parseSteamID(r)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid steam ID"))
		return
	}

	ids, err := h.ledger.OwnedModelIDs(r.Context(), steamID)
	if err != nil {
		response.Error(w, apierror.PersistenceFailure("ownership list", err))
		return
	}
	response.OK(w, map[string]interface{}{"model_ids": ids})
}

// Balance reads the player's wallet balance.
//
//	GET /api/v1/players/{steamID}/balance
func (h *PlayerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	steamID, err := parseSteamID(r)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid steam ID"))
		return
	}

	balance, err := h.credits.Balance(r.Context(), steamID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, map[string]int64{"balance": balance})
}

// BatchLoad warms the cache for a set of players in one query and
// returns the resolved model per player.
//
//	POST /api/v1/players/batch-load
func (h *PlayerHandler) BatchLoad(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Players []struct {
			SteamID uint64 `json:"steam_id"`
			Team    string `json:"team"`
		} `json:"players"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Players) == 0 {
		response.Error(w, apierror.BadRequest("players list is empty"))
		return
	}

	players := make(map[uint64]model.TeamSlot, len(req.Players))
	for _, p := range req.Players {
		team, ok := model.ParsePlayableTeam(p.Team)
		if !ok {
			response.Error(w, apierror.BadRequest("team must be CT or T"))
			return
		}
		players[p.SteamID] = team
	}

	results, err := h.orchestrator.BatchLoad(r.Context(), players)
	if err != nil {
		response.Error(w, err)
		return
	}

	// JSON object keys must be strings.
	out := make(map[string]*service.ResolveResult, len(results))
	for steamID, res := range results {
		out[strconv.FormatUint(steamID, 10)] = res
	}
	response.OK(w, out)
}

// Join registers the player for timed income and grants the starting
// balance on first join.
//
//	POST /api/v1/players/{steamID}/join
func (h *PlayerHandler) Join(w http.ResponseWriter, r *http.Request) {
	steamID, err := parseSteamID(r)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid steam ID"))
		return
	}

	var req struct {
		Player playerBody `json:"player"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	balance, err := h.credits.HandleJoin(r.Context(), req.Player.toContext(steamID))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, map[string]int64{"balance": balance})
}

// Leave drops the player's cache entry and income registration.
//
//	POST /api/v1/players/{steamID}/leave
func (h *PlayerHandler) Leave(w http.ResponseWriter, r *http.Request) {
	steamID, err := parseSteamID(r)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid steam ID"))
		return
	}

	h.credits.HandleLeave(steamID)
	h.orchestrator.ClearCache(steamID)
	response.NoContent(w)
}
