package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"playermodels-api/internal/catalog"
	"playermodels-api/internal/model"
	"playermodels-api/pkg/apierror"
	"playermodels-api/pkg/response"
)

// ModelsHandler serves the catalog endpoints.
type ModelsHandler struct {
	catalog *catalog.Catalog
}

func NewModelsHandler(cat *catalog.Catalog) *ModelsHandler {
	return &ModelsHandler{catalog: cat}
}

// List returns the enabled catalog. With steam_id set the list is
// filtered to what that player may use; team narrows it to one slot.
//
//	GET /api/v1/models?steam_id=...&team=CT&vip=true&permissions=a,b
func (h *ModelsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var teamFilter *model.TeamSlot
	if raw := q.Get("team"); raw != "" {
		team, ok := model.ParseTeamSlot(raw)
		if !ok {
			response.Error(w, apierror.BadRequest("invalid team value"))
			return
		}
		teamFilter = &team
	}

	if q.Get("steam_id") == "" {
		response.OK(w, h.catalog.All())
		return
	}

	steamID, err := strconv.ParseUint(q.Get("steam_id"), 10, 64)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid steam_id"))
		return
	}

	player := &model.PlayerContext{
		SteamID: steamID,
		Vip:     q.Get("vip") == "true",
	}
	if perms := q.Get("permissions"); perms != "" {
		player.Permissions = strings.Split(perms, ",")
	}

	response.OK(w, h.catalog.AvailableFor(player, teamFilter))
}

// Get returns a single catalog entry.
//
//	GET /api/v1/models/{modelID}
func (h *ModelsHandler) Get(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")

	def := h.catalog.ByID(modelID)
	if def == nil {
		response.Error(w, apierror.ModelNotFound(modelID))
		return
	}
	response.OK(w, def)
}
