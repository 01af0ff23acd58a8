package handler

import (
	"net/http"
	"strconv"

	"playermodels-api/internal/catalog"
	"playermodels-api/internal/repository"
	"playermodels-api/internal/service"
	"playermodels-api/pkg/apierror"
	"playermodels-api/pkg/response"
)

// AdminHandler serves the operator endpoints: credit adjustments, model
// gifting, player wipes, stats, the transaction log and catalog reload.
type AdminHandler struct {
	orchestrator *service.Orchestrator
	catalog      *catalog.Catalog
	audit        repository.AuditLog
}

func NewAdminHandler(o *service.Orchestrator, cat *catalog.Catalog, audit repository.AuditLog) *AdminHandler {
	return &AdminHandler{orchestrator: o, catalog: cat, audit: audit}
}

// AdjustCredits applies a give/take/set wallet adjustment.
//
//	POST /api/v1/admin/players/{steamID}/credits
func (h *AdminHandler) AdjustCredits(w http.ResponseWriter, r *http.Request) {
	steamID, err := parseSteamID(r)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid steam ID"))
		return
	}

	var req struct {
		Operation  string `json:"operation"`
		Amount     int64  `json:"amount"`
		OperatorID uint64 `json:"operator_id"`
		Reason     string `json:"reason"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	balance, err := h.orchestrator.AdjustCredits(r.Context(), steamID,
		req.Operation, req.Amount, req.OperatorID, req.Reason)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, map[string]int64{"balance": balance})
}

// Grant gifts a model to the player without payment.
//
//	POST /api/v1/admin/players/{steamID}/grant
func (h *AdminHandler) Grant(w http.ResponseWriter, r *http.Request) {
	steamID, err := parseSteamID(r)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid steam ID"))
		return
	}

	var req struct {
		ModelID    string `json:"model_id"`
		OperatorID uint64 `json:"operator_id"`
		Notes      string `json:"notes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ModelID == "" {
		response.Error(w, apierror.BadRequest("model_id is required"))
		return
	}

	if err := h.orchestrator.Gift(r.Context(), steamID, req.ModelID, req.OperatorID, req.Notes); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, map[string]string{"model_id": req.ModelID, "status": "granted"})
}

// Wipe deletes every persisted row for a player.
//
//	DELETE /api/v1/admin/players/{steamID}
func (h *AdminHandler) Wipe(w http.ResponseWriter, r *http.Request) {
	steamID, err := parseSteamID(r)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid steam ID"))
		return
	}

	if err := h.orchestrator.WipePlayer(r.Context(), steamID); err != nil {
		response.Error(w, err)
		return
	}
	response.NoContent(w)
}

// Stats returns ledger, cache and catalog counters.
//
//	GET /api/v1/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orchestrator.Stats(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, stats)
}

// Transactions pages through the audit mirror, newest first.
//
//	GET /api/v1/admin/transactions?limit=50&offset=0
func (h *AdminHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		response.Error(w, apierror.BadRequest("no audit sink is configured"))
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}

	entries, total, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		response.Error(w, apierror.PersistenceFailure("transaction list", err))
		return
	}
	response.OK(w, map[string]interface{}{
		"entries": entries,
		"total":   total,
	})
}

// ReloadCatalog re-reads the catalog file. On failure the previous
// snapshot stays active.
//
//	POST /api/v1/admin/catalog/reload
func (h *AdminHandler) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Reload(); err != nil {
		response.Error(w, apierror.CatalogLoadFailure(err))
		return
	}
	response.OK(w, map[string]interface{}{
		"status": "reloaded",
		"models": len(h.catalog.All()),
	})
}
