package api

import (
	"net/http"

	"github.com/gorilla/mux"

	respond "github.com/prodtrack/jornada/internal/api/respond"
	"github.com/prodtrack/jornada/internal/services"
)

// AdminHandler exposes the repair operations. These endpoints are expected to
// sit behind operator tooling, not the factory-floor UI.
type AdminHandler struct {
	rec *services.ReconcileService
}

func NewAdminHandler(rec *services.ReconcileService) *AdminHandler {
	return &AdminHandler{rec: rec}
}

// ReconcileAll POST /api/admin/reconcile
func (h *AdminHandler) ReconcileAll(w http.ResponseWriter, r *http.Request) {
	rep, err := h.rec.ReconcileAll(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rep)
}

// ConsolidateOperator POST /api/admin/operators/{operatorId}/consolidate
func (h *AdminHandler) ConsolidateOperator(w http.ResponseWriter, r *http.Request) {
	rep, err := h.rec.ConsolidateDuplicates(r.Context(), mux.Vars(r)["operatorId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rep)
}
