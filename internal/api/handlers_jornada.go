package api

import (
	"net/http"

	"github.com/gorilla/mux"

	respond "github.com/prodtrack/jornada/internal/api/respond"
	"github.com/prodtrack/jornada/internal/calday"
	"github.com/prodtrack/jornada/internal/services"
)

// JornadaHandler exposes read access to jornadas and their aggregates.
type JornadaHandler struct {
	svc *services.JornadaService
}

func NewJornadaHandler(svc *services.JornadaService) *JornadaHandler {
	return &JornadaHandler{svc: svc}
}

// ListJornadas GET /api/operators/{operatorId}/jornadas?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *JornadaHandler) ListJornadas(w http.ResponseWriter, r *http.Request) {
	operatorID := mux.Vars(r)["operatorId"]

	var from, to calday.Day
	if v := r.URL.Query().Get("from"); v != "" {
		d, err := calday.Parse(v)
		if err != nil {
			respond.WriteBadRequest(w, "invalid 'from' day: "+v)
			return
		}
		from = d
	}
	if v := r.URL.Query().Get("to"); v != "" {
		d, err := calday.Parse(v)
		if err != nil {
			respond.WriteBadRequest(w, "invalid 'to' day: "+v)
			return
		}
		to = d
	}

	js, err := h.svc.ListJornadas(r.Context(), operatorID, from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"jornadas": js, "count": len(js)})
}

// GetJornada GET /api/operators/{operatorId}/jornadas/{day}
func (h *JornadaHandler) GetJornada(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	day, err := calday.Parse(vars["day"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	j, err := h.svc.GetJornada(r.Context(), vars["operatorId"], day)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, j)
}
