package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	respond "github.com/prodtrack/jornada/internal/api/respond"
	"github.com/prodtrack/jornada/internal/services"
)

// ActivityHandler is a thin HTTP transport over JornadaService.
type ActivityHandler struct {
	svc *services.JornadaService
}

func NewActivityHandler(svc *services.JornadaService) *ActivityHandler {
	return &ActivityHandler{svc: svc}
}

// RegisterActivity POST /api/operators/{operatorId}/activities
func (h *ActivityHandler) RegisterActivity(w http.ResponseWriter, r *http.Request) {
	operatorID := mux.Vars(r)["operatorId"]
	var req struct {
		Day             string     `json:"day"`
		Start           *time.Time `json:"start"`
		End             *time.Time `json:"end"`
		DurationMinutes int        `json:"durationMinutes"`
		WorkOrder       string     `json:"workOrder"`
		Process         string     `json:"process"`
		Machine         string     `json:"machine"`
		Area            string     `json:"area"`
		Supplies        []string   `json:"supplies"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	a, err := h.svc.RegisterActivity(r.Context(), services.RegisterActivityInput{
		OperatorID:      operatorID,
		Day:             req.Day,
		Start:           req.Start,
		End:             req.End,
		DurationMinutes: req.DurationMinutes,
		WorkOrder:       req.WorkOrder,
		Process:         req.Process,
		Machine:         req.Machine,
		Area:            req.Area,
		Supplies:        req.Supplies,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, a)
}

// GetActivity GET /api/activities/{activityId}
func (h *ActivityHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.GetActivity(r.Context(), mux.Vars(r)["activityId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, a)
}

// UpdateActivity PATCH /api/activities/{activityId}
func (h *ActivityHandler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Day             *string    `json:"day"`
		Start           *time.Time `json:"start"`
		End             *time.Time `json:"end"`
		DurationMinutes *int       `json:"durationMinutes"`
		WorkOrder       *string    `json:"workOrder"`
		Process         *string    `json:"process"`
		Machine         *string    `json:"machine"`
		Area            *string    `json:"area"`
		Supplies        []string   `json:"supplies"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	a, err := h.svc.UpdateActivity(r.Context(), services.UpdateActivityInput{
		ActivityID:      mux.Vars(r)["activityId"],
		Day:             req.Day,
		Start:           req.Start,
		End:             req.End,
		DurationMinutes: req.DurationMinutes,
		WorkOrder:       req.WorkOrder,
		Process:         req.Process,
		Machine:         req.Machine,
		Area:            req.Area,
		Supplies:        req.Supplies,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, a)
}

// DeleteActivity DELETE /api/activities/{activityId}
func (h *ActivityHandler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteActivity(r.Context(), mux.Vars(r)["activityId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
