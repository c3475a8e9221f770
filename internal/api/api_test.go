package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodtrack/jornada/internal/api/recovery"
	"github.com/prodtrack/jornada/internal/model"
	"github.com/prodtrack/jornada/internal/services"
	"github.com/prodtrack/jornada/internal/store/memory"
)

func newTestRouter() *mux.Router {
	st := memory.New()
	js := services.NewJornadaService(st, zerolog.Nop())
	rec := services.NewReconcileService(st, js, 100, zerolog.Nop())

	r := mux.NewRouter()
	r.Use(recovery.Middleware)

	activity := NewActivityHandler(js)
	r.HandleFunc("/api/operators/{operatorId}/activities", activity.RegisterActivity).Methods("POST")
	r.HandleFunc("/api/activities/{activityId}", activity.GetActivity).Methods("GET")
	r.HandleFunc("/api/activities/{activityId}", activity.UpdateActivity).Methods("PATCH")
	r.HandleFunc("/api/activities/{activityId}", activity.DeleteActivity).Methods("DELETE")

	jornada := NewJornadaHandler(js)
	r.HandleFunc("/api/operators/{operatorId}/jornadas", jornada.ListJornadas).Methods("GET")
	r.HandleFunc("/api/operators/{operatorId}/jornadas/{day}", jornada.GetJornada).Methods("GET")

	admin := NewAdminHandler(rec)
	r.HandleFunc("/api/admin/reconcile", admin.ReconcileAll).Methods("POST")
	r.HandleFunc("/api/admin/operators/{operatorId}/consolidate", admin.ConsolidateOperator).Methods("POST")

	return r
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRegisterActivity_HTTPFlow(t *testing.T) {
	router := newTestRouter()

	rr := doJSON(t, router, "POST", "/api/operators/op-1/activities", map[string]interface{}{
		"day":             "2025-06-14T23:30:00Z",
		"start":           "2025-06-14T08:00:00Z",
		"end":             "2025-06-14T12:00:00Z",
		"durationMinutes": 240,
		"workOrder":       "wo-77",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var a model.Activity
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &a))
	assert.NotEmpty(t, a.ActivityID)
	assert.NotEmpty(t, a.JornadaID)

	// The jornada is reachable under the literal calendar day.
	rr = doJSON(t, router, "GET", "/api/operators/op-1/jornadas/2025-06-14", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var j model.Jornada
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &j))
	assert.Equal(t, a.JornadaID, j.JornadaID)
	assert.Equal(t, 240, j.EffectiveMinutes)
}

func TestRegisterActivity_BadDayIs400(t *testing.T) {
	router := newTestRouter()

	rr := doJSON(t, router, "POST", "/api/operators/op-1/activities", map[string]interface{}{
		"day": "2025-02-30",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, "POST", "/api/operators/op-1/activities", map[string]interface{}{
		"day": "June 14th",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetActivity_Missing404(t *testing.T) {
	router := newTestRouter()

	rr := doJSON(t, router, "GET", "/api/activities/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateActivity_DayChangeRefilesOverHTTP(t *testing.T) {
	router := newTestRouter()

	rr := doJSON(t, router, "POST", "/api/operators/op-1/activities", map[string]interface{}{
		"day":             "2025-06-14",
		"durationMinutes": 60,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var a model.Activity
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &a))

	rr = doJSON(t, router, "PATCH", fmt.Sprintf("/api/activities/%s", a.ActivityID), map[string]interface{}{
		"day": "2025-06-15",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doJSON(t, router, "GET", "/api/operators/op-1/jornadas/2025-06-14", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = doJSON(t, router, "GET", "/api/operators/op-1/jornadas/2025-06-15", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestDeleteActivity_204AndGone(t *testing.T) {
	router := newTestRouter()

	rr := doJSON(t, router, "POST", "/api/operators/op-1/activities", map[string]interface{}{
		"day":             "2025-06-14",
		"durationMinutes": 30,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var a model.Activity
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &a))

	rr = doJSON(t, router, "DELETE", "/api/activities/"+a.ActivityID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, router, "GET", "/api/activities/"+a.ActivityID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListJornadas_RangeQuery(t *testing.T) {
	router := newTestRouter()

	for _, day := range []string{"2025-06-13", "2025-06-14", "2025-06-15"} {
		rr := doJSON(t, router, "POST", "/api/operators/op-1/activities", map[string]interface{}{
			"day":             day,
			"durationMinutes": 30,
		})
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := doJSON(t, router, "GET", "/api/operators/op-1/jornadas?from=2025-06-14&to=2025-06-15", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Count    int             `json:"count"`
		Jornadas []model.Jornada `json:"jornadas"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	rr = doJSON(t, router, "GET", "/api/operators/op-1/jornadas?from=garbage", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdminReconcile_ReturnsReport(t *testing.T) {
	router := newTestRouter()

	rr := doJSON(t, router, "POST", "/api/operators/op-1/activities", map[string]interface{}{
		"day":             "2025-06-14",
		"durationMinutes": 30,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, router, "POST", "/api/admin/reconcile", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var rep model.ReconcileReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	assert.Equal(t, 1, rep.JornadasScanned)
	assert.Equal(t, 1, rep.ActivitiesScanned)
	assert.Empty(t, rep.Unresolved)
	assert.False(t, rep.FinishedAt.IsZero())
}

func TestAdminConsolidate_ReturnsReport(t *testing.T) {
	router := newTestRouter()

	rr := doJSON(t, router, "POST", "/api/admin/operators/op-1/consolidate", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var rep model.ReconcileReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	assert.Zero(t, rep.DuplicatesMerged)
}

func TestHealthEndpointShape(t *testing.T) {
	router := newTestRouter()
	health := NewHealthHandler()
	router.HandleFunc("/api/health", health.CheckHealth).Methods("GET")

	BindServiceHealth(func() bool { return true })
	defer BindServiceHealth(func() bool { return healthyFlag.Load() == 1 })

	rr := doJSON(t, router, "GET", "/api/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}
