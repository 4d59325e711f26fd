package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopeworks/discovery/auth"
	"github.com/scopeworks/discovery/config"
	dtest "github.com/scopeworks/discovery/internal/testing"
	"github.com/scopeworks/discovery/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db := dtest.CreateTestDB(t)
	cfg := &config.Config{}
	cfg.Server.Addr = ":0"
	return New(db, cfg, nil)
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func createProject(t *testing.T, srv *Server, scenarioID string) string {
	t.Helper()

	rec := doJSON(t, srv, http.MethodPost, "/api/projects", map[string]interface{}{
		"scenario_id": scenarioID,
		"name":        "Test Project",
		"confidence":  0.5,
		"status":      "draft",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID      string `json:"id"`
		Created bool   `json:"created"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Created)
	return resp.ID
}

func TestUpsertProject_CreatedThenUpdated(t *testing.T) {
	srv := newTestServer(t)

	id := createProject(t, srv, "scenario-http")

	// Second upsert for the same scenario updates in place.
	rec := doJSON(t, srv, http.MethodPost, "/api/projects", map[string]interface{}{
		"scenario_id": "scenario-http",
		"name":        "Renamed Project",
		"confidence":  0.8,
		"status":      "active",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ID      string `json:"id"`
		Created bool   `json:"created"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.ID)
	assert.False(t, resp.Created)

	// First upsert left a project_created event on the timeline.
	events, err := srv.timeline.ListByProject(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, store.EventProjectCreated, events[0].EventType)
}

func TestGetProjectDetails_SoftMissReturnsNullBody(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/projects/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "null\n", rec.Body.String())
}

func TestGapSyncAndListOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	id := createProject(t, srv, "scenario-sync")

	rec := doJSON(t, srv, http.MethodPost, "/api/projects/"+id+"/gaps/sync", []map[string]interface{}{
		{"description": "no SLO defined", "impact": "high", "priority": "high",
			"status": "open", "identified_date": time.Now()},
		{"description": "unclear ownership", "impact": "low", "priority": "low",
			"status": "resolved", "identified_date": time.Now()},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var syncResp struct {
		IDs   []string `json:"ids"`
		Count int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &syncResp))
	assert.Equal(t, 2, syncResp.Count)
	assert.Len(t, syncResp.IDs, 2)

	rec = doJSON(t, srv, http.MethodGet, "/api/projects/"+id+"/gaps?status=open", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var gaps []*store.Gap
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gaps))
	require.Len(t, gaps, 1)
	assert.Equal(t, "no SLO defined", gaps[0].Description)
}

func TestAnswerQuestion_EmitsTimelineEvent(t *testing.T) {
	srv := newTestServer(t)
	id := createProject(t, srv, "scenario-answer")

	rec := doJSON(t, srv, http.MethodPost, "/api/projects/"+id+"/questions/sync", []map[string]interface{}{
		{"question": "Which cloud?", "category": "infra", "priority": "high",
			"status": "open", "asked_date": time.Now()},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var syncResp struct {
		IDs []string `json:"ids"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &syncResp))
	questionID := syncResp.IDs[0]

	rec = doJSON(t, srv, http.MethodPatch, "/api/questions/"+questionID+"/answer",
		map[string]string{"answer": "AWS, existing org policy"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	question, err := srv.questions.GetByID(context.Background(), questionID)
	require.NoError(t, err)
	assert.Equal(t, store.QuestionStatusAnswered, question.Status)
	assert.NotNil(t, question.AnsweredDate)

	events, err := srv.timeline.ListByProject(context.Background(), id)
	require.NoError(t, err)
	var types []store.EventType
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.Contains(t, types, store.EventQuestionAnswered)
}

func TestDeleteProject_CascadeOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	id := createProject(t, srv, "scenario-delete")

	rec := doJSON(t, srv, http.MethodPost, "/api/projects/"+id+"/gaps/sync", []map[string]interface{}{
		{"description": "gap", "impact": "low", "priority": "low",
			"status": "open", "identified_date": time.Now()},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/projects/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result store.CascadeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.ProjectDeleted)
	assert.Equal(t, int64(1), result.Deleted["gaps"])

	rec = doJSON(t, srv, http.MethodGet, "/api/projects/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchStatus_UnknownIDIs404(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPatch, "/api/gaps/no-such-gap/status",
		map[string]string{"status": "resolved"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodPatch, "/api/projects/no-such-project/status",
		map[string]string{"status": "archived"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchStatus_InvalidEnumIs400(t *testing.T) {
	srv := newTestServer(t)
	id := createProject(t, srv, "scenario-badenum")

	rec := doJSON(t, srv, http.MethodPatch, "/api/projects/"+id+"/status",
		map[string]string{"status": "paused"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntegrationStubReturnsNull(t *testing.T) {
	srv := newTestServer(t)
	id := createProject(t, srv, "scenario-integration")

	rec := doJSON(t, srv, http.MethodGet, "/api/projects/"+id+"/integration", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null\n", rec.Body.String())
}

func TestAuthMiddleware_GuardsAPI(t *testing.T) {
	db := dtest.CreateTestDB(t)
	cfg := &config.Config{}
	cfg.Server.Addr = ":0"
	cfg.Auth.Enabled = true
	cfg.Auth.RateLimitPerMinute = 60
	srv := New(db, cfg, nil)

	// No key: rejected.
	rec := doJSON(t, srv, http.MethodGet, "/api/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid key: accepted.
	_, secret, err := auth.NewStore(db).Create(context.Background(), "test-key", nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("X-API-Key", secret)
	authed := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(authed, req)
	assert.Equal(t, http.StatusOK, authed.Code)
}
