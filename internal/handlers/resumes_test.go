package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/quaero/internal/models"
)

func TestListResumesRequiresUserIdentity(t *testing.T) {
	application, _ := newTestApp(t)
	h := New(application)

	req := httptest.NewRequest(http.MethodGet, "/tasks/resumes", nil)
	rec := httptest.NewRecorder()

	h.ListResumes(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListResumesReturnsOnlyCallersResumes(t *testing.T) {
	application, store := newTestApp(t)
	h := New(application)

	store.mu.Lock()
	store.resumes["r1"] = &models.Resume{ID: "r1", UserID: "owner", Name: "Primary"}
	store.resumes["r2"] = &models.Resume{ID: "r2", UserID: "someone-else", Name: "Other"}
	store.mu.Unlock()

	req := withUser(httptest.NewRequest(http.MethodGet, "/tasks/resumes", nil), "owner")
	rec := httptest.NewRecorder()

	h.ListResumes(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []*models.Resume
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)
}
