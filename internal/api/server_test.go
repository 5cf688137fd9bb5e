package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelfw/spm/internal/auth"
	"github.com/kestrelfw/spm/internal/journal"
	"github.com/kestrelfw/spm/internal/registry"
)

type fakeStatus struct {
	services []registry.ServiceStatus
	inFlight int
}

func (f *fakeStatus) Snapshot() []registry.ServiceStatus { return f.services }
func (f *fakeStatus) InFlight() int                      { return f.inFlight }

type fakeJournal struct {
	entries []journal.Entry
	counts  map[journal.Outcome]int
}

func (f *fakeJournal) Recent(ctx context.Context, limit int) ([]journal.Entry, error) {
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func (f *fakeJournal) CountByOutcome(ctx context.Context) (map[journal.Outcome]int, error) {
	return f.counts, nil
}

func testServer(t *testing.T) (*Server, *fakeStatus, *fakeJournal) {
	t.Helper()
	status := &fakeStatus{
		services: []registry.ServiceStatus{
			{SID: 7, Name: "crypto", MinorVersion: 2, NonSecure: true, Pending: 1, OpenHandles: 2},
		},
		inFlight: 1,
	}
	jr := &fakeJournal{
		entries: []journal.Entry{
			{ID: "e1", SID: 7, Kind: "call", Trust: "non-secure", Outcome: journal.OutcomeEnqueued, CreatedAt: time.Now().UTC()},
			{ID: "e2", SID: 7, Kind: "connect", Trust: "non-secure", Outcome: journal.OutcomeFault, Detail: "fault unauthorized", CreatedAt: time.Now().UTC()},
		},
		counts: map[journal.Outcome]int{journal.OutcomeEnqueued: 1, journal.OutcomeFault: 1},
	}
	cfg := Config{
		Listen: "127.0.0.1:0",
		APIKey: "admin-key",
		Tokens: []auth.TokenConfig{
			{Token: "status-token", Scopes: []string{"status:ro"}},
			{Token: "journal-token", Scopes: []string{"journal:ro"}},
		},
	}
	return New(cfg, status, jr, slog.New(slog.NewTextHandler(io.Discard, nil))), status, jr
}

func doRequest(t *testing.T, s *Server, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.setupRoutes().ServeHTTP(rec, req)
	return rec
}

func TestHealthzIsUnauthenticated(t *testing.T) {
	s, _, _ := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthzResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Services)
	assert.Equal(t, 1, resp.InFlight)
}

func TestStatusEndpoint(t *testing.T) {
	s, _, _ := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/v1/status", "status-token")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1.0", resp.FrameworkVersion)
	assert.Equal(t, 1, resp.InFlight)
	assert.Equal(t, 1, resp.Outcomes[journal.OutcomeFault])
	require.Len(t, resp.Services, 1)
	assert.Equal(t, "crypto", resp.Services[0].Name)
}

func TestServicesEndpoint(t *testing.T) {
	s, _, _ := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/v1/services", "admin-key")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ServicesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Services, 1)
	assert.Equal(t, uint32(7), resp.Services[0].SID)
}

func TestJournalEndpoint(t *testing.T) {
	s, _, _ := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/v1/journal?limit=1", "journal-token")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp JournalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "e1", resp.Entries[0].ID)

	rec = doRequest(t, s, http.MethodGet, "/v1/journal?limit=0", "journal-token")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	s, _, _ := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/v1/status", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/v1/status", "wrong-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestScopeEnforcement(t *testing.T) {
	s, _, _ := testServer(t)

	// status-token must not read the journal, journal-token must not read
	// status.
	rec := doRequest(t, s, http.MethodGet, "/v1/journal", "status-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/v1/status", "journal-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admin key reads both.
	rec = doRequest(t, s, http.MethodGet, "/v1/journal", "admin-key")
	assert.Equal(t, http.StatusOK, rec.Code)
}
