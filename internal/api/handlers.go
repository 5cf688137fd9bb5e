package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/kestrelfw/spm/internal/ipc"
	"github.com/kestrelfw/spm/internal/journal"
	"github.com/kestrelfw/spm/internal/registry"
)

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Services      int    `json:"services"`
	InFlight      int    `json:"in_flight"`
}

// StatusResponse is returned by GET /v1/status.
type StatusResponse struct {
	FrameworkVersion string                   `json:"framework_version"`
	UptimeSeconds    int64                    `json:"uptime_seconds"`
	InFlight         int                      `json:"in_flight"`
	Outcomes         map[journal.Outcome]int  `json:"outcomes"`
	Services         []registry.ServiceStatus `json:"services"`
}

// ServicesResponse is returned by GET /v1/services.
type ServicesResponse struct {
	Services []registry.ServiceStatus `json:"services"`
}

// JournalResponse is returned by GET /v1/journal.
type JournalResponse struct {
	Entries []JournalEntry `json:"entries"`
}

// JournalEntry is the wire form of one journal row.
type JournalEntry struct {
	ID        string    `json:"id"`
	MsgID     string    `json:"msg_id,omitempty"`
	SID       uint32    `json:"sid"`
	Handle    int32     `json:"handle,omitempty"`
	Kind      string    `json:"kind"`
	Trust     string    `json:"trust"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleHealthz handles GET /healthz. No auth required.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Services:      len(s.status.Snapshot()),
		InFlight:      s.status.InFlight(),
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleStatus handles GET /v1/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	outcomes, err := s.journal.CountByOutcome(r.Context())
	if err != nil {
		s.logger.Error("failed to read journal outcomes", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read journal")
		return
	}

	resp := StatusResponse{
		FrameworkVersion: formatFrameworkVersion(ipc.FrameworkVersion),
		UptimeSeconds:    int64(time.Since(s.startedAt).Seconds()),
		InFlight:         s.status.InFlight(),
		Outcomes:         outcomes,
		Services:         s.status.Snapshot(),
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleServices handles GET /v1/services.
func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ServicesResponse{Services: s.status.Snapshot()})
}

// handleJournal handles GET /v1/journal?limit=N.
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			s.writeError(w, http.StatusBadRequest, "limit must be an integer in [1, 1000]")
			return
		}
		limit = n
	}

	entries, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to read journal", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read journal")
		return
	}

	resp := JournalResponse{Entries: make([]JournalEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, JournalEntry{
			ID:        e.ID,
			MsgID:     e.MsgID,
			SID:       e.SID,
			Handle:    e.Handle,
			Kind:      e.Kind,
			Trust:     e.Trust,
			Outcome:   string(e.Outcome),
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// formatFrameworkVersion renders the packed major.minor version word.
func formatFrameworkVersion(v uint32) string {
	return strconv.FormatUint(uint64(v>>8), 10) + "." + strconv.FormatUint(uint64(v&0xff), 10)
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
