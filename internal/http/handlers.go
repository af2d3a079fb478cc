package http

import (
	"encoding/json"
	"net/http"
	"time"

	"fluxo/internal/core"
	"fluxo/internal/log"
)

type reportResponse struct {
	OrganizationID string          `json:"organizationId"`
	ComputedAt     time.Time       `json:"computedAt"`
	Report         json.RawMessage `json:"report"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleComputeSnapshot computes a snapshot over a ledger in the request
// body. Nothing is stored.
func (s *Server) handleComputeSnapshot(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.snapshots.Compute(r.Context(), req.Transactions, req.Goal)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleOrganizationSnapshot(w http.ResponseWriter, r *http.Request) {
	orgID, err := orgIDParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.snapshots.Snapshot(r.Context(), orgID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleRecordTransaction is the chat-transaction hook: it appends one entry
// to the organization's ledger.
func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	orgID, err := orgIDParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var tx core.RawTransaction
	if err := decodeJSON(w, r, &tx); err != nil {
		respondError(w, r, err)
		return
	}

	id, err := s.snapshots.RecordTransaction(r.Context(), orgID, sanitizeTransaction(tx))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	orgID, err := orgIDParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if s.reports == nil {
		writeError(w, http.StatusNotFound, "reports are not enabled")
		return
	}

	rep, err := s.reports.LatestReport(r.Context(), orgID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{
		OrganizationID: rep.OrganizationID,
		ComputedAt:     rep.ComputedAt,
		Report:         json.RawMessage(rep.Body),
	})
}
