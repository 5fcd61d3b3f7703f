package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jonathan/outreach-agent/internal/types"
)

// handleListApprovals lists a campaign's approval requests, optionally
// filtered by ?status=.
func (s *Server) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	if _, err := s.store.GetCampaign(r.Context(), campaignID); err != nil {
		s.errorFor(w, err)
		return
	}
	status := types.ApprovalStatus(r.URL.Query().Get("status"))
	approvals, err := s.store.ListApprovals(r.Context(), campaignID, status)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"approvals": approvals})
}

// handleApprovalStats returns aggregate approval counts for a campaign.
func (s *Server) handleApprovalStats(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	if _, err := s.store.GetCampaign(r.Context(), campaignID); err != nil {
		s.errorFor(w, err)
		return
	}
	stats, err := s.store.ApprovalStats(r.Context(), campaignID)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stats)
}

type decisionRequest struct {
	Decision  types.ApprovalDecision `json:"decision"`
	DecidedBy string                 `json:"decided_by"`
}

// handleDecideApproval applies a reviewer decision to a pending request.
// The first decision wins; repeated decisions get 409.
func (s *Server) handleDecideApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req decisionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	updated, err := s.engine.Queue().Decide(r.Context(), id, req.Decision, req.DecidedBy)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, updated)
}

const defaultActionLimit = 100

// handleListActions returns a campaign's audit trail, newest first.
// Accepts ?since= (RFC 3339) and ?limit=.
func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	if _, err := s.store.GetCampaign(r.Context(), campaignID); err != nil {
		s.errorFor(w, err)
		return
	}

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "invalid since: must be RFC 3339")
			return
		}
		since = parsed
	}

	limit := defaultActionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.errorResponse(w, http.StatusBadRequest, "invalid limit: must be a positive integer")
			return
		}
		limit = parsed
	}

	actions, err := s.store.ListActions(r.Context(), campaignID, since, limit)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"actions": actions})
}
