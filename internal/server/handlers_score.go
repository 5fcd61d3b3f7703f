package server

import (
	"net/http"

	"github.com/jonathan/outreach-agent/internal/scoring"
	"github.com/jonathan/outreach-agent/internal/types"
)

type scoreRequest struct {
	Profile *types.CandidateProfile `json:"profile"`
	JobSpec *types.JobSpec          `json:"job_spec,omitempty"`
}

// handleScore scores a profile against an inline job spec without touching
// any campaign. Useful for tuning rubric weights before a campaign exists.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Profile == nil {
		s.errorResponse(w, http.StatusBadRequest, "profile is required")
		return
	}
	if req.JobSpec == nil {
		s.errorResponse(w, http.StatusBadRequest, "job_spec is required")
		return
	}
	if err := req.JobSpec.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	breakdown := scoring.Score(req.Profile, req.JobSpec)
	s.jsonResponse(w, http.StatusOK, breakdown)
}

// handleScoreAgainstCampaign scores a profile against a campaign's job spec
// without enrolling the candidate.
func (s *Server) handleScoreAgainstCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req scoreRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Profile == nil {
		s.errorResponse(w, http.StatusBadRequest, "profile is required")
		return
	}
	campaign, err := s.store.GetCampaign(r.Context(), campaignID)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	breakdown := scoring.Score(req.Profile, &campaign.JobSpec)
	s.jsonResponse(w, http.StatusOK, breakdown)
}
