package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-agent/internal/types"
)

type enrollRequest struct {
	CandidateID uuid.UUID               `json:"candidate_id"`
	Profile     *types.CandidateProfile `json:"profile"`
}

// handleEnrollCandidate scores a candidate's profile against the campaign and
// enrolls them at stage zero of the latest pipeline version. Disqualified
// profiles are rejected with 422 and leave no state behind.
func (s *Server) handleEnrollCandidate(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req enrollRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.CandidateID == uuid.Nil {
		s.errorResponse(w, http.StatusBadRequest, "candidate_id is required")
		return
	}
	if req.Profile == nil {
		s.errorResponse(w, http.StatusBadRequest, "profile is required")
		return
	}
	req.Profile.CandidateID = req.CandidateID

	state, err := s.engine.Enroll(r.Context(), campaignID, req.CandidateID, req.Profile)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, state)
}

// handleListCandidates lists every candidate state in a campaign.
func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	if _, err := s.store.GetCampaign(r.Context(), campaignID); err != nil {
		s.errorFor(w, err)
		return
	}
	candidates, err := s.store.ListCandidates(r.Context(), campaignID)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"candidates": candidates})
}

// handleGetCandidate returns one candidate's progress in a campaign.
func (s *Server) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	candidateID, ok := s.pathUUID(w, r, "candidate_id")
	if !ok {
		return
	}
	state, err := s.store.GetCandidateState(r.Context(), candidateID, campaignID)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

// handleWithdrawCandidate terminates a candidate immediately. Withdrawal is
// final; the candidate cannot be re-enrolled in the same campaign.
func (s *Server) handleWithdrawCandidate(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	candidateID, ok := s.pathUUID(w, r, "candidate_id")
	if !ok {
		return
	}
	state, err := s.engine.Withdraw(r.Context(), campaignID, candidateID)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

// handleResetCandidate returns a candidate stuck in dispatching to idle so
// the scheduler re-evaluates them. Operator reconciliation only; candidates
// in any other action state are rejected with 409.
func (s *Server) handleResetCandidate(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	candidateID, ok := s.pathUUID(w, r, "candidate_id")
	if !ok {
		return
	}
	state, err := s.engine.ResetCandidate(r.Context(), campaignID, candidateID)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}
