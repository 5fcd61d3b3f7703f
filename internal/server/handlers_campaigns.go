package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-agent/internal/pipeline"
	"github.com/jonathan/outreach-agent/internal/schemas"
	"github.com/jonathan/outreach-agent/internal/store"
	"github.com/jonathan/outreach-agent/internal/types"
)

// maxBodySize caps request bodies at 1MB
const maxBodySize = 1 << 20

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	return body, true
}

func (s *Server) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid %s: must be a UUID", name))
		return uuid.Nil, false
	}
	return id, true
}

// campaignResponse pairs a campaign with its current pipeline version.
type campaignResponse struct {
	Campaign *types.Campaign        `json:"campaign"`
	Pipeline *types.PipelineVersion `json:"pipeline,omitempty"`
}

// handleCreateCampaign accepts a campaign document (schema-validated), saves
// the campaign as a draft, and saves its stage list as pipeline version 1.
func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	doc, err := schemas.ParseCampaignDocument(body)
	if err != nil {
		s.errorFor(w, err)
		return
	}

	now := time.Now().UTC()
	campaign := &types.Campaign{
		ID:              uuid.New(),
		Title:           doc.Title,
		RoleDescription: doc.RoleDescription,
		JobSpec:         doc.JobSpec,
		RateLimits:      doc.RateLimits,
		OnRejection:     doc.OnRejection,
		MaxStageRetries: doc.MaxStageRetries,
		Status:          types.CampaignDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if campaign.RateLimits == (types.RateLimitConfig{}) {
		campaign.RateLimits = types.DefaultRateLimitConfig()
	}
	if err := campaign.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	version, err := pipeline.NextVersion(campaign.ID, nil, doc.Stages, now)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.CreateCampaign(r.Context(), campaign); err != nil {
		s.errorFor(w, err)
		return
	}
	if err := s.store.SavePipelineVersion(r.Context(), &version); err != nil {
		s.errorFor(w, err)
		return
	}

	s.jsonResponse(w, http.StatusCreated, campaignResponse{Campaign: campaign, Pipeline: &version})
}

// handleListCampaigns lists campaigns, optionally filtered by ?status=.
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	status := types.CampaignStatus(r.URL.Query().Get("status"))
	campaigns, err := s.store.ListCampaigns(r.Context(), status)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"campaigns": campaigns})
}

// handleGetCampaign returns a campaign and its latest pipeline version.
func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	campaign, err := s.store.GetCampaign(r.Context(), id)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	version, err := s.store.LatestPipelineVersion(r.Context(), id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, campaignResponse{Campaign: campaign, Pipeline: version})
}

// handleActivateCampaign moves a campaign from draft or paused into active.
func (s *Server) handleActivateCampaign(w http.ResponseWriter, r *http.Request) {
	s.setCampaignStatus(w, r, types.CampaignActive, map[types.CampaignStatus]bool{
		types.CampaignDraft:  true,
		types.CampaignPaused: true,
	})
}

// handlePauseCampaign moves an active campaign into paused. Paused campaigns
// are skipped by the scheduler but keep their counters and candidate states.
func (s *Server) handlePauseCampaign(w http.ResponseWriter, r *http.Request) {
	s.setCampaignStatus(w, r, types.CampaignPaused, map[types.CampaignStatus]bool{
		types.CampaignActive: true,
	})
}

func (s *Server) setCampaignStatus(w http.ResponseWriter, r *http.Request, target types.CampaignStatus, allowedFrom map[types.CampaignStatus]bool) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	campaign, err := s.store.GetCampaign(r.Context(), id)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	if !allowedFrom[campaign.Status] {
		s.errorResponse(w, http.StatusConflict,
			fmt.Sprintf("cannot move campaign from %s to %s", campaign.Status, target))
		return
	}
	if err := s.store.UpdateCampaignStatus(r.Context(), id, target); err != nil {
		s.errorFor(w, err)
		return
	}
	campaign.Status = target
	s.jsonResponse(w, http.StatusOK, campaignResponse{Campaign: campaign})
}

// handleGetPipeline returns a campaign's pipeline, either the latest version
// or a specific one via ?version=.
func (s *Server) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	var version *types.PipelineVersion
	var err error
	if raw := r.URL.Query().Get("version"); raw != "" {
		var n int
		if _, scanErr := fmt.Sscanf(raw, "%d", &n); scanErr != nil || n < 1 {
			s.errorResponse(w, http.StatusBadRequest, "invalid version: must be a positive integer")
			return
		}
		version, err = s.store.GetPipelineVersion(r.Context(), id, n)
	} else {
		version, err = s.store.LatestPipelineVersion(r.Context(), id)
	}
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, version)
}

type updatePipelineRequest struct {
	Stages []types.StageTemplate `json:"stages"`
}

// handleUpdatePipeline saves a new pipeline version from an edited stage
// list. Existing versions are immutable; candidates mid-pipeline keep the
// version they enrolled against.
func (s *Server) handleUpdatePipeline(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req updatePipelineRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if _, err := s.store.GetCampaign(r.Context(), id); err != nil {
		s.errorFor(w, err)
		return
	}
	previous, err := s.store.LatestPipelineVersion(r.Context(), id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.errorFor(w, err)
		return
	}

	version, err := pipeline.NextVersion(id, previous, req.Stages, time.Now().UTC())
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.SavePipelineVersion(r.Context(), &version); err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, version)
}
