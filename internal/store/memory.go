package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-agent/internal/types"
)

// Memory is a mutex-guarded in-memory Store. It backs unit tests and the
// CLI's dry-run mode; the behavior it guarantees (pending uniqueness,
// conditional transitions) matches the PostgreSQL implementation.
type Memory struct {
	mu         sync.Mutex
	campaigns  map[uuid.UUID]*types.Campaign
	pipelines  map[uuid.UUID][]*types.PipelineVersion // keyed by campaign, ascending version
	candidates map[pairKey]*types.CandidateState
	approvals  map[uuid.UUID]*types.ApprovalRequest
	actions    []types.AgentAction
}

type pairKey struct {
	candidateID uuid.UUID
	campaignID  uuid.UUID
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		campaigns:  make(map[uuid.UUID]*types.Campaign),
		pipelines:  make(map[uuid.UUID][]*types.PipelineVersion),
		candidates: make(map[pairKey]*types.CandidateState),
		approvals:  make(map[uuid.UUID]*types.ApprovalRequest),
	}
}

// CreateCampaign stores a new campaign.
func (m *Memory) CreateCampaign(_ context.Context, c *types.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.campaigns[c.ID]; exists {
		return ErrConflict
	}
	clone := *c
	m.campaigns[c.ID] = &clone
	return nil
}

// GetCampaign returns a campaign by ID.
func (m *Memory) GetCampaign(_ context.Context, id uuid.UUID) (*types.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.campaigns[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *c
	return &clone, nil
}

// ListCampaigns returns campaigns, optionally filtered by status.
func (m *Memory) ListCampaigns(_ context.Context, status types.CampaignStatus) ([]types.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.Campaign
	for _, c := range m.campaigns {
		if status == "" || c.Status == status {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateCampaignStatus sets a campaign's lifecycle status.
func (m *Memory) UpdateCampaignStatus(_ context.Context, id uuid.UUID, status types.CampaignStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.campaigns[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	return nil
}

// SavePipelineVersion appends a new version for a campaign. Existing
// versions are immutable: re-saving one is a conflict.
func (m *Memory) SavePipelineVersion(_ context.Context, v *types.PipelineVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.pipelines[v.CampaignID] {
		if existing.Version == v.Version {
			return ErrConflict
		}
	}
	clone := *v
	clone.Stages = append([]types.StageTemplate{}, v.Stages...)
	m.pipelines[v.CampaignID] = append(m.pipelines[v.CampaignID], &clone)
	sort.Slice(m.pipelines[v.CampaignID], func(i, j int) bool {
		return m.pipelines[v.CampaignID][i].Version < m.pipelines[v.CampaignID][j].Version
	})
	return nil
}

// GetPipelineVersion returns one specific version.
func (m *Memory) GetPipelineVersion(_ context.Context, campaignID uuid.UUID, version int) (*types.PipelineVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, v := range m.pipelines[campaignID] {
		if v.Version == version {
			clone := *v
			clone.Stages = append([]types.StageTemplate{}, v.Stages...)
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

// LatestPipelineVersion returns the highest-numbered version for a campaign.
func (m *Memory) LatestPipelineVersion(_ context.Context, campaignID uuid.UUID) (*types.PipelineVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	versions := m.pipelines[campaignID]
	if len(versions) == 0 {
		return nil, ErrNotFound
	}
	v := versions[len(versions)-1]
	clone := *v
	clone.Stages = append([]types.StageTemplate{}, v.Stages...)
	return &clone, nil
}

// SaveCandidateState upserts a candidate's progress record.
func (m *Memory) SaveCandidateState(_ context.Context, state *types.CandidateState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *state
	m.candidates[pairKey{state.CandidateID, state.CampaignID}] = &clone
	return nil
}

// GetCandidateState returns one candidate's state within a campaign.
func (m *Memory) GetCandidateState(_ context.Context, candidateID, campaignID uuid.UUID) (*types.CandidateState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.candidates[pairKey{candidateID, campaignID}]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *state
	return &clone, nil
}

// ListCandidates returns every candidate enrolled in a campaign.
func (m *Memory) ListCandidates(_ context.Context, campaignID uuid.UUID) ([]types.CandidateState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.CandidateState
	for _, state := range m.candidates {
		if state.CampaignID == campaignID {
			out = append(out, *state)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrolledAt.Before(out[j].EnrolledAt) })
	return out, nil
}

// ListActiveCandidates returns the campaign's non-terminal candidates.
func (m *Memory) ListActiveCandidates(_ context.Context, campaignID uuid.UUID) ([]types.CandidateState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.CandidateState
	for _, state := range m.candidates {
		if state.CampaignID == campaignID && state.Status == types.CandidateActive {
			out = append(out, *state)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrolledAt.Before(out[j].EnrolledAt) })
	return out, nil
}

// CreateApproval stores a new request, enforcing at most one pending request
// per (candidate, campaign) pair.
func (m *Memory) CreateApproval(_ context.Context, req *types.ApprovalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.approvals {
		if existing.CandidateID == req.CandidateID && existing.CampaignID == req.CampaignID &&
			existing.Status == types.ApprovalPending {
			return ErrConflict
		}
	}
	clone := *req
	m.approvals[req.ID] = &clone
	return nil
}

// GetApproval returns a request by ID.
func (m *Memory) GetApproval(_ context.Context, id uuid.UUID) (*types.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.approvals[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *req
	return &clone, nil
}

// PendingApproval returns the pair's pending request, if any.
func (m *Memory) PendingApproval(_ context.Context, candidateID, campaignID uuid.UUID) (*types.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, req := range m.approvals {
		if req.CandidateID == candidateID && req.CampaignID == campaignID && req.Status == types.ApprovalPending {
			clone := *req
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

// LatestApproval returns the pair's most recently created request.
func (m *Memory) LatestApproval(_ context.Context, candidateID, campaignID uuid.UUID) (*types.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *types.ApprovalRequest
	for _, req := range m.approvals {
		if req.CandidateID != candidateID || req.CampaignID != campaignID {
			continue
		}
		if latest == nil || req.CreatedAt.After(latest.CreatedAt) {
			latest = req
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	clone := *latest
	return &clone, nil
}

// TransitionApproval conditionally moves a request out of the from status.
func (m *Memory) TransitionApproval(_ context.Context, id uuid.UUID, from types.ApprovalStatus, update func(*types.ApprovalRequest)) (*types.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.approvals[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Status != from {
		return nil, ErrInvalidState
	}
	update(req)
	clone := *req
	return &clone, nil
}

// ListApprovals returns a campaign's requests, optionally filtered by status.
func (m *Memory) ListApprovals(_ context.Context, campaignID uuid.UUID, status types.ApprovalStatus) ([]types.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.ApprovalRequest
	for _, req := range m.approvals {
		if req.CampaignID == campaignID && (status == "" || req.Status == status) {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ApprovalStats derives the campaign's aggregate counts.
func (m *Memory) ApprovalStats(_ context.Context, campaignID uuid.UUID) (types.ApprovalStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats types.ApprovalStats
	for _, req := range m.approvals {
		if req.CampaignID != campaignID {
			continue
		}
		switch req.Status {
		case types.ApprovalPending:
			stats.Pending++
		case types.ApprovalApproved:
			stats.Approved++
		case types.ApprovalRejected:
			stats.Rejected++
		case types.ApprovalSent:
			stats.Sent++
		case types.ApprovalFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// AppendAction appends to the audit trail.
func (m *Memory) AppendAction(_ context.Context, a *types.AgentAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.actions = append(m.actions, *a)
	return nil
}

// ListActions returns a campaign's audit records since the given time,
// newest first, capped at limit when limit > 0.
func (m *Memory) ListActions(_ context.Context, campaignID uuid.UUID, since time.Time, limit int) ([]types.AgentAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.AgentAction
	for _, a := range m.actions {
		if a.CampaignID == campaignID && !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
