// Package store defines the persistence contracts the engine reads and
// writes campaigns, pipelines, candidate states, approvals, and audit
// records through. internal/db implements them on PostgreSQL; the Memory
// implementation in this package backs tests and dry runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-agent/internal/types"
)

// Sentinel errors shared by every Store implementation.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation, such as opening a second
	// pending approval for the same (candidate, campaign) pair.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState indicates a guarded state transition whose precondition
	// did not hold, such as deciding an already-decided approval.
	ErrInvalidState = errors.New("invalid state")
)

// CampaignStore persists campaigns.
type CampaignStore interface {
	CreateCampaign(ctx context.Context, c *types.Campaign) error
	GetCampaign(ctx context.Context, id uuid.UUID) (*types.Campaign, error)
	ListCampaigns(ctx context.Context, status types.CampaignStatus) ([]types.Campaign, error)
	UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status types.CampaignStatus) error
}

// PipelineStore persists versioned stage lists.
type PipelineStore interface {
	SavePipelineVersion(ctx context.Context, v *types.PipelineVersion) error
	GetPipelineVersion(ctx context.Context, campaignID uuid.UUID, version int) (*types.PipelineVersion, error)
	LatestPipelineVersion(ctx context.Context, campaignID uuid.UUID) (*types.PipelineVersion, error)
}

// CandidateStore persists per-(candidate, campaign) pipeline progress.
type CandidateStore interface {
	SaveCandidateState(ctx context.Context, state *types.CandidateState) error
	GetCandidateState(ctx context.Context, candidateID, campaignID uuid.UUID) (*types.CandidateState, error)
	ListCandidates(ctx context.Context, campaignID uuid.UUID) ([]types.CandidateState, error)
	ListActiveCandidates(ctx context.Context, campaignID uuid.UUID) ([]types.CandidateState, error)
}

// ApprovalStore persists approval requests. Implementations must enforce the
// single-pending-per-pair invariant in CreateApproval and make
// TransitionApproval conditional so that the first decision wins under
// concurrent callers.
type ApprovalStore interface {
	CreateApproval(ctx context.Context, req *types.ApprovalRequest) error
	GetApproval(ctx context.Context, id uuid.UUID) (*types.ApprovalRequest, error)
	PendingApproval(ctx context.Context, candidateID, campaignID uuid.UUID) (*types.ApprovalRequest, error)
	// LatestApproval returns the pair's most recently created request in any
	// status. The orchestrator uses it to pick up reviewer decisions.
	LatestApproval(ctx context.Context, candidateID, campaignID uuid.UUID) (*types.ApprovalRequest, error)
	// TransitionApproval atomically moves the request from the given status,
	// applying update to set decision fields. It returns ErrNotFound when the
	// request does not exist and ErrInvalidState when its current status is
	// not from.
	TransitionApproval(ctx context.Context, id uuid.UUID, from types.ApprovalStatus, update func(*types.ApprovalRequest)) (*types.ApprovalRequest, error)
	ListApprovals(ctx context.Context, campaignID uuid.UUID, status types.ApprovalStatus) ([]types.ApprovalRequest, error)
	ApprovalStats(ctx context.Context, campaignID uuid.UUID) (types.ApprovalStats, error)
}

// ActionStore persists the append-only AgentAction audit trail.
type ActionStore interface {
	AppendAction(ctx context.Context, a *types.AgentAction) error
	ListActions(ctx context.Context, campaignID uuid.UUID, since time.Time, limit int) ([]types.AgentAction, error)
}

// Store aggregates every persistence contract the engine needs.
type Store interface {
	CampaignStore
	PipelineStore
	CandidateStore
	ApprovalStore
	ActionStore
}
