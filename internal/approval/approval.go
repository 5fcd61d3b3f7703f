// Package approval manages the human review gate: opening requests for
// stages that require sign-off, applying reviewer decisions, and closing
// requests once the approved action is dispatched.
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-agent/internal/audit"
	"github.com/jonathan/outreach-agent/internal/store"
	"github.com/jonathan/outreach-agent/internal/types"
)

// Queue drives the approval request lifecycle against the store. Every
// transition it performs is recorded in the audit trail.
type Queue struct {
	approvals store.ApprovalStore
	recorder  *audit.Recorder
	now       func() time.Time
}

// NewQueue creates an approval queue.
func NewQueue(approvals store.ApprovalStore, recorder *audit.Recorder) *Queue {
	return &Queue{approvals: approvals, recorder: recorder, now: time.Now}
}

// Open creates a pending request for the candidate's current stage. The
// store enforces at most one pending request per (candidate, campaign) pair,
// so a duplicate open returns store.ErrConflict.
func (q *Queue) Open(ctx context.Context, candidateID, campaignID uuid.UUID, stageIndex int, actionType types.ActionType, proposedContent, reviewContext string) (*types.ApprovalRequest, error) {
	req := &types.ApprovalRequest{
		ID:              uuid.New(),
		CandidateID:     candidateID,
		CampaignID:      campaignID,
		StageIndex:      stageIndex,
		ApprovalType:    actionType,
		ProposedContent: proposedContent,
		Context:         reviewContext,
		Status:          types.ApprovalPending,
		CreatedAt:       q.now(),
	}
	if err := q.approvals.CreateApproval(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to open approval request: %w", err)
	}
	if _, err := q.recorder.Success(ctx, candidateID, campaignID, actionType, map[string]any{
		"event":       "approval_opened",
		"approval_id": req.ID.String(),
		"stage_index": stageIndex,
	}); err != nil {
		return nil, err
	}
	return req, nil
}

// Decide applies a reviewer's decision to a pending request. Concurrent
// decisions race on the store's conditional transition: the first wins and
// later ones get store.ErrInvalidState.
func (q *Queue) Decide(ctx context.Context, id uuid.UUID, decision types.ApprovalDecision, decidedBy string) (*types.ApprovalRequest, error) {
	var target types.ApprovalStatus
	switch decision {
	case types.DecisionApproved:
		target = types.ApprovalApproved
	case types.DecisionRejected:
		target = types.ApprovalRejected
	default:
		return nil, fmt.Errorf("unknown approval decision %q", decision)
	}

	decidedAt := q.now()
	req, err := q.approvals.TransitionApproval(ctx, id, types.ApprovalPending, func(r *types.ApprovalRequest) {
		r.Status = target
		r.DecidedBy = decidedBy
		r.DecidedAt = &decidedAt
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decide approval %s: %w", id, err)
	}
	if _, err := q.recorder.Success(ctx, req.CandidateID, req.CampaignID, req.ApprovalType, map[string]any{
		"event":       "approval_decided",
		"approval_id": req.ID.String(),
		"decision":    string(decision),
		"decided_by":  decidedBy,
	}); err != nil {
		return nil, err
	}
	return req, nil
}

// MarkSent closes an approved request after its action was dispatched. The
// recorded action doubles as the dispatch audit record for gated stages.
func (q *Queue) MarkSent(ctx context.Context, id uuid.UUID) (*types.ApprovalRequest, error) {
	sentAt := q.now()
	req, err := q.approvals.TransitionApproval(ctx, id, types.ApprovalApproved, func(r *types.ApprovalRequest) {
		r.Status = types.ApprovalSent
		r.SentAt = &sentAt
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark approval %s sent: %w", id, err)
	}
	if _, err := q.recorder.Success(ctx, req.CandidateID, req.CampaignID, req.ApprovalType, map[string]any{
		"event":       "approval_sent",
		"approval_id": req.ID.String(),
		"stage_index": req.StageIndex,
	}); err != nil {
		return nil, err
	}
	return req, nil
}

// MarkFailed closes an approved request whose dispatch failed.
func (q *Queue) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (*types.ApprovalRequest, error) {
	req, err := q.approvals.TransitionApproval(ctx, id, types.ApprovalApproved, func(r *types.ApprovalRequest) {
		r.Status = types.ApprovalFailed
		r.FailureReason = reason
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark approval %s failed: %w", id, err)
	}
	if _, err := q.recorder.Failure(ctx, req.CandidateID, req.CampaignID, req.ApprovalType, reason, map[string]any{
		"event":       "approval_dispatch_failed",
		"approval_id": req.ID.String(),
		"stage_index": req.StageIndex,
	}); err != nil {
		return nil, err
	}
	return req, nil
}

// Pending returns the pair's open request, if one exists.
func (q *Queue) Pending(ctx context.Context, candidateID, campaignID uuid.UUID) (*types.ApprovalRequest, error) {
	return q.approvals.PendingApproval(ctx, candidateID, campaignID)
}
