package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/outreach-agent/internal/pipeline"
	"github.com/jonathan/outreach-agent/internal/scoring"
	"github.com/jonathan/outreach-agent/internal/store"
	"github.com/jonathan/outreach-agent/internal/types"
)

// DisqualifiedError reports that a candidate's profile tripped one of the
// campaign's disqualifiers and was not enrolled.
type DisqualifiedError struct {
	Reason string
}

func (e *DisqualifiedError) Error() string {
	return fmt.Sprintf("candidate disqualified: %s", e.Reason)
}

// Enroll scores a candidate against the campaign's rubric and, if they pass
// the disqualifiers, places them at stage 0 of the campaign's latest
// pipeline version. Enrolling the same candidate twice is a conflict.
func (e *Engine) Enroll(ctx context.Context, campaignID, candidateID uuid.UUID, profile *types.CandidateProfile) (*types.CandidateState, error) {
	unlock := e.candidates.lock(candidateID, campaignID)
	defer unlock()

	campaign, err := e.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status == types.CampaignCompleted {
		return nil, fmt.Errorf("campaign %s is completed: %w", campaignID, store.ErrInvalidState)
	}

	if _, err := e.store.GetCandidateState(ctx, candidateID, campaignID); err == nil {
		return nil, fmt.Errorf("candidate %s already enrolled in campaign %s: %w", candidateID, campaignID, store.ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	version, err := e.store.LatestPipelineVersion(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("campaign %s has no pipeline: %w", campaignID, err)
	}
	def, err := pipeline.NewDefinition(*version)
	if err != nil {
		return nil, err
	}

	score := scoring.Score(profile, &campaign.JobSpec)
	if score.Disqualified {
		if _, recErr := e.recorder.Failure(ctx, candidateID, campaignID, types.ActionProfileView, score.DisqualifyReason, map[string]any{
			"event": "enrollment_disqualified",
		}); recErr != nil {
			return nil, recErr
		}
		return nil, &DisqualifiedError{Reason: score.DisqualifyReason}
	}

	now := e.now()
	first, err := def.StageAt(0)
	if err != nil {
		return nil, err
	}
	state := &types.CandidateState{
		CandidateID:     candidateID,
		CampaignID:      campaignID,
		PipelineVersion: def.Version(),
		StageIndex:      0,
		Status:          types.CandidateActive,
		ActionStatus:    types.ActionIdle,
		StageEligibleAt: now.Add(first.Delay()),
		Score:           &score,
		EnrolledAt:      now,
		UpdatedAt:       now,
	}
	if err := e.store.SaveCandidateState(ctx, state); err != nil {
		return nil, err
	}
	if _, err := e.recorder.Success(ctx, candidateID, campaignID, types.ActionProfileView, map[string]any{
		"event":            "candidate_enrolled",
		"score":            score.Total,
		"pipeline_version": def.Version(),
	}); err != nil {
		return nil, err
	}
	return state, nil
}

// Withdraw terminates a candidate's participation immediately, regardless of
// stage or pending approvals. Terminal candidates are left untouched.
func (e *Engine) Withdraw(ctx context.Context, campaignID, candidateID uuid.UUID) (*types.CandidateState, error) {
	unlock := e.candidates.lock(candidateID, campaignID)
	defer unlock()

	state, err := e.store.GetCandidateState(ctx, candidateID, campaignID)
	if err != nil {
		return nil, err
	}
	if state.Status.Terminal() {
		return nil, fmt.Errorf("candidate %s is already %s: %w", candidateID, state.Status, store.ErrInvalidState)
	}

	now := e.now()
	state.Status = types.CandidateWithdrawn
	state.ActionStatus = types.ActionDone
	state.UpdatedAt = now
	if err := e.store.SaveCandidateState(ctx, state); err != nil {
		return nil, err
	}
	if _, err := e.recorder.Success(ctx, candidateID, campaignID, types.ActionWithdraw, map[string]any{
		"event":       "candidate_withdrawn",
		"stage_index": state.StageIndex,
	}); err != nil {
		return nil, err
	}
	return state, nil
}

// ResetCandidate resolves a candidate held in dispatching after a timed-out
// or crashed dispatch whose outcome never landed. Ticks never release that
// hold on their own; once an operator has reconciled the channel, the reset
// returns the candidate to idle for re-evaluation on the next tick.
func (e *Engine) ResetCandidate(ctx context.Context, campaignID, candidateID uuid.UUID) (*types.CandidateState, error) {
	unlock := e.candidates.lock(candidateID, campaignID)
	defer unlock()

	state, err := e.store.GetCandidateState(ctx, candidateID, campaignID)
	if err != nil {
		return nil, err
	}
	if state.ActionStatus != types.ActionDispatching {
		return nil, fmt.Errorf("candidate %s is %s, not dispatching: %w", candidateID, state.ActionStatus, store.ErrInvalidState)
	}

	state.ActionStatus = types.ActionIdle
	state.UpdatedAt = e.now()
	if err := e.store.SaveCandidateState(ctx, state); err != nil {
		return nil, err
	}
	e.log.Info("candidate reset to idle",
		zap.String("candidate_id", candidateID.String()),
		zap.String("campaign_id", campaignID.String()),
		zap.Int("stage_index", state.StageIndex))
	return state, nil
}
