package types

import (
	"time"

	"github.com/google/uuid"
)

// CandidateStatus represents where a candidate is in a campaign overall.
type CandidateStatus string

// Candidate lifecycle states. The last three are terminal.
const (
	CandidateActive    CandidateStatus = "active"
	CandidateCompleted CandidateStatus = "completed"
	CandidateWithdrawn CandidateStatus = "withdrawn"
	CandidateFailed    CandidateStatus = "failed"
)

// Terminal reports whether the status allows no further stage evaluation.
func (s CandidateStatus) Terminal() bool {
	return s == CandidateCompleted || s == CandidateWithdrawn || s == CandidateFailed
}

// ActionStatus represents the state of a candidate's in-flight stage action.
type ActionStatus string

// In-flight action states.
const (
	ActionIdle             ActionStatus = "idle"
	ActionAwaitingApproval ActionStatus = "awaiting_approval"
	ActionDispatching      ActionStatus = "dispatching"
	ActionDone             ActionStatus = "done"
)

// CandidateState is the per-(candidate, campaign) progress record driven by
// the orchestrator. StageIndex never regresses except via an explicit
// withdraw, and never advances past the final stage (terminal = completed).
type CandidateState struct {
	CandidateID          uuid.UUID       `json:"candidate_id"`
	CampaignID           uuid.UUID       `json:"campaign_id"`
	PipelineVersion      int             `json:"pipeline_version"`
	StageIndex           int             `json:"stage_index"`
	Status               CandidateStatus `json:"status"`
	ActionStatus         ActionStatus    `json:"action_status"`
	StageEligibleAt      time.Time       `json:"stage_eligible_at"`
	LastStageCompletedAt *time.Time      `json:"last_stage_completed_at,omitempty"`
	RetryCount           int             `json:"retry_count"`
	Score                *ScoreBreakdown `json:"score,omitempty"`
	EnrolledAt           time.Time       `json:"enrolled_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Eligible reports whether the candidate's current stage may be evaluated at
// the given instant.
func (c *CandidateState) Eligible(now time.Time) bool {
	return c.Status == CandidateActive && !now.Before(c.StageEligibleAt)
}
