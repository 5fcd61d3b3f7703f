package types

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalStatus represents the lifecycle of an approval request.
type ApprovalStatus string

// Approval request states. Legal transitions:
// pending -> approved -> sent, pending -> approved -> failed,
// pending -> rejected (terminal).
const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
	ApprovalSent     ApprovalStatus = "sent"
	ApprovalFailed   ApprovalStatus = "failed"
)

// ApprovalDecision is the human input applied to a pending request.
type ApprovalDecision string

// Decisions a reviewer can make on a pending request.
const (
	DecisionApproved ApprovalDecision = "approved"
	DecisionRejected ApprovalDecision = "rejected"
)

// ApprovalRequest gates a stage marked requires_approval. At most one pending
// request exists per (candidate, campaign) pair; its existence is kept
// consistent with the candidate's awaiting_approval action status.
type ApprovalRequest struct {
	ID              uuid.UUID      `json:"id"`
	CandidateID     uuid.UUID      `json:"candidate_id"`
	CampaignID      uuid.UUID      `json:"campaign_id"`
	StageIndex      int            `json:"stage_index"`
	ApprovalType    ActionType     `json:"approval_type"`
	ProposedContent string         `json:"proposed_content,omitempty"`
	Context         string         `json:"context,omitempty"`
	Status          ApprovalStatus `json:"status"`
	DecidedBy       string         `json:"decided_by,omitempty"`
	FailureReason   string         `json:"failure_reason,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	DecidedAt       *time.Time     `json:"decided_at,omitempty"`
	SentAt          *time.Time     `json:"sent_at,omitempty"`
}

// ApprovalStats are the per-campaign aggregate counts shown to reviewers.
// They are derived by counting requests, never stored separately.
type ApprovalStats struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
}
