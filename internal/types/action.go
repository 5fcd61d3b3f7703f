package types

import (
	"time"

	"github.com/google/uuid"
)

// AgentAction is an immutable audit record of one attempted automated action
// and its outcome. Records are append-only: never mutated or deleted.
type AgentAction struct {
	ID           uuid.UUID      `json:"id"`
	CandidateID  uuid.UUID      `json:"candidate_id"`
	CampaignID   uuid.UUID      `json:"campaign_id"`
	ActionType   ActionType     `json:"action_type"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
