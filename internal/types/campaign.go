// Package types provides type definitions for the entities shared across the outreach engine.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CampaignStatus represents the lifecycle state of a campaign.
type CampaignStatus string

// Campaign lifecycle states.
const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

// RejectionPolicy decides what happens to a candidate when a recruiter
// rejects an approval request for one of their stages.
type RejectionPolicy string

// Rejection policies.
const (
	// RejectionRetryLater keeps the candidate on the same stage; the stage
	// becomes eligible again after its delay and a new request is opened.
	RejectionRetryLater RejectionPolicy = "retry_later"
	// RejectionSkipStage advances the candidate past the rejected stage.
	RejectionSkipStage RejectionPolicy = "skip_stage"
	// RejectionFailCandidate terminates the candidate as failed.
	RejectionFailCandidate RejectionPolicy = "fail_candidate"
)

// Campaign represents a recruiting outreach campaign: a role being hired for,
// a scoring rubric, dispatch limits, and an ordered stage pipeline (versioned
// separately, see PipelineVersion).
type Campaign struct {
	ID              uuid.UUID       `json:"id"`
	Title           string          `json:"title" validate:"required,min=1"`
	RoleDescription string          `json:"role_description,omitempty"`
	JobSpec         JobSpec         `json:"job_spec"`
	RateLimits      RateLimitConfig `json:"rate_limits"`
	OnRejection     RejectionPolicy `json:"on_rejection,omitempty" validate:"omitempty,oneof=retry_later skip_stage fail_candidate"`
	MaxStageRetries int             `json:"max_stage_retries,omitempty" validate:"gte=0"`
	Status          CampaignStatus  `json:"status" validate:"required,oneof=draft active paused completed"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Default retry budget applied when a campaign does not set MaxStageRetries.
const DefaultMaxStageRetries = 3

// EffectiveRejectionPolicy returns the campaign's rejection policy, defaulting
// to skipping the rejected stage when none is configured.
func (c *Campaign) EffectiveRejectionPolicy() RejectionPolicy {
	if c.OnRejection == "" {
		return RejectionSkipStage
	}
	return c.OnRejection
}

// EffectiveMaxStageRetries returns the per-stage retry budget for the campaign.
func (c *Campaign) EffectiveMaxStageRetries() int {
	if c.MaxStageRetries <= 0 {
		return DefaultMaxStageRetries
	}
	return c.MaxStageRetries
}

// Validate validates the campaign configuration, including its rubric and
// rate-limit config. Invalid campaigns are rejected at save time and never
// reach the scheduler.
func (c *Campaign) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if err := c.JobSpec.Validate(); err != nil {
		return err
	}
	return c.RateLimits.Validate()
}
