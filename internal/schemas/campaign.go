package schemas

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/jonathan/outreach-agent/internal/types"
)

//go:embed campaign.schema.json
var campaignSchema string

// CampaignDocument is the on-disk shape of a campaign definition as imported
// through the CLI or API: the campaign fields plus its initial stage list.
type CampaignDocument struct {
	Title           string                `json:"title"`
	RoleDescription string                `json:"role_description,omitempty"`
	OnRejection     types.RejectionPolicy `json:"on_rejection,omitempty"`
	MaxStageRetries int                   `json:"max_stage_retries,omitempty"`
	JobSpec         types.JobSpec         `json:"job_spec"`
	RateLimits      types.RateLimitConfig `json:"rate_limits"`
	Stages          []types.StageTemplate `json:"stages"`
}

// ValidateCampaignDocument checks raw JSON against the embedded campaign
// schema before it is decoded into domain types. Schema validation catches
// shape errors (unknown fields, wrong types, missing stages) early, with
// field-level messages.
func ValidateCampaignDocument(jsonContent []byte) error {
	return ValidateJSONString(campaignSchema, string(jsonContent))
}

// ParseCampaignDocument validates and decodes a campaign import document.
func ParseCampaignDocument(jsonContent []byte) (*CampaignDocument, error) {
	if err := ValidateCampaignDocument(jsonContent); err != nil {
		return nil, err
	}
	var doc CampaignDocument
	if err := json.Unmarshal(jsonContent, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode campaign document: %w", err)
	}
	return &doc, nil
}
