package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActionType enumerates the outreach actions a pipeline stage can perform.
type ActionType string

// Supported stage action types.
const (
	ActionConnectionRequest ActionType = "connection_request"
	ActionMessage           ActionType = "message"
	ActionFollowUp          ActionType = "follow_up"
	ActionWait              ActionType = "wait"
	ActionReminder          ActionType = "reminder"
	ActionInMail            ActionType = "inmail"
	ActionProfileView       ActionType = "profile_view"
	ActionWithdraw          ActionType = "withdraw"
)

// ValidActionTypes lists every action type a stage template may use.
var ValidActionTypes = []ActionType{
	ActionConnectionRequest,
	ActionMessage,
	ActionFollowUp,
	ActionWait,
	ActionReminder,
	ActionInMail,
	ActionProfileView,
	ActionWithdraw,
}

// IsValid reports whether the action type is one of the supported values.
func (a ActionType) IsValid() bool {
	for _, v := range ValidActionTypes {
		if a == v {
			return true
		}
	}
	return false
}

// ConsumesConnectionQuota reports whether dispatching the action counts
// against the campaign's connection-request caps.
func (a ActionType) ConsumesConnectionQuota() bool {
	return a == ActionConnectionRequest
}

// ConsumesMessageQuota reports whether dispatching the action counts against
// the campaign's daily message cap.
func (a ActionType) ConsumesMessageQuota() bool {
	switch a {
	case ActionMessage, ActionFollowUp, ActionReminder, ActionInMail:
		return true
	default:
		return false
	}
}

// StageTemplate is one configured step in a campaign's outreach sequence.
// Position ordering is significant and must be gap-free within a version.
type StageTemplate struct {
	Position          int        `json:"position" validate:"gte=0"`
	Name              string     `json:"name" validate:"required,min=1"`
	ActionType        ActionType `json:"action_type"`
	DelayDays         int        `json:"delay_days" validate:"gte=0"`
	RequiresApproval  bool       `json:"requires_approval"`
	MessageTemplateID *uuid.UUID `json:"message_template_id,omitempty"`
}

// Delay returns the minimum duration after the previous stage completed
// before this stage becomes eligible.
func (s *StageTemplate) Delay() time.Duration {
	return time.Duration(s.DelayDays) * 24 * time.Hour
}

// PipelineVersion is one immutable-once-started version of a campaign's
// ordered stage list. Editing a campaign's stages produces a new version;
// candidates mid-pipeline keep the version they enrolled against.
type PipelineVersion struct {
	CampaignID uuid.UUID       `json:"campaign_id"`
	Version    int             `json:"version"`
	Stages     []StageTemplate `json:"stages"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Validate enforces the save-time invariants for a stage list: at least one
// stage, positions contiguous from 0, known action types, non-negative delays.
func (p *PipelineVersion) Validate() error {
	if len(p.Stages) == 0 {
		return fmt.Errorf("pipeline version %d: at least one stage is required", p.Version)
	}
	for i, stage := range p.Stages {
		if stage.Position != i {
			return fmt.Errorf("pipeline version %d: stage positions must be contiguous from 0, got %d at index %d",
				p.Version, stage.Position, i)
		}
		if !stage.ActionType.IsValid() {
			return fmt.Errorf("pipeline version %d: stage %q has unknown action type %q",
				p.Version, stage.Name, stage.ActionType)
		}
		if stage.DelayDays < 0 {
			return fmt.Errorf("pipeline version %d: stage %q has negative delay_days", p.Version, stage.Name)
		}
		if stage.Name == "" {
			return fmt.Errorf("pipeline version %d: stage at position %d has no name", p.Version, i)
		}
	}
	return nil
}
