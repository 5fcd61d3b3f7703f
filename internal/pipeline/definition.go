// Package pipeline provides the ordered, versioned stage definitions a
// campaign's candidates progress through.
package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-agent/internal/types"
)

// ErrStageNotFound is returned by StageAt for an out-of-range index.
type ErrStageNotFound struct {
	Version int
	Index   int
}

func (e *ErrStageNotFound) Error() string {
	return fmt.Sprintf("pipeline version %d has no stage at index %d", e.Version, e.Index)
}

// Definition is an immutable view over one PipelineVersion. Candidates
// resolve their stages through a Definition for the version they enrolled
// against; newer versions never reinterpret their position.
type Definition struct {
	version types.PipelineVersion
}

// NewDefinition validates the version's stage list and wraps it. Invalid
// stage lists are rejected here, at save time, and never reach the scheduler.
func NewDefinition(version types.PipelineVersion) (*Definition, error) {
	if err := version.Validate(); err != nil {
		return nil, err
	}
	return &Definition{version: version}, nil
}

// Version returns the pipeline version number this definition wraps.
func (d *Definition) Version() int {
	return d.version.Version
}

// CampaignID returns the owning campaign.
func (d *Definition) CampaignID() uuid.UUID {
	return d.version.CampaignID
}

// Len returns the number of stages.
func (d *Definition) Len() int {
	return len(d.version.Stages)
}

// StageAt returns the stage template at the given index.
func (d *Definition) StageAt(index int) (types.StageTemplate, error) {
	if index < 0 || index >= len(d.version.Stages) {
		return types.StageTemplate{}, &ErrStageNotFound{Version: d.version.Version, Index: index}
	}
	return d.version.Stages[index], nil
}

// NextIndex returns the index following current, with ok=false when current
// is the final stage (the candidate is then terminal as completed).
func (d *Definition) NextIndex(current int) (int, bool) {
	next := current + 1
	if next >= len(d.version.Stages) {
		return 0, false
	}
	return next, true
}

// IsFinal reports whether the index is the last stage of the pipeline.
func (d *Definition) IsFinal(index int) bool {
	return index == len(d.version.Stages)-1
}

// NextVersion derives a new PipelineVersion for a campaign from an edited
// stage list. The previous version is left untouched: candidates already
// mid-pipeline continue against the version they started with, while new
// enrollments adopt the returned one.
func NextVersion(campaignID uuid.UUID, previous *types.PipelineVersion, stages []types.StageTemplate, now time.Time) (types.PipelineVersion, error) {
	version := 1
	if previous != nil {
		version = previous.Version + 1
	}
	v := types.PipelineVersion{
		CampaignID: campaignID,
		Version:    version,
		Stages:     stages,
		CreatedAt:  now,
	}
	if err := v.Validate(); err != nil {
		return types.PipelineVersion{}, err
	}
	return v, nil
}
