package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/outreach-agent/internal/store"
	"github.com/jonathan/outreach-agent/internal/types"
)

// SavePipelineVersion appends a new version for a campaign. Versions are
// immutable; inserting an existing version number is a conflict.
func (db *DB) SavePipelineVersion(ctx context.Context, v *types.PipelineVersion) error {
	stages, err := json.Marshal(v.Stages)
	if err != nil {
		return fmt.Errorf("failed to marshal stages: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO pipeline_versions (campaign_id, version, stages, created_at)
		 VALUES ($1, $2, $3, $4)`,
		v.CampaignID, v.Version, stages, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save pipeline version: %w", mapConflict(err))
	}
	return nil
}

// GetPipelineVersion returns one specific version.
func (db *DB) GetPipelineVersion(ctx context.Context, campaignID uuid.UUID, version int) (*types.PipelineVersion, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT campaign_id, version, stages, created_at
		 FROM pipeline_versions WHERE campaign_id = $1 AND version = $2`,
		campaignID, version)
	return scanPipelineVersion(row)
}

// LatestPipelineVersion returns the highest-numbered version for a campaign.
func (db *DB) LatestPipelineVersion(ctx context.Context, campaignID uuid.UUID) (*types.PipelineVersion, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT campaign_id, version, stages, created_at
		 FROM pipeline_versions WHERE campaign_id = $1
		 ORDER BY version DESC LIMIT 1`,
		campaignID)
	return scanPipelineVersion(row)
}

func scanPipelineVersion(row pgx.Row) (*types.PipelineVersion, error) {
	var v types.PipelineVersion
	var stages []byte
	err := row.Scan(&v.CampaignID, &v.Version, &stages, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan pipeline version: %w", err)
	}
	if err := json.Unmarshal(stages, &v.Stages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stages: %w", err)
	}
	return &v, nil
}
