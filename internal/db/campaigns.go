package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/outreach-agent/internal/store"
	"github.com/jonathan/outreach-agent/internal/types"
)

// CreateCampaign stores a new campaign.
func (db *DB) CreateCampaign(ctx context.Context, c *types.Campaign) error {
	jobSpec, err := json.Marshal(c.JobSpec)
	if err != nil {
		return fmt.Errorf("failed to marshal job spec: %w", err)
	}
	rateLimits, err := json.Marshal(c.RateLimits)
	if err != nil {
		return fmt.Errorf("failed to marshal rate limits: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO campaigns (id, title, role_description, job_spec, rate_limits,
		                        on_rejection, max_stage_retries, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.Title, c.RoleDescription, jobSpec, rateLimits,
		c.OnRejection, c.MaxStageRetries, c.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", mapConflict(err))
	}
	return nil
}

// GetCampaign returns a campaign by ID.
func (db *DB) GetCampaign(ctx context.Context, id uuid.UUID) (*types.Campaign, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, title, role_description, job_spec, rate_limits,
		        on_rejection, max_stage_retries, status, created_at, updated_at
		 FROM campaigns WHERE id = $1`, id)
	return scanCampaign(row)
}

// ListCampaigns returns campaigns, optionally filtered by status, oldest first.
func (db *DB) ListCampaigns(ctx context.Context, status types.CampaignStatus) ([]types.Campaign, error) {
	query := `SELECT id, title, role_description, job_spec, rate_limits,
	                 on_rejection, max_stage_retries, status, created_at, updated_at
	          FROM campaigns`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at`

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var out []types.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// UpdateCampaignStatus sets a campaign's lifecycle status.
func (db *DB) UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status types.CampaignStatus) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE campaigns SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanCampaign(row pgx.Row) (*types.Campaign, error) {
	var c types.Campaign
	var jobSpec, rateLimits []byte
	err := row.Scan(&c.ID, &c.Title, &c.RoleDescription, &jobSpec, &rateLimits,
		&c.OnRejection, &c.MaxStageRetries, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan campaign: %w", err)
	}
	if err := json.Unmarshal(jobSpec, &c.JobSpec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job spec: %w", err)
	}
	if err := json.Unmarshal(rateLimits, &c.RateLimits); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rate limits: %w", err)
	}
	return &c, nil
}
