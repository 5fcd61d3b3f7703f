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

const candidateColumns = `candidate_id, campaign_id, pipeline_version, stage_index,
	status, action_status, stage_eligible_at, last_stage_completed_at,
	retry_count, score, enrolled_at, updated_at`

// SaveCandidateState upserts a candidate's progress record.
func (db *DB) SaveCandidateState(ctx context.Context, state *types.CandidateState) error {
	var score []byte
	if state.Score != nil {
		var err error
		score, err = json.Marshal(state.Score)
		if err != nil {
			return fmt.Errorf("failed to marshal score: %w", err)
		}
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO candidate_states (`+candidateColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (candidate_id, campaign_id) DO UPDATE SET
		   pipeline_version = $3, stage_index = $4, status = $5, action_status = $6,
		   stage_eligible_at = $7, last_stage_completed_at = $8, retry_count = $9,
		   score = $10, updated_at = $12`,
		state.CandidateID, state.CampaignID, state.PipelineVersion, state.StageIndex,
		state.Status, state.ActionStatus, state.StageEligibleAt, state.LastStageCompletedAt,
		state.RetryCount, score, state.EnrolledAt, state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save candidate state: %w", err)
	}
	return nil
}

// GetCandidateState returns one candidate's state within a campaign.
func (db *DB) GetCandidateState(ctx context.Context, candidateID, campaignID uuid.UUID) (*types.CandidateState, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidate_states
		 WHERE candidate_id = $1 AND campaign_id = $2`,
		candidateID, campaignID)
	return scanCandidateState(row)
}

// ListCandidates returns every candidate enrolled in a campaign.
func (db *DB) ListCandidates(ctx context.Context, campaignID uuid.UUID) ([]types.CandidateState, error) {
	return db.listCandidates(ctx,
		`SELECT `+candidateColumns+` FROM candidate_states
		 WHERE campaign_id = $1 ORDER BY enrolled_at`,
		campaignID)
}

// ListActiveCandidates returns the campaign's non-terminal candidates.
func (db *DB) ListActiveCandidates(ctx context.Context, campaignID uuid.UUID) ([]types.CandidateState, error) {
	return db.listCandidates(ctx,
		`SELECT `+candidateColumns+` FROM candidate_states
		 WHERE campaign_id = $1 AND status = $2 ORDER BY enrolled_at`,
		campaignID, types.CandidateActive)
}

func (db *DB) listCandidates(ctx context.Context, query string, args ...any) ([]types.CandidateState, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var out []types.CandidateState
	for rows.Next() {
		state, err := scanCandidateState(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *state)
	}
	return out, rows.Err()
}

func scanCandidateState(row pgx.Row) (*types.CandidateState, error) {
	var state types.CandidateState
	var score []byte
	err := row.Scan(&state.CandidateID, &state.CampaignID, &state.PipelineVersion,
		&state.StageIndex, &state.Status, &state.ActionStatus, &state.StageEligibleAt,
		&state.LastStageCompletedAt, &state.RetryCount, &score,
		&state.EnrolledAt, &state.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan candidate state: %w", err)
	}
	if len(score) > 0 {
		state.Score = &types.ScoreBreakdown{}
		if err := json.Unmarshal(score, state.Score); err != nil {
			return nil, fmt.Errorf("failed to unmarshal score: %w", err)
		}
	}
	return &state, nil
}
