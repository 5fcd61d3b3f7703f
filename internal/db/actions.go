package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-agent/internal/types"
)

// AppendAction appends to the audit trail.
func (db *DB) AppendAction(ctx context.Context, a *types.AgentAction) error {
	var details []byte
	if a.Details != nil {
		var err error
		details, err = json.Marshal(a.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal action details: %w", err)
		}
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO agent_actions (id, candidate_id, campaign_id, action_type,
		                            success, error_message, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.CandidateID, a.CampaignID, a.ActionType,
		a.Success, a.ErrorMessage, details, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append agent action: %w", err)
	}
	return nil
}

// ListActions returns a campaign's audit records since the given time,
// newest first, capped at limit when limit > 0.
func (db *DB) ListActions(ctx context.Context, campaignID uuid.UUID, since time.Time, limit int) ([]types.AgentAction, error) {
	query := `SELECT id, candidate_id, campaign_id, action_type,
	                 success, error_message, details, created_at
	          FROM agent_actions
	          WHERE campaign_id = $1 AND created_at >= $2
	          ORDER BY created_at DESC`
	args := []any{campaignID, since}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list agent actions: %w", err)
	}
	defer rows.Close()

	var out []types.AgentAction
	for rows.Next() {
		var a types.AgentAction
		var details []byte
		if err := rows.Scan(&a.ID, &a.CandidateID, &a.CampaignID, &a.ActionType,
			&a.Success, &a.ErrorMessage, &details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan agent action: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &a.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal action details: %w", err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
