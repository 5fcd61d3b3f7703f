package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/outreach-agent/internal/store"
	"github.com/jonathan/outreach-agent/internal/types"
)

const approvalColumns = `id, candidate_id, campaign_id, stage_index, approval_type,
	proposed_content, context, status, decided_by, failure_reason,
	created_at, decided_at, sent_at`

// CreateApproval stores a new request. The partial unique index on pending
// requests makes a second open for the same pair a conflict.
func (db *DB) CreateApproval(ctx context.Context, req *types.ApprovalRequest) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO approval_requests (`+approvalColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		req.ID, req.CandidateID, req.CampaignID, req.StageIndex, req.ApprovalType,
		req.ProposedContent, req.Context, req.Status, req.DecidedBy, req.FailureReason,
		req.CreatedAt, req.DecidedAt, req.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create approval request: %w", mapConflict(err))
	}
	return nil
}

// GetApproval returns a request by ID.
func (db *DB) GetApproval(ctx context.Context, id uuid.UUID) (*types.ApprovalRequest, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+approvalColumns+` FROM approval_requests WHERE id = $1`, id)
	return scanApproval(row)
}

// PendingApproval returns the pair's pending request, if any.
func (db *DB) PendingApproval(ctx context.Context, candidateID, campaignID uuid.UUID) (*types.ApprovalRequest, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+approvalColumns+` FROM approval_requests
		 WHERE candidate_id = $1 AND campaign_id = $2 AND status = $3`,
		candidateID, campaignID, types.ApprovalPending)
	return scanApproval(row)
}

// LatestApproval returns the pair's most recently created request.
func (db *DB) LatestApproval(ctx context.Context, candidateID, campaignID uuid.UUID) (*types.ApprovalRequest, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+approvalColumns+` FROM approval_requests
		 WHERE candidate_id = $1 AND campaign_id = $2
		 ORDER BY created_at DESC LIMIT 1`,
		candidateID, campaignID)
	return scanApproval(row)
}

// TransitionApproval atomically moves a request out of the from status. The
// row is locked for the duration, so concurrent deciders serialize and the
// loser sees store.ErrInvalidState.
func (db *DB) TransitionApproval(ctx context.Context, id uuid.UUID, from types.ApprovalStatus, update func(*types.ApprovalRequest)) (*types.ApprovalRequest, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	row := tx.QueryRow(ctx,
		`SELECT `+approvalColumns+` FROM approval_requests WHERE id = $1 FOR UPDATE`, id)
	req, err := scanApproval(row)
	if err != nil {
		return nil, err
	}
	if req.Status != from {
		return nil, store.ErrInvalidState
	}

	update(req)

	_, err = tx.Exec(ctx,
		`UPDATE approval_requests
		 SET status = $1, decided_by = $2, failure_reason = $3, decided_at = $4, sent_at = $5
		 WHERE id = $6`,
		req.Status, req.DecidedBy, req.FailureReason, req.DecidedAt, req.SentAt, req.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update approval request: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit approval transition: %w", err)
	}
	return req, nil
}

// ListApprovals returns a campaign's requests, optionally filtered by status,
// oldest first.
func (db *DB) ListApprovals(ctx context.Context, campaignID uuid.UUID, status types.ApprovalStatus) ([]types.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_requests WHERE campaign_id = $1`
	args := []any{campaignID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at`

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list approval requests: %w", err)
	}
	defer rows.Close()

	var out []types.ApprovalRequest
	for rows.Next() {
		req, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

// ApprovalStats derives the campaign's aggregate counts.
func (db *DB) ApprovalStats(ctx context.Context, campaignID uuid.UUID) (types.ApprovalStats, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM approval_requests
		 WHERE campaign_id = $1 GROUP BY status`, campaignID)
	if err != nil {
		return types.ApprovalStats{}, fmt.Errorf("failed to count approval requests: %w", err)
	}
	defer rows.Close()

	var stats types.ApprovalStats
	for rows.Next() {
		var status types.ApprovalStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return types.ApprovalStats{}, fmt.Errorf("failed to scan approval counts: %w", err)
		}
		switch status {
		case types.ApprovalPending:
			stats.Pending = count
		case types.ApprovalApproved:
			stats.Approved = count
		case types.ApprovalRejected:
			stats.Rejected = count
		case types.ApprovalSent:
			stats.Sent = count
		case types.ApprovalFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

func scanApproval(row pgx.Row) (*types.ApprovalRequest, error) {
	var req types.ApprovalRequest
	err := row.Scan(&req.ID, &req.CandidateID, &req.CampaignID, &req.StageIndex,
		&req.ApprovalType, &req.ProposedContent, &req.Context, &req.Status,
		&req.DecidedBy, &req.FailureReason, &req.CreatedAt, &req.DecidedAt, &req.SentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan approval request: %w", err)
	}
	return &req, nil
}
