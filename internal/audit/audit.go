// Package audit records every automated action the engine attempts as an
// append-only AgentAction trail, and mirrors each record to a structured log
// sink for operators.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/outreach-agent/internal/store"
	"github.com/jonathan/outreach-agent/internal/types"
)

// Sink receives a copy of each recorded action, typically for logging.
type Sink interface {
	Record(a *types.AgentAction)
}

// ZapSink logs recorded actions at info level (success) or warn (failure).
type ZapSink struct {
	log *zap.Logger
}

// NewZapSink wraps a zap logger as an audit sink.
func NewZapSink(log *zap.Logger) *ZapSink {
	return &ZapSink{log: log}
}

// Record logs one action.
func (s *ZapSink) Record(a *types.AgentAction) {
	fields := []zap.Field{
		zap.String("action_id", a.ID.String()),
		zap.String("candidate_id", a.CandidateID.String()),
		zap.String("campaign_id", a.CampaignID.String()),
		zap.String("action_type", string(a.ActionType)),
		zap.Bool("success", a.Success),
	}
	if a.ErrorMessage != "" {
		fields = append(fields, zap.String("error", a.ErrorMessage))
	}
	if a.Success {
		s.log.Info("agent action", fields...)
	} else {
		s.log.Warn("agent action failed", fields...)
	}
}

// Recorder appends AgentActions to the store and fans them out to sinks.
type Recorder struct {
	actions store.ActionStore
	sinks   []Sink
	now     func() time.Time
}

// NewRecorder creates a recorder writing to the given action store.
func NewRecorder(actions store.ActionStore, sinks ...Sink) *Recorder {
	return &Recorder{actions: actions, sinks: sinks, now: time.Now}
}

// Success records a successful action.
func (r *Recorder) Success(ctx context.Context, candidateID, campaignID uuid.UUID, actionType types.ActionType, details map[string]any) (*types.AgentAction, error) {
	return r.record(ctx, candidateID, campaignID, actionType, true, "", details)
}

// Failure records a failed action with its error message.
func (r *Recorder) Failure(ctx context.Context, candidateID, campaignID uuid.UUID, actionType types.ActionType, errMsg string, details map[string]any) (*types.AgentAction, error) {
	return r.record(ctx, candidateID, campaignID, actionType, false, errMsg, details)
}

func (r *Recorder) record(ctx context.Context, candidateID, campaignID uuid.UUID, actionType types.ActionType, success bool, errMsg string, details map[string]any) (*types.AgentAction, error) {
	a := &types.AgentAction{
		ID:           uuid.New(),
		CandidateID:  candidateID,
		CampaignID:   campaignID,
		ActionType:   actionType,
		Success:      success,
		ErrorMessage: errMsg,
		Details:      details,
		CreatedAt:    r.now(),
	}
	if err := r.actions.AppendAction(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to append agent action: %w", err)
	}
	for _, sink := range r.sinks {
		sink.Record(a)
	}
	return a, nil
}
