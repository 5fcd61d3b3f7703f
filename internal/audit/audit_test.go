package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/outreach-agent/internal/store"
	"github.com/jonathan/outreach-agent/internal/types"
)

type captureSink struct {
	actions []*types.AgentAction
}

func (c *captureSink) Record(a *types.AgentAction) {
	c.actions = append(c.actions, a)
}

func TestRecorderSuccess(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	sink := &captureSink{}
	rec := NewRecorder(m, sink)

	candidateID := uuid.New()
	campaignID := uuid.New()

	a, err := rec.Success(ctx, candidateID, campaignID, types.ActionMessage, map[string]any{"stage": 1})
	require.NoError(t, err)
	assert.True(t, a.Success)
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	// Stored and fanned out.
	stored, err := m.ListActions(ctx, campaignID, a.CreatedAt.Add(-1), 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Len(t, sink.actions, 1)
	assert.Equal(t, a.ID, sink.actions[0].ID)
}

func TestRecorderFailure(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	rec := NewRecorder(m, NewZapSink(zap.NewNop()))

	a, err := rec.Failure(ctx, uuid.New(), uuid.New(), types.ActionConnectionRequest, "network timeout", nil)
	require.NoError(t, err)
	assert.False(t, a.Success)
	assert.Equal(t, "network timeout", a.ErrorMessage)
}
