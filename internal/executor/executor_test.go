package executor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/outreach-agent/internal/types"
)

func testRequest() ActionRequest {
	return ActionRequest{
		CandidateID: uuid.New(),
		CampaignID:  uuid.New(),
		ActionType:  types.ActionMessage,
		Content:     "Hi Dana",
	}
}

func TestDryRunSucceeds(t *testing.T) {
	d := &DryRun{}
	out := d.Execute(context.Background(), testRequest())
	assert.True(t, out.Success)
	assert.False(t, out.TimedOut)
	assert.Empty(t, out.Error)
}

func TestDryRunConfiguredFailure(t *testing.T) {
	d := &DryRun{
		Fail: func(req ActionRequest) bool { return req.ActionType == types.ActionMessage },
	}
	out := d.Execute(context.Background(), testRequest())
	assert.False(t, out.Success)
	assert.False(t, out.TimedOut)
	assert.NotEmpty(t, out.Error)
}

func TestDryRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &DryRun{Latency: time.Minute}
	out := d.Execute(ctx, testRequest())
	assert.False(t, out.Success)
	assert.True(t, out.TimedOut)
}

func TestWithTimeoutFastDispatch(t *testing.T) {
	exec := WithTimeout(&DryRun{}, time.Second)
	out := exec.Execute(context.Background(), testRequest())
	assert.True(t, out.Success)
	assert.False(t, out.TimedOut)
}

func TestWithTimeoutSlowDispatch(t *testing.T) {
	exec := WithTimeout(&DryRun{Latency: time.Minute}, 10*time.Millisecond)
	out := exec.Execute(context.Background(), testRequest())
	assert.False(t, out.Success)
	assert.True(t, out.TimedOut)
	assert.Contains(t, out.Error, "timed out")
}

func TestWithTimeoutPropagatesFailure(t *testing.T) {
	inner := Func(func(context.Context, ActionRequest) Outcome {
		return Outcome{Error: "blocked by channel"}
	})
	out := WithTimeout(inner, time.Second).Execute(context.Background(), testRequest())
	assert.False(t, out.Success)
	assert.False(t, out.TimedOut)
	assert.Equal(t, "blocked by channel", out.Error)
}
