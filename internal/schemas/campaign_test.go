package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/outreach-agent/internal/types"
)

const validCampaignDoc = `{
	"title": "Senior Backend Engineer",
	"on_rejection": "retry_later",
	"job_spec": {
		"required_skills": ["go", "postgres"],
		"weights": {"role_fit": 50, "company_context": 20, "trajectory_stability": 15, "education": 10, "profile_quality": 5}
	},
	"rate_limits": {
		"daily_connection_requests": 20,
		"daily_messages": 50,
		"timezone": "America/New_York"
	},
	"stages": [
		{"position": 0, "name": "connect", "action_type": "connection_request"},
		{"position": 1, "name": "intro", "action_type": "message", "delay_days": 2, "requires_approval": true}
	]
}`

func TestParseCampaignDocument_Valid(t *testing.T) {
	doc, err := ParseCampaignDocument([]byte(validCampaignDoc))
	require.NoError(t, err)

	assert.Equal(t, "Senior Backend Engineer", doc.Title)
	assert.Equal(t, types.RejectionRetryLater, doc.OnRejection)
	require.Len(t, doc.Stages, 2)
	assert.Equal(t, types.ActionConnectionRequest, doc.Stages[0].ActionType)
	assert.True(t, doc.Stages[1].RequiresApproval)
	assert.Equal(t, "America/New_York", doc.RateLimits.Timezone)
}

func TestParseCampaignDocument_MissingStages(t *testing.T) {
	_, err := ParseCampaignDocument([]byte(`{"title": "x"}`))
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Greater(t, len(validationErr.Errors), 0)
}

func TestParseCampaignDocument_UnknownActionType(t *testing.T) {
	doc := `{
		"title": "x",
		"stages": [{"position": 0, "name": "s", "action_type": "carrier_pigeon"}]
	}`
	err := ValidateCampaignDocument([]byte(doc))
	assert.Error(t, err)
}

func TestParseCampaignDocument_UnknownField(t *testing.T) {
	doc := `{
		"title": "x",
		"surprise": true,
		"stages": [{"position": 0, "name": "s", "action_type": "wait"}]
	}`
	err := ValidateCampaignDocument([]byte(doc))
	assert.Error(t, err)
}
