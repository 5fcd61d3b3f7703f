package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/outreach-agent/internal/executor"
	"github.com/jonathan/outreach-agent/internal/orchestrator"
	"github.com/jonathan/outreach-agent/internal/store"
	"github.com/jonathan/outreach-agent/internal/types"
)

type testServer struct {
	srv   *Server
	store *store.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	m := store.NewMemory()
	engine := orchestrator.New(m, &executor.DryRun{}, zap.NewNop())
	return &testServer{
		srv:   New(Config{Addr: ":0"}, m, engine, zap.NewNop()),
		store: m,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

const campaignDoc = `{
	"title": "Staff Backend Engineer",
	"role_description": "Backend hiring for the platform team",
	"job_spec": {
		"required_skills": ["go", "postgres"],
		"min_years_experience": 5
	},
	"rate_limits": {
		"daily_connection_requests": 25,
		"daily_messages": 50,
		"weekly_connection_cap": 120,
		"min_delay_seconds": 30,
		"max_delay_seconds": 90,
		"working_hours_start": 9,
		"working_hours_end": 18,
		"timezone": "UTC",
		"pause_weekends": true
	},
	"stages": [
		{"position": 0, "name": "Connect", "action_type": "connection_request", "delay_days": 0, "requires_approval": false},
		{"position": 1, "name": "Intro message", "action_type": "message", "delay_days": 2, "requires_approval": true}
	]
}`

func createTestCampaign(t *testing.T, ts *testServer) *types.Campaign {
	t.Helper()
	req := httptest.NewRequest("POST", "/campaigns", bytes.NewBufferString(campaignDoc))
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeBody[campaignResponse](t, rec)
	require.NotNil(t, resp.Campaign)
	return resp.Campaign
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
}

func TestCreateCampaign(t *testing.T) {
	ts := newTestServer(t)
	campaign := createTestCampaign(t, ts)

	assert.Equal(t, "Staff Backend Engineer", campaign.Title)
	assert.Equal(t, types.CampaignDraft, campaign.Status)
	assert.Equal(t, 25, campaign.RateLimits.DailyConnectionRequests)

	version, err := ts.store.LatestPipelineVersion(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, version.Version)
	assert.Len(t, version.Stages, 2)
}

func TestCreateCampaignRejectsUnknownActionType(t *testing.T) {
	ts := newTestServer(t)
	doc := `{
		"title": "Bad campaign",
		"job_spec": {},
		"rate_limits": {"daily_messages": 10, "working_hours_start": 9, "working_hours_end": 18},
		"stages": [{"position": 0, "name": "Fax", "action_type": "fax", "delay_days": 0, "requires_approval": false}]
	}`
	req := httptest.NewRequest("POST", "/campaigns", bytes.NewBufferString(doc))
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCampaignAppliesDefaultRateLimits(t *testing.T) {
	ts := newTestServer(t)
	doc := `{
		"title": "Defaults campaign",
		"job_spec": {},
		"rate_limits": {},
		"stages": [{"position": 0, "name": "Connect", "action_type": "connection_request", "delay_days": 0, "requires_approval": false}]
	}`
	req := httptest.NewRequest("POST", "/campaigns", bytes.NewBufferString(doc))
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeBody[campaignResponse](t, rec)
	assert.Equal(t, types.DefaultRateLimitConfig(), resp.Campaign.RateLimits)
}

func TestGetCampaignNotFound(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, "GET", "/campaigns/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCampaignInvalidID(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, "GET", "/campaigns/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCampaignLifecycleTransitions(t *testing.T) {
	ts := newTestServer(t)
	campaign := createTestCampaign(t, ts)
	base := "/campaigns/" + campaign.ID.String()

	// Pausing a draft is not allowed.
	rec := ts.do(t, "POST", base+"/pause", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, "POST", base+"/activate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[campaignResponse](t, rec)
	assert.Equal(t, types.CampaignActive, resp.Campaign.Status)

	rec = ts.do(t, "POST", base+"/pause", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Reactivating a paused campaign is allowed.
	rec = ts.do(t, "POST", base+"/activate", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdatePipelineCreatesNewVersion(t *testing.T) {
	ts := newTestServer(t)
	campaign := createTestCampaign(t, ts)
	base := "/campaigns/" + campaign.ID.String()

	update := updatePipelineRequest{Stages: []types.StageTemplate{
		{Position: 0, Name: "Profile view", ActionType: types.ActionProfileView},
		{Position: 1, Name: "Connect", ActionType: types.ActionConnectionRequest, DelayDays: 1},
	}}
	rec := ts.do(t, "POST", base+"/pipeline", update)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	version := decodeBody[types.PipelineVersion](t, rec)
	assert.Equal(t, 2, version.Version)

	// Both versions remain readable.
	rec = ts.do(t, "GET", base+"/pipeline?version=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v1 := decodeBody[types.PipelineVersion](t, rec)
	assert.Equal(t, "Connect", v1.Stages[0].Name)

	rec = ts.do(t, "GET", base+"/pipeline", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	latest := decodeBody[types.PipelineVersion](t, rec)
	assert.Equal(t, 2, latest.Version)
}

func TestUpdatePipelineRejectsGappedPositions(t *testing.T) {
	ts := newTestServer(t)
	campaign := createTestCampaign(t, ts)

	update := updatePipelineRequest{Stages: []types.StageTemplate{
		{Position: 0, Name: "Connect", ActionType: types.ActionConnectionRequest},
		{Position: 2, Name: "Message", ActionType: types.ActionMessage},
	}}
	rec := ts.do(t, "POST", "/campaigns/"+campaign.ID.String()+"/pipeline", update)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func strongProfile(candidateID uuid.UUID) *types.CandidateProfile {
	return &types.CandidateProfile{
		CandidateID:     candidateID,
		Name:            "Dana Smith",
		CurrentTitle:    "Senior Backend Engineer",
		Skills:          []string{"go", "postgres", "kubernetes"},
		YearsExperience: 8,
		HasPhoto:        true,
		HasSummary:      true,
		ConnectionCount: 500,
	}
}

func TestEnrollCandidate(t *testing.T) {
	ts := newTestServer(t)
	campaign := createTestCampaign(t, ts)
	candidateID := uuid.New()

	rec := ts.do(t, "POST", "/campaigns/"+campaign.ID.String()+"/candidates", enrollRequest{
		CandidateID: candidateID,
		Profile:     strongProfile(candidateID),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	state := decodeBody[types.CandidateState](t, rec)
	assert.Equal(t, candidateID, state.CandidateID)
	assert.Equal(t, 0, state.StageIndex)
	assert.Equal(t, types.CandidateActive, state.Status)
	require.NotNil(t, state.Score)
	assert.Positive(t, state.Score.Total)

	// Enrolling the same candidate twice conflicts.
	rec = ts.do(t, "POST", "/campaigns/"+campaign.ID.String()+"/candidates", enrollRequest{
		CandidateID: candidateID,
		Profile:     strongProfile(candidateID),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEnrollDisqualifiedCandidateReturns422(t *testing.T) {
	ts := newTestServer(t)
	m := ts.store
	now := time.Now().UTC()
	campaign := &types.Campaign{
		ID:     uuid.New(),
		Title:  "Competitor-sensitive campaign",
		Status: types.CampaignDraft,
		JobSpec: types.JobSpec{
			DisqualifyCompanies: []string{"Rival Corp"},
		},
		RateLimits: types.DefaultRateLimitConfig(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, m.CreateCampaign(context.Background(), campaign))
	require.NoError(t, m.SavePipelineVersion(context.Background(), &types.PipelineVersion{
		CampaignID: campaign.ID,
		Version:    1,
		Stages:     []types.StageTemplate{{Position: 0, Name: "Connect", ActionType: types.ActionConnectionRequest}},
		CreatedAt:  now,
	}))

	candidateID := uuid.New()
	profile := strongProfile(candidateID)
	profile.CurrentCompany = "Rival Corp"

	rec := ts.do(t, "POST", "/campaigns/"+campaign.ID.String()+"/candidates", enrollRequest{
		CandidateID: candidateID,
		Profile:     profile,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// No state was left behind.
	rec = ts.do(t, "GET", fmt.Sprintf("/campaigns/%s/candidates/%s", campaign.ID, candidateID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWithdrawCandidate(t *testing.T) {
	ts := newTestServer(t)
	campaign := createTestCampaign(t, ts)
	candidateID := uuid.New()

	rec := ts.do(t, "POST", "/campaigns/"+campaign.ID.String()+"/candidates", enrollRequest{
		CandidateID: candidateID,
		Profile:     strongProfile(candidateID),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, "POST", fmt.Sprintf("/campaigns/%s/candidates/%s/withdraw", campaign.ID, candidateID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeBody[types.CandidateState](t, rec)
	assert.Equal(t, types.CandidateWithdrawn, state.Status)

	// Withdrawal is final.
	rec = ts.do(t, "POST", fmt.Sprintf("/campaigns/%s/candidates/%s/withdraw", campaign.ID, candidateID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestResetCandidate(t *testing.T) {
	ts := newTestServer(t)
	campaign := createTestCampaign(t, ts)
	candidateID := uuid.New()

	rec := ts.do(t, "POST", "/campaigns/"+campaign.ID.String()+"/candidates", enrollRequest{
		CandidateID: candidateID,
		Profile:     strongProfile(candidateID),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Idle candidates are not resettable.
	rec = ts.do(t, "POST", fmt.Sprintf("/campaigns/%s/candidates/%s/reset", campaign.ID, candidateID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	state, err := ts.store.GetCandidateState(context.Background(), candidateID, campaign.ID)
	require.NoError(t, err)
	state.ActionStatus = types.ActionDispatching
	require.NoError(t, ts.store.SaveCandidateState(context.Background(), state))

	rec = ts.do(t, "POST", fmt.Sprintf("/campaigns/%s/candidates/%s/reset", campaign.ID, candidateID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[types.CandidateState](t, rec)
	assert.Equal(t, types.ActionIdle, updated.ActionStatus)
}

func TestListCandidates(t *testing.T) {
	ts := newTestServer(t)
	campaign := createTestCampaign(t, ts)

	for range 3 {
		candidateID := uuid.New()
		rec := ts.do(t, "POST", "/campaigns/"+campaign.ID.String()+"/candidates", enrollRequest{
			CandidateID: candidateID,
			Profile:     strongProfile(candidateID),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := ts.do(t, "GET", "/campaigns/"+campaign.ID.String()+"/candidates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string][]types.CandidateState](t, rec)
	assert.Len(t, body["candidates"], 3)
}

func TestApprovalDecisionFlow(t *testing.T) {
	ts := newTestServer(t)
	campaign := createTestCampaign(t, ts)
	candidateID := uuid.New()

	req := &types.ApprovalRequest{
		ID:           uuid.New(),
		CandidateID:  candidateID,
		CampaignID:   campaign.ID,
		StageIndex:   1,
		ApprovalType: types.ActionMessage,
		Status:       types.ApprovalPending,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, ts.store.CreateApproval(context.Background(), req))

	rec := ts.do(t, "GET", "/campaigns/"+campaign.ID.String()+"/approvals?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string][]types.ApprovalRequest](t, rec)
	require.Len(t, body["approvals"], 1)

	rec = ts.do(t, "POST", "/approvals/"+req.ID.String()+"/decide", decisionRequest{
		Decision:  types.DecisionApproved,
		DecidedBy: "recruiter@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[types.ApprovalRequest](t, rec)
	assert.Equal(t, types.ApprovalApproved, updated.Status)
	assert.Equal(t, "recruiter@example.com", updated.DecidedBy)

	// Second decision loses.
	rec = ts.do(t, "POST", "/approvals/"+req.ID.String()+"/decide", decisionRequest{
		Decision:  types.DecisionRejected,
		DecidedBy: "other@example.com",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, "GET", "/campaigns/"+campaign.ID.String()+"/approvals/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody[types.ApprovalStats](t, rec)
	assert.Equal(t, 1, stats.Approved)
	assert.Equal(t, 0, stats.Pending)
}

func TestListActions(t *testing.T) {
	ts := newTestServer(t)
	campaign := createTestCampaign(t, ts)
	candidateID := uuid.New()

	rec := ts.do(t, "POST", "/campaigns/"+campaign.ID.String()+"/candidates", enrollRequest{
		CandidateID: candidateID,
		Profile:     strongProfile(candidateID),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, "GET", "/campaigns/"+campaign.ID.String()+"/actions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string][]types.AgentAction](t, rec)
	require.NotEmpty(t, body["actions"])
	assert.Equal(t, candidateID, body["actions"][0].CandidateID)

	rec = ts.do(t, "GET", "/campaigns/"+campaign.ID.String()+"/actions?since=not-a-time", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, "GET", "/campaigns/"+campaign.ID.String()+"/actions?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScoreEndpoint(t *testing.T) {
	ts := newTestServer(t)
	candidateID := uuid.New()

	rec := ts.do(t, "POST", "/score", scoreRequest{
		Profile: strongProfile(candidateID),
		JobSpec: &types.JobSpec{RequiredSkills: []string{"go", "postgres"}, MinYearsExperience: 5},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	breakdown := decodeBody[types.ScoreBreakdown](t, rec)
	assert.Positive(t, breakdown.Total)
	assert.False(t, breakdown.Disqualified)
}

func TestScoreAgainstCampaign(t *testing.T) {
	ts := newTestServer(t)
	campaign := createTestCampaign(t, ts)
	candidateID := uuid.New()

	rec := ts.do(t, "POST", "/campaigns/"+campaign.ID.String()+"/score", scoreRequest{
		Profile: strongProfile(candidateID),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	breakdown := decodeBody[types.ScoreBreakdown](t, rec)
	assert.Positive(t, breakdown.Total)
}
