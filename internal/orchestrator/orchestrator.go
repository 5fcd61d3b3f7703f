// Package orchestrator drives candidates through campaign pipelines. On each
// tick it evaluates every active campaign's eligible candidates, opens
// approval requests for gated stages, reserves rate-limit quota, dispatches
// actions through the configured executor, and advances or terminates
// candidate state.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/outreach-agent/internal/approval"
	"github.com/jonathan/outreach-agent/internal/audit"
	"github.com/jonathan/outreach-agent/internal/executor"
	"github.com/jonathan/outreach-agent/internal/pipeline"
	"github.com/jonathan/outreach-agent/internal/ratelimit"
	"github.com/jonathan/outreach-agent/internal/store"
	"github.com/jonathan/outreach-agent/internal/types"
)

const (
	defaultTickInterval = 30 * time.Second
	defaultWorkers      = 8
	defaultRetryBackoff = 15 * time.Minute
)

// Engine coordinates stores, the rate limiter, the approval queue, and the
// executor into the pipeline state machine.
type Engine struct {
	store    store.Store
	limiter  *ratelimit.Limiter
	queue    *approval.Queue
	recorder *audit.Recorder
	exec     executor.Executor
	log      *zap.Logger

	now          func() time.Time
	tickInterval time.Duration
	workers      int
	retryBackoff time.Duration

	candidates keyedMutex

	cron     *cron.Cron
	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTickInterval sets how often the engine scans for eligible candidates.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) { e.tickInterval = d }
}

// WithWorkers bounds per-campaign candidate concurrency within a tick.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithRetryBackoff sets how long a candidate waits after a failed dispatch
// before the stage is retried.
func WithRetryBackoff(d time.Duration) Option {
	return func(e *Engine) { e.retryBackoff = d }
}

// WithLimiter replaces the engine's rate limiter, mainly for tests that need
// a seeded jitter source.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(e *Engine) { e.limiter = l }
}

// New creates an engine over the given store and executor.
func New(st store.Store, exec executor.Executor, log *zap.Logger, opts ...Option) *Engine {
	recorder := audit.NewRecorder(st, audit.NewZapSink(log))
	e := &Engine{
		store:        st,
		limiter:      ratelimit.New(),
		queue:        approval.NewQueue(st, recorder),
		recorder:     recorder,
		exec:         exec,
		log:          log,
		now:          time.Now,
		tickInterval: defaultTickInterval,
		workers:      defaultWorkers,
		retryBackoff: defaultRetryBackoff,
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Queue exposes the engine's approval queue to the API layer so that
// reviewer decisions and orchestration share one audit trail.
func (e *Engine) Queue() *approval.Queue {
	return e.queue
}

// Limiter exposes admission state for read-only inspection.
func (e *Engine) Limiter() *ratelimit.Limiter {
	return e.limiter
}

// Tick evaluates every active campaign once. Campaign failures are logged
// and do not stop the remaining campaigns from being processed.
func (e *Engine) Tick(ctx context.Context) error {
	campaigns, err := e.store.ListCampaigns(ctx, types.CampaignActive)
	if err != nil {
		return fmt.Errorf("failed to list active campaigns: %w", err)
	}
	for i := range campaigns {
		c := campaigns[i]
		if err := e.processCampaign(ctx, &c); err != nil {
			e.log.Error("campaign tick failed",
				zap.String("campaign_id", c.ID.String()),
				zap.Error(err))
		}
	}
	return nil
}

func (e *Engine) processCampaign(ctx context.Context, campaign *types.Campaign) error {
	candidates, err := e.store.ListActiveCandidates(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("failed to list candidates: %w", err)
	}

	defs := newDefinitionCache(e.store, campaign.ID)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range candidates {
		state := candidates[i]
		g.Go(func() error {
			if err := e.processCandidate(ctx, campaign, state.CandidateID, defs); err != nil {
				e.log.Warn("candidate evaluation failed",
					zap.String("campaign_id", campaign.ID.String()),
					zap.String("candidate_id", state.CandidateID.String()),
					zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

// processCandidate evaluates one candidate's current stage. It is safe to
// call concurrently with ticks: evaluation of a given (candidate, campaign)
// pair is serialized by a keyed mutex and state is re-read under the lock.
func (e *Engine) processCandidate(ctx context.Context, campaign *types.Campaign, candidateID uuid.UUID, defs *definitionCache) error {
	unlock := e.candidates.lock(candidateID, campaign.ID)
	defer unlock()

	state, err := e.store.GetCandidateState(ctx, candidateID, campaign.ID)
	if err != nil {
		return err
	}

	now := e.now()
	if !state.Eligible(now) {
		return nil
	}

	def, err := defs.get(ctx, state.PipelineVersion)
	if err != nil {
		return err
	}
	stage, err := def.StageAt(state.StageIndex)
	if err != nil {
		return err
	}

	switch state.ActionStatus {
	case types.ActionAwaitingApproval:
		return e.resumeFromApproval(ctx, campaign, state, def, stage, now)
	case types.ActionDispatching:
		// The last dispatch never resolved, so the action may or may not have
		// gone out. Retrying blind risks sending it twice; the candidate holds
		// here until an operator resolves it with a reset.
		return nil
	default:
		return e.evaluateStage(ctx, campaign, state, def, stage, now)
	}
}

func (e *Engine) evaluateStage(ctx context.Context, campaign *types.Campaign, state *types.CandidateState, def *pipeline.Definition, stage types.StageTemplate, now time.Time) error {
	switch stage.ActionType {
	case types.ActionWait:
		// The stage's delay was applied when it became current; once eligible
		// there is nothing to dispatch.
		if _, err := e.recorder.Success(ctx, state.CandidateID, campaign.ID, types.ActionWait, map[string]any{
			"event":       "wait_completed",
			"stage_index": state.StageIndex,
		}); err != nil {
			return err
		}
		return e.advance(ctx, state, def, now)

	case types.ActionWithdraw:
		return e.dispatchWithdraw(ctx, campaign, state, now)

	default:
		if stage.RequiresApproval {
			// Approval requests for throttled campaigns wait too, so a
			// reviewer never approves something that cannot go out soon.
			if decision := e.limiter.CanDispatch(campaign.ID, campaign.RateLimits, stage.ActionType, now); !decision.Allowed {
				return e.deferCandidate(ctx, state, decision, now)
			}
			return e.openApproval(ctx, campaign, state, stage, def, now)
		}
		return e.dispatch(ctx, campaign, state, def, stage, nil, now)
	}
}

func (e *Engine) openApproval(ctx context.Context, campaign *types.Campaign, state *types.CandidateState, stage types.StageTemplate, def *pipeline.Definition, now time.Time) error {
	content := ""
	if stage.MessageTemplateID != nil {
		content = "template:" + stage.MessageTemplateID.String()
	}
	reviewContext := fmt.Sprintf("stage %d/%d (%s)", state.StageIndex+1, def.Len(), stage.Name)

	_, err := e.queue.Open(ctx, state.CandidateID, campaign.ID, state.StageIndex, stage.ActionType, content, reviewContext)
	if err != nil && !errors.Is(err, store.ErrConflict) {
		return err
	}
	state.ActionStatus = types.ActionAwaitingApproval
	state.UpdatedAt = now
	return e.store.SaveCandidateState(ctx, state)
}

func (e *Engine) resumeFromApproval(ctx context.Context, campaign *types.Campaign, state *types.CandidateState, def *pipeline.Definition, stage types.StageTemplate, now time.Time) error {
	req, err := e.store.LatestApproval(ctx, state.CandidateID, campaign.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// No request on record; reopen.
			state.ActionStatus = types.ActionIdle
			return e.evaluateStage(ctx, campaign, state, def, stage, now)
		}
		return err
	}

	switch req.Status {
	case types.ApprovalPending:
		return nil
	case types.ApprovalApproved:
		return e.dispatch(ctx, campaign, state, def, stage, req, now)
	case types.ApprovalRejected:
		return e.applyRejectionPolicy(ctx, campaign, state, def, stage, now)
	default:
		// sent or failed: a previous run finished the transition but crashed
		// before saving candidate state. Reset and re-evaluate next tick.
		state.ActionStatus = types.ActionIdle
		state.UpdatedAt = now
		return e.store.SaveCandidateState(ctx, state)
	}
}

func (e *Engine) dispatch(ctx context.Context, campaign *types.Campaign, state *types.CandidateState, def *pipeline.Definition, stage types.StageTemplate, req *types.ApprovalRequest, now time.Time) error {
	decision := e.limiter.Reserve(campaign.ID, campaign.RateLimits, stage.ActionType, now)
	if !decision.Allowed {
		return e.deferCandidate(ctx, state, decision, now)
	}

	state.ActionStatus = types.ActionDispatching
	state.UpdatedAt = now
	if err := e.store.SaveCandidateState(ctx, state); err != nil {
		e.limiter.Release(campaign.ID, stage.ActionType, now)
		return err
	}

	content := ""
	if req != nil {
		content = req.ProposedContent
	} else if stage.MessageTemplateID != nil {
		content = "template:" + stage.MessageTemplateID.String()
	}
	outcome := e.exec.Execute(ctx, executor.ActionRequest{
		CandidateID: state.CandidateID,
		CampaignID:  campaign.ID,
		StageIndex:  state.StageIndex,
		ActionType:  stage.ActionType,
		Content:     content,
	})

	if outcome.Success {
		if req != nil {
			if _, err := e.queue.MarkSent(ctx, req.ID); err != nil {
				return err
			}
		} else {
			if _, err := e.recorder.Success(ctx, state.CandidateID, campaign.ID, stage.ActionType, map[string]any{
				"event":       "dispatched",
				"stage_index": state.StageIndex,
				"duration_ms": outcome.Duration.Milliseconds(),
			}); err != nil {
				return err
			}
		}
		return e.advance(ctx, state, def, now)
	}

	if req != nil {
		// A resolved request, whatever the dispatch outcome; a retry of the
		// stage opens a fresh one.
		if _, err := e.queue.MarkFailed(ctx, req.ID, outcome.Error); err != nil {
			return err
		}
	}

	if outcome.TimedOut {
		// Outcome unknown: the action may have gone out. The reserved quota
		// stays spent and the candidate remains in dispatching until an
		// operator resolves it with a reset.
		if _, err := e.recorder.Failure(ctx, state.CandidateID, campaign.ID, stage.ActionType, outcome.Error, map[string]any{
			"event":       "dispatch_timed_out",
			"stage_index": state.StageIndex,
		}); err != nil {
			return err
		}
		e.log.Warn("dispatch outcome unknown, holding candidate for reconciliation",
			zap.String("campaign_id", campaign.ID.String()),
			zap.String("candidate_id", state.CandidateID.String()),
			zap.Int("stage_index", state.StageIndex))
		return nil
	}

	// A definite failure: the reserved quota was never spent.
	e.limiter.Release(campaign.ID, stage.ActionType, now)
	if req == nil {
		if _, err := e.recorder.Failure(ctx, state.CandidateID, campaign.ID, stage.ActionType, outcome.Error, map[string]any{
			"event":       "dispatch_failed",
			"stage_index": state.StageIndex,
		}); err != nil {
			return err
		}
	}
	return e.recordStageFailure(ctx, campaign, state, now)
}

// dispatchWithdraw runs a withdraw stage. The candidate terminates as
// withdrawn regardless of the dispatch outcome; withdraw stages never gate
// on approval and never count against connection or message quotas.
func (e *Engine) dispatchWithdraw(ctx context.Context, campaign *types.Campaign, state *types.CandidateState, now time.Time) error {
	outcome := e.exec.Execute(ctx, executor.ActionRequest{
		CandidateID: state.CandidateID,
		CampaignID:  campaign.ID,
		StageIndex:  state.StageIndex,
		ActionType:  types.ActionWithdraw,
	})
	if outcome.Success {
		if _, err := e.recorder.Success(ctx, state.CandidateID, campaign.ID, types.ActionWithdraw, map[string]any{
			"event":       "dispatched",
			"stage_index": state.StageIndex,
		}); err != nil {
			return err
		}
	} else {
		if _, err := e.recorder.Failure(ctx, state.CandidateID, campaign.ID, types.ActionWithdraw, outcome.Error, map[string]any{
			"event":       "dispatch_failed",
			"stage_index": state.StageIndex,
		}); err != nil {
			return err
		}
	}
	state.Status = types.CandidateWithdrawn
	state.ActionStatus = types.ActionDone
	state.LastStageCompletedAt = &now
	state.UpdatedAt = now
	return e.store.SaveCandidateState(ctx, state)
}

func (e *Engine) applyRejectionPolicy(ctx context.Context, campaign *types.Campaign, state *types.CandidateState, def *pipeline.Definition, stage types.StageTemplate, now time.Time) error {
	policy := campaign.EffectiveRejectionPolicy()
	e.log.Info("applying rejection policy",
		zap.String("campaign_id", campaign.ID.String()),
		zap.String("candidate_id", state.CandidateID.String()),
		zap.String("policy", string(policy)),
		zap.Int("stage_index", state.StageIndex))

	switch policy {
	case types.RejectionRetryLater:
		state.RetryCount++
		if state.RetryCount > campaign.EffectiveMaxStageRetries() {
			return e.failCandidate(ctx, state, now)
		}
		delay := stage.Delay()
		if delay == 0 {
			delay = e.retryBackoff
		}
		state.ActionStatus = types.ActionIdle
		state.StageEligibleAt = now.Add(delay)
		state.UpdatedAt = now
		return e.store.SaveCandidateState(ctx, state)
	case types.RejectionFailCandidate:
		return e.failCandidate(ctx, state, now)
	default: // skip_stage
		return e.advance(ctx, state, def, now)
	}
}

func (e *Engine) recordStageFailure(ctx context.Context, campaign *types.Campaign, state *types.CandidateState, now time.Time) error {
	state.RetryCount++
	if state.RetryCount > campaign.EffectiveMaxStageRetries() {
		return e.failCandidate(ctx, state, now)
	}
	state.ActionStatus = types.ActionIdle
	state.StageEligibleAt = now.Add(e.retryBackoff)
	state.UpdatedAt = now
	return e.store.SaveCandidateState(ctx, state)
}

func (e *Engine) failCandidate(ctx context.Context, state *types.CandidateState, now time.Time) error {
	state.Status = types.CandidateFailed
	state.ActionStatus = types.ActionDone
	state.UpdatedAt = now
	return e.store.SaveCandidateState(ctx, state)
}

// deferCandidate pushes eligibility to the limiter's retry hint so denied
// candidates are not re-checked on every tick.
func (e *Engine) deferCandidate(ctx context.Context, state *types.CandidateState, decision ratelimit.Decision, now time.Time) error {
	if !decision.RetryAt.IsZero() && decision.RetryAt.After(state.StageEligibleAt) {
		state.StageEligibleAt = decision.RetryAt
		state.UpdatedAt = now
		return e.store.SaveCandidateState(ctx, state)
	}
	return nil
}

// advance moves the candidate to the next stage, or completes the pipeline
// when the current stage is the last one. The per-stage retry budget resets.
func (e *Engine) advance(ctx context.Context, state *types.CandidateState, def *pipeline.Definition, now time.Time) error {
	state.RetryCount = 0
	state.LastStageCompletedAt = &now
	next, ok := def.NextIndex(state.StageIndex)
	if !ok {
		state.Status = types.CandidateCompleted
		state.ActionStatus = types.ActionDone
	} else {
		stage, err := def.StageAt(next)
		if err != nil {
			return err
		}
		state.StageIndex = next
		state.StageEligibleAt = now.Add(stage.Delay())
		state.ActionStatus = types.ActionIdle
	}
	state.UpdatedAt = now
	return e.store.SaveCandidateState(ctx, state)
}

// definitionCache memoizes pipeline versions for one campaign within a tick.
type definitionCache struct {
	store      store.PipelineStore
	campaignID uuid.UUID

	mu   sync.Mutex
	defs map[int]*pipeline.Definition
}

func newDefinitionCache(st store.PipelineStore, campaignID uuid.UUID) *definitionCache {
	return &definitionCache{store: st, campaignID: campaignID, defs: make(map[int]*pipeline.Definition)}
}

func (c *definitionCache) get(ctx context.Context, version int) (*pipeline.Definition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if def, ok := c.defs[version]; ok {
		return def, nil
	}
	v, err := c.store.GetPipelineVersion(ctx, c.campaignID, version)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline version %d: %w", version, err)
	}
	def, err := pipeline.NewDefinition(*v)
	if err != nil {
		return nil, err
	}
	c.defs[version] = def
	return def, nil
}

// keyedMutex serializes work per (candidate, campaign) pair. Entries are
// reference counted and dropped once the last holder unlocks, so the map does
// not grow with every candidate ever evaluated.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[pairKey]*pairLock
}

type pairKey struct {
	candidateID uuid.UUID
	campaignID  uuid.UUID
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(candidateID, campaignID uuid.UUID) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[pairKey]*pairLock)
	}
	key := pairKey{candidateID, campaignID}
	l, ok := k.locks[key]
	if !ok {
		l = &pairLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
