package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jonathan/outreach-agent/internal/types"
)

// Start reseeds the rate limiter from the audit trail, then launches the
// tick loop and the cron schedule. It returns once both are running.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.reloadLimiter(ctx); err != nil {
		return err
	}

	e.cron = cron.New()
	// Daily counters reset at local midnight. Campaigns span timezones, so an
	// hourly sweep lets each campaign roll over on its own calendar day.
	if _, err := e.cron.AddFunc("0 * * * *", e.resetDailyCounters); err != nil {
		return fmt.Errorf("failed to schedule daily counter reset: %w", err)
	}
	e.cron.Start()

	e.wg.Add(1)
	go e.run(ctx)

	e.log.Info("orchestrator started",
		zap.Duration("tick_interval", e.tickInterval),
		zap.Int("workers", e.workers))
	return nil
}

// RunOnce reseeds the rate limiter from the audit trail and performs a
// single scheduling pass. It backs the CLI's one-shot mode for cron-driven
// deployments that do not keep a long-lived process.
func (e *Engine) RunOnce(ctx context.Context) error {
	if err := e.reloadLimiter(ctx); err != nil {
		return err
	}
	return e.Tick(ctx)
}

// Stop halts the tick loop and cron schedule and waits for the in-flight
// tick to finish.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
	if e.cron != nil {
		e.cron.Stop()
	}
	e.wg.Wait()
	e.log.Info("orchestrator stopped")
}

func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := e.Tick(ctx); err != nil {
				e.log.Error("tick failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		}
	}
}

// reloadLimiter rebuilds every active campaign's in-memory dispatch counters
// from the last week of successful audit records, so restarts do not forget
// quota already spent.
func (e *Engine) reloadLimiter(ctx context.Context) error {
	campaigns, err := e.store.ListCampaigns(ctx, types.CampaignActive)
	if err != nil {
		return fmt.Errorf("failed to list campaigns for limiter reload: %w", err)
	}
	now := e.now()
	for i := range campaigns {
		c := campaigns[i]
		actions, err := e.store.ListActions(ctx, c.ID, now.Add(-7*24*time.Hour), 0)
		if err != nil {
			return fmt.Errorf("failed to load actions for campaign %s: %w", c.ID, err)
		}
		e.limiter.Reload(c.ID, c.RateLimits, actions, now)
		e.log.Info("rate limiter reloaded",
			zap.String("campaign_id", c.ID.String()),
			zap.Int("actions", len(actions)))
	}
	return nil
}

func (e *Engine) resetDailyCounters() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	campaigns, err := e.store.ListCampaigns(ctx, types.CampaignActive)
	if err != nil {
		e.log.Error("failed to list campaigns for counter reset", zap.Error(err))
		return
	}
	now := e.now()
	for i := range campaigns {
		e.limiter.ResetDay(campaigns[i].ID, campaigns[i].RateLimits, now)
	}
}
