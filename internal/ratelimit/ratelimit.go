// Package ratelimit enforces per-campaign dispatch caps and timing windows:
// daily connection/message caps, a rolling 7-day connection cap, working-hour
// and weekend gating, and randomized spacing between dispatches.
package ratelimit

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-agent/internal/types"
)

// Deny reasons reported in Decision.Reason.
const (
	ReasonDailyConnectionCap  = "daily connection request cap reached"
	ReasonDailyMessageCap     = "daily message cap reached"
	ReasonWeeklyConnectionCap = "weekly connection cap reached"
	ReasonOutsideWorkingHours = "outside configured working hours"
	ReasonWeekendPause        = "weekend dispatching is paused"
	ReasonMinSpacing          = "minimum spacing since last dispatch not elapsed"
)

const rollingWeek = 7 * 24 * time.Hour

// Decision is the outcome of a dispatch admission check. Denials are
// non-fatal: the orchestrator defers the candidate and retries on a later
// tick, at RetryAt when one is known.
type Decision struct {
	Allowed bool
	Reason  string
	RetryAt time.Time
}

// campaignCounters is the mutable per-campaign usage state. Daily counters
// are keyed by local calendar day and reset when the day rolls over; the
// weekly connection window is a true sliding 168h window of timestamps.
type campaignCounters struct {
	day             string
	dayConnections  int
	dayMessages     int
	weekConnections []time.Time
	lastDispatch    time.Time
	nextEligible    time.Time
}

// Limiter owns the usage counters for every campaign. All checks and
// increments happen under one lock so that check-and-increment is a single
// indivisible operation.
type Limiter struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*campaignCounters
	rng       *rand.Rand
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithRand injects the random source used for jitter; tests pass a seeded
// source for reproducible spacing.
func WithRand(rng *rand.Rand) Option {
	return func(l *Limiter) { l.rng = rng }
}

// New creates an empty Limiter.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		campaigns: make(map[uuid.UUID]*campaignCounters),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CanDispatch reports whether an action of the given type may be dispatched
// for the campaign right now, without consuming any quota.
func (l *Limiter) CanDispatch(campaignID uuid.UUID, cfg types.RateLimitConfig, action types.ActionType, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.check(l.counters(campaignID), cfg, action, now)
}

// Reserve atomically checks and consumes quota for one dispatch. This is the
// operation the orchestrator uses: two concurrent candidates can never both
// pass the check when only one slot remains. A reservation that turns out
// not to be used (executor failure) is refunded with Release.
func (l *Limiter) Reserve(campaignID uuid.UUID, cfg types.RateLimitConfig, action types.ActionType, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.counters(campaignID)
	decision := l.check(c, cfg, action, now)
	if !decision.Allowed {
		return decision
	}
	l.record(c, cfg, action, now)
	return decision
}

// Release refunds a reservation whose dispatch did not happen. Spacing state
// is left as-is: the attempt still touched the account.
func (l *Limiter) Release(campaignID uuid.UUID, action types.ActionType, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.counters(campaignID)
	if action.ConsumesConnectionQuota() {
		if c.dayConnections > 0 {
			c.dayConnections--
		}
		for i := len(c.weekConnections) - 1; i >= 0; i-- {
			if !c.weekConnections[i].After(now) {
				c.weekConnections = append(c.weekConnections[:i], c.weekConnections[i+1:]...)
				break
			}
		}
	}
	if action.ConsumesMessageQuota() && c.dayMessages > 0 {
		c.dayMessages--
	}
}

// RecordDispatch consumes quota for a dispatch that already happened, for
// callers that performed their own admission check.
func (l *Limiter) RecordDispatch(campaignID uuid.UUID, cfg types.RateLimitConfig, action types.ActionType, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record(l.counters(campaignID), cfg, action, now)
}

// NextEligibleAt returns the earliest instant the campaign may dispatch
// again, honoring the jitter drawn after its last dispatch.
func (l *Limiter) NextEligibleAt(campaignID uuid.UUID) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counters(campaignID).nextEligible
}

// Reload reseeds a campaign's counters from its recent successful actions,
// typically on process restart so caps survive a crash. Actions older than
// the rolling week are ignored.
func (l *Limiter) Reload(campaignID uuid.UUID, cfg types.RateLimitConfig, actions []types.AgentAction, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	loc := cfg.Location()
	c := &campaignCounters{day: dayKey(now, loc)}
	for _, action := range actions {
		if !action.Success {
			continue
		}
		age := now.Sub(action.CreatedAt)
		if age > rollingWeek || age < 0 {
			continue
		}
		if action.ActionType.ConsumesConnectionQuota() {
			c.weekConnections = append(c.weekConnections, action.CreatedAt)
		}
		if dayKey(action.CreatedAt, loc) == c.day {
			if action.ActionType.ConsumesConnectionQuota() {
				c.dayConnections++
			}
			if action.ActionType.ConsumesMessageQuota() {
				c.dayMessages++
			}
		}
		if action.CreatedAt.After(c.lastDispatch) {
			c.lastDispatch = action.CreatedAt
			c.nextEligible = action.CreatedAt.Add(time.Duration(cfg.MinDelaySeconds) * time.Second)
		}
	}
	l.campaigns[campaignID] = c
}

// ResetDay clears the campaign's daily counters. The scheduler invokes this
// at local midnight per campaign timezone; the check path also rolls the day
// lazily so a missed invocation cannot leak yesterday's counts.
func (l *Limiter) ResetDay(campaignID uuid.UUID, cfg types.RateLimitConfig, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.counters(campaignID)
	c.day = dayKey(now, cfg.Location())
	c.dayConnections = 0
	c.dayMessages = 0
}

// counters returns the campaign's state, creating it on first touch.
// Callers must hold l.mu.
func (l *Limiter) counters(campaignID uuid.UUID) *campaignCounters {
	c, ok := l.campaigns[campaignID]
	if !ok {
		c = &campaignCounters{}
		l.campaigns[campaignID] = c
	}
	return c
}

// check evaluates every deny condition. Callers must hold l.mu.
func (l *Limiter) check(c *campaignCounters, cfg types.RateLimitConfig, action types.ActionType, now time.Time) Decision {
	loc := cfg.Location()
	local := now.In(loc)

	l.rollDay(c, local)
	l.pruneWeek(c, now)

	if cfg.PauseWeekends {
		if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return Decision{Reason: ReasonWeekendPause, RetryAt: nextWeekdayStart(local, cfg)}
		}
	}

	if cfg.WorkingHoursEnd > 0 {
		hour := local.Hour()
		if hour < cfg.WorkingHoursStart || hour >= cfg.WorkingHoursEnd {
			return Decision{Reason: ReasonOutsideWorkingHours, RetryAt: nextWorkingHourStart(local, cfg)}
		}
	}

	if action.ConsumesConnectionQuota() {
		if cfg.DailyConnectionRequests > 0 && c.dayConnections >= cfg.DailyConnectionRequests {
			return Decision{Reason: ReasonDailyConnectionCap, RetryAt: nextLocalMidnight(local)}
		}
		if cfg.WeeklyConnectionCap > 0 && len(c.weekConnections) >= cfg.WeeklyConnectionCap {
			return Decision{Reason: ReasonWeeklyConnectionCap, RetryAt: c.weekConnections[0].Add(rollingWeek)}
		}
	}

	if action.ConsumesMessageQuota() {
		if cfg.DailyMessages > 0 && c.dayMessages >= cfg.DailyMessages {
			return Decision{Reason: ReasonDailyMessageCap, RetryAt: nextLocalMidnight(local)}
		}
	}

	if !c.lastDispatch.IsZero() && now.Before(c.nextEligible) {
		return Decision{Reason: ReasonMinSpacing, RetryAt: c.nextEligible}
	}

	return Decision{Allowed: true}
}

// record consumes quota and draws the jitter that spaces the next dispatch.
// Callers must hold l.mu.
func (l *Limiter) record(c *campaignCounters, cfg types.RateLimitConfig, action types.ActionType, now time.Time) {
	l.rollDay(c, now.In(cfg.Location()))

	if action.ConsumesConnectionQuota() {
		c.dayConnections++
		c.weekConnections = append(c.weekConnections, now)
	}
	if action.ConsumesMessageQuota() {
		c.dayMessages++
	}
	c.lastDispatch = now
	c.nextEligible = now.Add(l.jitter(cfg))
}

// jitter draws a random spacing in [MinDelaySeconds, MaxDelaySeconds].
func (l *Limiter) jitter(cfg types.RateLimitConfig) time.Duration {
	minDelay := time.Duration(cfg.MinDelaySeconds) * time.Second
	maxDelay := time.Duration(cfg.MaxDelaySeconds) * time.Second
	if maxDelay <= minDelay {
		return minDelay
	}
	return minDelay + time.Duration(l.rng.Int63n(int64(maxDelay-minDelay)+1))
}

// rollDay resets daily counters when the local calendar day has changed.
func (l *Limiter) rollDay(c *campaignCounters, local time.Time) {
	key := fmt.Sprintf("%04d-%02d-%02d", local.Year(), local.Month(), local.Day())
	if c.day != key {
		c.day = key
		c.dayConnections = 0
		c.dayMessages = 0
	}
}

// pruneWeek drops weekly-window entries older than 168 hours.
func (l *Limiter) pruneWeek(c *campaignCounters, now time.Time) {
	cutoff := now.Add(-rollingWeek)
	i := 0
	for i < len(c.weekConnections) && !c.weekConnections[i].After(cutoff) {
		i++
	}
	if i > 0 {
		c.weekConnections = c.weekConnections[i:]
	}
}

func dayKey(t time.Time, loc *time.Location) string {
	local := t.In(loc)
	return fmt.Sprintf("%04d-%02d-%02d", local.Year(), local.Month(), local.Day())
}

// nextLocalMidnight returns the start of the next local day.
func nextLocalMidnight(local time.Time) time.Time {
	next := local.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, local.Location())
}

// nextWorkingHourStart returns the next instant working hours open.
func nextWorkingHourStart(local time.Time, cfg types.RateLimitConfig) time.Time {
	start := time.Date(local.Year(), local.Month(), local.Day(), cfg.WorkingHoursStart, 0, 0, 0, local.Location())
	if !local.Before(start) {
		start = start.AddDate(0, 0, 1)
	}
	if cfg.PauseWeekends {
		for wd := start.Weekday(); wd == time.Saturday || wd == time.Sunday; wd = start.Weekday() {
			start = start.AddDate(0, 0, 1)
		}
	}
	return start
}

// nextWeekdayStart returns the opening of working hours on the next weekday.
func nextWeekdayStart(local time.Time, cfg types.RateLimitConfig) time.Time {
	next := local.AddDate(0, 0, 1)
	for wd := next.Weekday(); wd == time.Saturday || wd == time.Sunday; wd = next.Weekday() {
		next = next.AddDate(0, 0, 1)
	}
	return time.Date(next.Year(), next.Month(), next.Day(), cfg.WorkingHoursStart, 0, 0, 0, local.Location())
}
