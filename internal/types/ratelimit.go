package types

import (
	"fmt"
	"time"
)

// RateLimitConfig holds the per-campaign dispatch caps and timing windows.
// MinDelaySeconds/MaxDelaySeconds bound the random jitter inserted between
// any two dispatched actions; WorkingHoursStart/End bound the local hours
// (half-open, [start, end)) during which dispatching is allowed.
type RateLimitConfig struct {
	DailyConnectionRequests int    `json:"daily_connection_requests" validate:"gte=0"`
	DailyMessages           int    `json:"daily_messages" validate:"gte=0"`
	WeeklyConnectionCap     int    `json:"weekly_connection_cap" validate:"gte=0"`
	MinDelaySeconds         int    `json:"min_delay_seconds" validate:"gte=0"`
	MaxDelaySeconds         int    `json:"max_delay_seconds" validate:"gte=0"`
	WorkingHoursStart       int    `json:"working_hours_start" validate:"gte=0,lte=23"`
	WorkingHoursEnd         int    `json:"working_hours_end" validate:"gte=0,lte=24"`
	Timezone                string `json:"timezone,omitempty"`
	PauseWeekends           bool   `json:"pause_weekends"`
}

// DefaultRateLimitConfig returns conservative limits suitable for a new
// campaign: 20 connection requests and 50 messages daily, 100 connections
// weekly, 30-120s jitter, 09:00-18:00 UTC working hours, weekends paused.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		DailyConnectionRequests: 20,
		DailyMessages:           50,
		WeeklyConnectionCap:     100,
		MinDelaySeconds:         30,
		MaxDelaySeconds:         120,
		WorkingHoursStart:       9,
		WorkingHoursEnd:         18,
		Timezone:                "UTC",
		PauseWeekends:           true,
	}
}

// Location resolves the configured timezone, falling back to UTC when unset
// or unknown.
func (c *RateLimitConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks the config's internal consistency beyond struct tags.
func (c *RateLimitConfig) Validate() error {
	if c.MaxDelaySeconds > 0 && c.MinDelaySeconds > c.MaxDelaySeconds {
		return fmt.Errorf("rate limits: min_delay_seconds (%d) exceeds max_delay_seconds (%d)",
			c.MinDelaySeconds, c.MaxDelaySeconds)
	}
	if c.WorkingHoursEnd > 0 && c.WorkingHoursStart >= c.WorkingHoursEnd {
		return fmt.Errorf("rate limits: working_hours_start (%d) must be before working_hours_end (%d)",
			c.WorkingHoursStart, c.WorkingHoursEnd)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("rate limits: unknown timezone %q: %w", c.Timezone, err)
		}
	}
	return nil
}
