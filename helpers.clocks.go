package main

import (
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"
)

var (
	_ TickerClocker = (*Clock)(nil)
	_ TickerClocker = (*TickClock)(nil)
	_ zapcore.Clock = (*Clock)(nil)
)

// Clocker provides the time seen by handlers and the log rotation.
type Clocker interface {
	Now() time.Time
}

// TickerClocker is a Clocker able to drive zap timestamps and its flush ticker.
type TickerClocker interface {
	Clocker
	NewTicker(time.Duration) *time.Ticker
}

// Clock reads the wall clock in a fixed location: UTC in production
// and Local during development so log file names match the host.
type Clock struct {
	loc *time.Location
}

// NewClock returns the process clock.
func NewClock(isProd bool) *Clock {
	loc := time.Local
	if isProd {
		loc = time.UTC
	}
	return &Clock{loc: loc}
}

func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *Clock) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}

// TickClock pairs any Clocker with a real ticker, which lets a pinned
// clock stamp log entries while zap keeps flushing on schedule.
type TickClock struct {
	Clocker
}

func NewTickClock(c Clocker) *TickClock {
	return &TickClock{Clocker: c}
}

func (tc *TickClock) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}

// Uptime renders the elapsed whole minutes between started and now.
// A clock stepping backwards reads as zero.
func Uptime(started, now time.Time) string {
	elapsed := now.Sub(started)
	if elapsed < 0 {
		elapsed = 0
	}
	return fmt.Sprintf("%d mins", int64(elapsed/time.Minute))
}
