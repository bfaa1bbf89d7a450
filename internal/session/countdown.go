package session

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

const DefaultTickInterval = time.Second

// Countdown owns the single interval that drives Tick events. It is not safe
// for concurrent use; the controller loop is its only user.
type Countdown struct {
	clock    Clock
	interval time.Duration
	ticker   clockwork.Ticker
}

func NewCountdown(clock Clock, interval time.Duration) *Countdown {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Countdown{clock: clock, interval: interval}
}

func (c *Countdown) Start() {
	if c.ticker != nil {
		return
	}
	c.ticker = c.clock.NewTicker(c.interval)
}

// Stop releases the interval. Safe to call repeatedly.
func (c *Countdown) Stop() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	c.ticker = nil
}

func (c *Countdown) Running() bool {
	return c.ticker != nil
}

// C returns the tick channel, or nil when stopped so a select never fires on it.
func (c *Countdown) C() <-chan time.Time {
	if c.ticker == nil {
		return nil
	}
	return c.ticker.Chan()
}

// FormatClock renders seconds as HH:MM:SS, clamping negatives to zero.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}
