package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock stamps ResolvedLocation.ResolvedAt and run start/finish times. Tests freeze it via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used by Resolve. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now reads the package clock. Run timestamps use it so they freeze with ResolvedAt.
func Now() time.Time {
	return clock.Now()
}
