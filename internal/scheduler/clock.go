package scheduler

import "time"

// Clock abstracts the current time so the 14-day boundary can be
// tested deterministically. Production injects RealClock; tests inject
// a fixed clock and move it by hand.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
