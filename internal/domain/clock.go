package domain

import "github.com/jonboulle/clockwork"

// clock is a package-level time source so tests can freeze time via SetClock.
// Production code uses the real clock; tests inject a fake for deterministic
// timestamps on SourceScore.Timestamp and similar construction-time fields.
// StormInfo.DetectionTime is not read from this clock: storm.Detect takes it
// as an argument.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for entity construction. Pass nil to reset
// to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
