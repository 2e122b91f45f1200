package domain

import "github.com/jonboulle/clockwork"

// clock supplies "today" for forms submitted without a date.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Today returns the current calendar date according to the package clock.
func Today() Date {
	return DateOf(clock.Now())
}
