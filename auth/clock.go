package auth

import "time"

// Timer is a one-shot timer armed through a Clock.
type Timer interface {
	// Stop prevents the timer from firing. It reports whether the call
	// stopped the timer before it fired.
	Stop() bool
}

// Clock abstracts wall-clock time and timer arming so tests can advance
// virtual time deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns the wall-clock backed Clock used outside of tests.
func SystemClock() Clock {
	return systemClock{}
}
