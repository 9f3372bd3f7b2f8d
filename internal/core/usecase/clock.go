package usecase

import "time"

// SystemClock is the production ports.Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
