package cachify

import "time"

// Clock is the injected time source. The orchestrator never calls the host
// clock directly so tests can advance time deterministically.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClock is the default Clock, backed by the host wall clock.
var RealClock Clock = realClock{}
