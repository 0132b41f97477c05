package httpcache

import "time"

// Clock supplies the current time to the controller and to storage TTL
// sweeps. Tests substitute a deterministic implementation.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SystemClock is the default Clock, backed by time.Now.
var SystemClock Clock = realClock{}
