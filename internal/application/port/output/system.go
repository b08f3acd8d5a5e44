package output

import (
	"time"

	"screen-guide/internal/domain/entity"
)

// LoadSampler reports the most recent system load sample in percent.
type LoadSampler interface {
	CurrentLoadPercent() float64
}

type SessionListener interface {
	OnSessionEvent(ev entity.SessionEvent)
}

type Timer interface {
	Stop() bool
}

// Scheduler is a single cooperative event loop. Post and AfterFunc callbacks
// run on the loop; Go runs work off the loop and posts its continuation.
type Scheduler interface {
	Post(fn func()) error
	AfterFunc(d time.Duration, fn func()) Timer
	Go(work func() func())
}
