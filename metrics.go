package prefetch

import "time"

// Metrics receives cache events. A nil Metrics disables collection with no
// overhead. Implementations must be safe for concurrent use.
type Metrics interface {
	// ObserveWait records how long Get blocked on the head of the window.
	// Zero means the sample was already prefetched.
	ObserveWait(d time.Duration)

	// AddSubmitted counts fetch tasks handed to the pool.
	AddSubmitted(n int)

	// AddDiscarded counts window entries dropped on an index jump.
	AddDiscarded(n int)

	// IncFailed counts Get calls that returned a fetch error.
	IncFailed()

	// SetInFlight reports the window occupancy whenever it changes.
	SetInFlight(n int)
}
