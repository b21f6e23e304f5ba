package producer

import "time"

// Status is a producer's informational lifecycle state. It never gates
// the run loop — the run loop is gated only by context cancellation —
// it exists purely so external observers (metrics, the status log,
// Pipeline.Producer followed by Producer.State) can see what a
// producer is doing.
type Status int

const (
	Staged Status = iota
	Running
	Backoff
	Cancelled
	Errored
)

func (s Status) String() string {
	switch s {
	case Staged:
		return "STAGED"
	case Running:
		return "RUNNING"
	case Backoff:
		return "BACKOFF"
	case Cancelled:
		return "CANCELLED"
	case Errored:
		return "ERRORED"
	default:
		return "UNKNOWN"
	}
}

// State is a snapshot of a producer's informational record: status,
// consecutive-failure count, current backoff interval, last error seen,
// and when the status last transitioned.
type State struct {
	Status    Status
	Tries     int
	Timeout   time.Duration
	LastError string
	Since     time.Time
}
