package state

import (
	"fmt"
	"time"
)

// Timestamp is a point in time in nanoseconds since the unix epoch. A zero
// value means "not set".
type Timestamp uint64

// CurrentTimestamp returns a Timestamp for the current time.
func CurrentTimestamp() Timestamp {
	return Timestamp(time.Now().UnixNano())
}

// NewTimestamp creates a Timestamp from a time.Time.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.UnixNano())
}

// Nano returns the nanoseconds since the unix epoch.
func (t Timestamp) Nano() uint64 {
	return uint64(t)
}

// Time converts the Timestamp to a time.Time.
func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t))
}

func (t Timestamp) String() string {
	if t == 0 {
		return "unset"
	}
	return fmt.Sprintf("%v", t.Time().UTC().Format(time.RFC3339Nano))
}
