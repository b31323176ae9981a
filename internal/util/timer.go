package util

import "time"

// Timer measures elapsed wall-clock time for audit rows.
type Timer struct {
	start time.Time
}

// StartTimer creates a timer starting now.
func StartTimer() Timer {
	return Timer{start: time.Now()}
}

// ElapsedMs returns the milliseconds elapsed since start. A zero timer
// reports zero.
func (t Timer) ElapsedMs() int64 {
	if t.start.IsZero() {
		return 0
	}
	return time.Since(t.start).Milliseconds()
}
