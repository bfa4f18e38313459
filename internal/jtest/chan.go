package jtest

import (
	"testing"
	"time"
)

// ScheduleTimeout is how long the channel helpers wait
// before deciding an operation is not going to happen.
const ScheduleTimeout = 250 * time.Millisecond

// ReceiveSoon fails the test if a value cannot be received from ch
// within [ScheduleTimeout].
func ReceiveSoon[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(ScheduleTimeout):
		t.Fatalf("did not receive value within %s", ScheduleTimeout)
	}

	panic("unreachable")
}

// NotSendingSoon fails the test if ch becomes readable
// within a short window.
func NotSendingSoon[T any](t *testing.T, ch <-chan T) {
	t.Helper()

	select {
	case <-ch:
		t.Fatal("channel sent a value when it should have stayed blocked")
	case <-time.After(ScheduleTimeout / 5):
	}
}
