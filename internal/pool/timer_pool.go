package pool

import (
	"sync"
	"time"
)

var timerPool sync.Pool

// GetTimer returns a timer set to fire after d, reusing a pooled timer
// when one is available. The polling loops in the register layer sleep
// thousands of times per handshake; pooling avoids a fresh timer
// allocation per poll.
//
// Return the timer with PutTimer when done.
func GetTimer(d time.Duration) *time.Timer {
	if v := timerPool.Get(); v != nil {
		t, _ := v.(*time.Timer) // only *time.Timer is ever put into the pool
		if t.Reset(d) {
			// Timer was still active; drain the channel so a stale fire
			// cannot leak into the new user.
			select {
			case <-t.C:
			default:
			}
		}
		return t
	}
	return time.NewTimer(d)
}

// PutTimer stops t and returns it to the pool. t must not be touched
// after the call.
func PutTimer(t *time.Timer) {
	if !t.Stop() {
		// Drain t.C if the caller had not received the fire yet.
		select {
		case <-t.C:
		default:
		}
	}
	timerPool.Put(t)
}
