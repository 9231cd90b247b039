package cabinet

import (
	"time"

	"github.com/yunenjoy/skylocker/flow"
)

// Record describes one completed or failed operation, emitted to the
// audit sink after every run regardless of outcome.
type Record struct {
	Cabinet string
	Op      flow.Kind
	Success bool
	Error   string
	Started time.Time
	Elapsed time.Duration
}

// AuditFunc consumes operation records. It runs on the operation's
// goroutine and must not block.
type AuditFunc func(Record)