package manager

import (
	"time"

	"github.com/google/uuid"
)

// slot is a single-slot critical-section gate: held (non-nil) or free
// (nil). DESIGN NOTES (spec.md §9) recommend a single Option<OperationSlot>
// per section in place of the source's bare booleans. token identifies one
// grant; it is stored with the slot only and is not written to any log line
// or sent on the wire.
type slot struct {
	token     uuid.UUID
	startedAt time.Time
}

func newSlot() *slot {
	return &slot{token: uuid.New(), startedAt: time.Now()}
}

// expired reports whether this copy-section grant has been held longer
// than the watchdog timeout (spec.md §4.4's 60s override, the sole
// automatic recovery in the system — spec.md §5).
func (s *slot) expired(timeout time.Duration) bool {
	return time.Since(s.startedAt) > timeout
}

// readOp is one entry in the reads-in-progress list (spec.md §3, §4.4).
type readOp struct {
	DSSName  string
	FileName string
	UserName string
}
