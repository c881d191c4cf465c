package domain

import (
	"sync/atomic"
	"time"
)

var lastID int64

// NewID allocates a monotonically increasing numeric id. IDs are unix-nano
// based so lexical order of their zero-padded form matches creation order.
func NewID() int64 {
	for {
		now := time.Now().UnixNano()
		last := atomic.LoadInt64(&lastID)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastID, last, now) {
			return now
		}
	}
}
