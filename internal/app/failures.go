package service

import (
	"sync"
	"time"
)

// Failure is a trigger failure that resolved after its pending flag cleared,
// when the caller may no longer be watching.
type Failure struct {
	TicketID      string
	Scope         Scope
	ParticipantID string
	Error         string
	At            time.Time
}

// failureLog keeps the most recent failures in a ring.
type failureLog struct {
	mu    sync.Mutex
	items []Failure
	next  int
	full  bool
}

func newFailureLog(size int) *failureLog {
	if size < 1 {
		size = 1
	}
	return &failureLog{items: make([]Failure, size)}
}

func (l *failureLog) add(f Failure) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items[l.next] = f
	l.next = (l.next + 1) % len(l.items)
	if l.next == 0 {
		l.full = true
	}
}

// recent returns failures newest first.
func (l *failureLog) recent() []Failure {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.next
	if l.full {
		n = len(l.items)
	}
	out := make([]Failure, 0, n)
	for i := 1; i <= n; i++ {
		idx := (l.next - i + len(l.items)) % len(l.items)
		out = append(out, l.items[idx])
	}
	return out
}
