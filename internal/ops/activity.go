package ops

import (
	"sync"
	"time"
)

// Category classifies the source of an activity log entry.
type Category string

const (
	CategorySystem Category = "SYSTEM"
	CategoryAI     Category = "AI"
	CategoryComms  Category = "COMMS"
	CategoryTask   Category = "TASK"
)

// Entry is a single activity log record.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Category  Category  `json:"category"`
	Message   string    `json:"message"`
}

// ActivityLog is an append-only, monotonically growing record of state
// transitions, task lifecycle events, and command outcomes. Entries are
// totally ordered by arrival; concurrent sources (timer, interpreter,
// operator) are serialized by the log's own lock, ties broken by
// arrival. Entries are never mutated, reordered, or truncated.
type ActivityLog struct {
	mu      sync.RWMutex
	entries []Entry
	publish func(Entry)
}

// NewActivityLog returns an empty log.
func NewActivityLog() *ActivityLog {
	return &ActivityLog{}
}

// OnAppend registers a hook invoked for every appended entry, in
// arrival order. The hook runs while the log lock is held and must not
// call back into the log. Used to fan entries out to NATS/SSE.
func (l *ActivityLog) OnAppend(fn func(Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.publish = fn
}

// Append records an entry and returns it. Append is the only mutator.
func (l *ActivityLog) Append(category Category, message string) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := Entry{
		Timestamp: time.Now().UTC(),
		Category:  category,
		Message:   message,
	}
	l.entries = append(l.entries, e)
	if l.publish != nil {
		l.publish(e)
	}
	return e
}

// Entries returns a copy of all entries in arrival order.
func (l *ActivityLog) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Tail returns a copy of the most recent n entries. n <= 0 or n greater
// than the log length returns everything.
func (l *ActivityLog) Tail(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Entry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Len returns the number of entries.
func (l *ActivityLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
