// Package journal keeps a bounded, deduplicating history of log entries
// for one operating mode. The client and relay pipelines each own one; the
// two histories evict independently.
package journal

import (
	"regexp"
	"strings"
	"sync"
	"time"
)

// DefaultLimit is how many entries a mode's visible log retains before the
// oldest are evicted.
const DefaultLimit = 2000

// Entry is one displayable log line tagged for the UI.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Source    string    `json:"source"`
	Mode      string    `json:"mode"`
}

var (
	timestampRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2})`)
	levelRe     = regexp.MustCompile(`\b(INFO|WARN|ERROR|DEBUG|NOTICE)\b`)
)

// ParseEntry lifts a raw daemon line into an Entry. A leading timestamp
// and a level token are extracted when present; otherwise the entry is
// stamped with now and INFO so unstructured lines still display sensibly.
func ParseEntry(line, source, mode string, now time.Time) Entry {
	e := Entry{
		Timestamp: now,
		Level:     "INFO",
		Message:   strings.TrimSpace(line),
		Source:    source,
		Mode:      mode,
	}
	if m := timestampRe.FindStringSubmatch(line); m != nil {
		for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
			if ts, err := time.ParseInLocation(layout, m[1], time.Local); err == nil {
				e.Timestamp = ts
				break
			}
		}
	}
	if m := levelRe.FindStringSubmatch(line); m != nil {
		e.Level = m[1]
	}
	return e
}

// Log is a bounded history with ring-buffer eviction. An entry whose
// timestamp and message both match one already recorded is a duplicate and
// is dropped before it reaches any consumer. Safe for concurrent use: the
// pipeline goroutine appends while UI consumers read the history.
type Log struct {
	mu      sync.Mutex
	limit   int
	entries []Entry
	seen    map[string]struct{}
}

// NewLog returns an empty history retaining at most limit entries.
// Non-positive limit falls back to DefaultLimit.
func NewLog(limit int) *Log {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Log{
		limit: limit,
		seen:  make(map[string]struct{}),
	}
}

// Append records e and reports whether it was new. Duplicates are dropped
// silently. When the history is full the oldest entry is evicted.
func (l *Log) Append(e Entry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := dedupKey(e)
	if _, dup := l.seen[key]; dup {
		return false
	}
	l.seen[key] = struct{}{}
	l.entries = append(l.entries, e)
	if overflow := len(l.entries) - l.limit; overflow > 0 {
		for _, old := range l.entries[:overflow] {
			delete(l.seen, dedupKey(old))
		}
		l.entries = append([]Entry(nil), l.entries[overflow:]...)
	}
	return true
}

// Entries returns a copy of the retained history, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports how many entries are retained.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func dedupKey(e Entry) string {
	return e.Timestamp.Format(time.RFC3339Nano) + "\x00" + e.Message
}
