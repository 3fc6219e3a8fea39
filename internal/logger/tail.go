package logger

import (
	"encoding/json"
	"sync"
)

// Entry is a parsed log line kept for the API.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Tail is an io.Writer that keeps the last N zerolog JSON entries.
type Tail struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

// NewTail creates a tail holding up to size entries.
func NewTail(size int) *Tail {
	if size <= 0 {
		size = 1
	}
	return &Tail{entries: make([]Entry, size)}
}

// Write implements io.Writer. Lines that are not JSON objects are dropped.
func (t *Tail) Write(p []byte) (int, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		return len(p), nil //nolint:nilerr // a log sink must never fail the logger
	}

	e := Entry{Fields: make(map[string]any)}
	e.Timestamp, _ = raw["time"].(string)
	e.Level, _ = raw["level"].(string)
	e.Component, _ = raw["component"].(string)
	e.Message, _ = raw["message"].(string)
	for k, v := range raw {
		switch k {
		case "time", "level", "component", "message":
		default:
			e.Fields[k] = v
		}
	}

	t.mu.Lock()
	t.entries[t.next] = e
	t.next = (t.next + 1) % len(t.entries)
	if t.next == 0 {
		t.full = true
	}
	t.mu.Unlock()

	return len(p), nil
}

// Recent returns buffered entries from oldest to newest. A nil Tail has none.
func (t *Tail) Recent() []Entry {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.full {
		out := make([]Entry, t.next)
		copy(out, t.entries[:t.next])
		return out
	}
	out := make([]Entry, 0, len(t.entries))
	out = append(out, t.entries[t.next:]...)
	out = append(out, t.entries[:t.next]...)
	return out
}
