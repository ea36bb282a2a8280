/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package logbuffer keeps recent structured log lines in memory so a session
// can be inspected from the API without shell access to the host.
package logbuffer

import (
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"
)

// LogEntry represents a single log entry.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Buffer is a thread-safe ring buffer for log entries.
type Buffer struct {
	mu       sync.RWMutex
	entries  []LogEntry
	capacity int
	head     int
	count    int
}

// New creates a new log buffer with the specified capacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 2000
	}
	return &Buffer{
		entries:  make([]LogEntry, capacity),
		capacity: capacity,
	}
}

// Add adds a log entry, overwriting the oldest when full.
func (b *Buffer) Add(entry LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.head] = entry
	b.head = (b.head + 1) % b.capacity
	if b.count < b.capacity {
		b.count++
	}
}

// All returns all log entries in chronological order.
func (b *Buffer) All() []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]LogEntry, b.count)
	start := 0
	if b.count == b.capacity {
		start = b.head
	}
	for i := 0; i < b.count; i++ {
		result[i] = b.entries[(start+i)%b.capacity]
	}
	return result
}

// QueryParams filters entries. Zero values match everything.
type QueryParams struct {
	Level      string
	Component  string
	SessionID  string
	Search     string // case-insensitive match on the message
	Since      time.Time
	Limit      int
	Descending bool // newest first
}

// Query returns log entries matching the filter criteria.
func (b *Buffer) Query(params QueryParams) []LogEntry {
	search := strings.ToLower(params.Search)

	var filtered []LogEntry
	for _, entry := range b.All() {
		if params.Level != "" && entry.Level != params.Level {
			continue
		}
		if params.Component != "" && entry.Component != params.Component {
			continue
		}
		if params.SessionID != "" && entry.SessionID != params.SessionID {
			continue
		}
		if !params.Since.IsZero() && entry.Timestamp.Before(params.Since) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(entry.Message), search) {
			continue
		}
		filtered = append(filtered, entry)
	}

	if params.Descending {
		for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		}
	}
	if params.Limit > 0 && len(filtered) > params.Limit {
		filtered = filtered[:params.Limit]
	}
	return filtered
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.count = 0
}

// Writer feeds zerolog JSON lines into a Buffer.
type Writer struct {
	buffer *Buffer
}

var _ io.Writer = (*Writer)(nil)

// NewWriter creates a writer that captures logs to the buffer.
func NewWriter(buffer *Buffer) *Writer {
	return &Writer{buffer: buffer}
}

// Write implements io.Writer. Lines that are not JSON objects are dropped.
func (w *Writer) Write(p []byte) (int, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		return len(p), nil
	}

	entry := LogEntry{Timestamp: time.Now(), Fields: make(map[string]any)}
	if v, ok := raw["level"].(string); ok {
		entry.Level = v
		delete(raw, "level")
	}
	if v, ok := raw["message"].(string); ok {
		entry.Message = v
		delete(raw, "message")
	}
	if v, ok := raw["component"].(string); ok {
		entry.Component = v
		delete(raw, "component")
	}
	if v, ok := raw["session_id"].(string); ok {
		entry.SessionID = v
		delete(raw, "session_id")
	}
	if v, ok := raw["time"]; ok {
		// zerolog writes unix seconds when TimeFieldFormat is TimeFormatUnix.
		switch ts := v.(type) {
		case float64:
			entry.Timestamp = time.Unix(int64(ts), 0)
		case string:
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				entry.Timestamp = t
			}
		}
		delete(raw, "time")
	}
	for k, v := range raw {
		entry.Fields[k] = v
	}

	w.buffer.Add(entry)
	return len(p), nil
}
