// Package logsink records orchestration outcomes for later inspection.
package logsink

import (
	"strings"
	"sync"

	"auroraai/internal/domain"
)

// maxLogs bounds the in-memory ring; the oldest entries fall off
const maxLogs = 1000

// Query filters log retrieval. Zero values mean "no filter".
type Query struct {
	UserID      string
	Tier        string
	RequestType string
	Limit       int
	Offset      int
}

// Memory keeps recent log entries in a bounded in-memory ring,
// newest first. Suitable for development and single-node deployments.
type Memory struct {
	mu      sync.RWMutex
	entries []*domain.LogEntry
}

// NewMemory creates an empty in-memory log sink
func NewMemory() *Memory {
	return &Memory{}
}

// Record stores an entry, evicting the oldest when the ring is full
func (m *Memory) Record(entry *domain.LogEntry) {
	if entry == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append([]*domain.LogEntry{entry}, m.entries...)
	if len(m.entries) > maxLogs {
		m.entries = m.entries[:maxLogs]
	}
}

// List returns entries matching the query, newest first
func (m *Memory) List(q Query) []*domain.LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*domain.LogEntry, 0, len(m.entries))
	for _, e := range m.entries {
		if q.UserID != "" && e.UserID != q.UserID {
			continue
		}
		if q.Tier != "" && !strings.EqualFold(string(e.Tier), q.Tier) {
			continue
		}
		if q.RequestType != "" && e.RequestType != q.RequestType {
			continue
		}
		matched = append(matched, e)
	}

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched
}

// Len returns the number of retained entries
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
