package ratelimit

import (
	"sort"
	"time"
)

// UsageStats aggregates limiter state across all identities
type UsageStats struct {
	TotalIdentities        int     `json:"total_identities"`
	ActiveIdentities       int     `json:"active_identities"`
	BlockedIdentities      int     `json:"blocked_identities"`
	TotalRequests          int     `json:"total_requests"`
	TotalTokens            int     `json:"total_tokens"`
	AvgRequestsPerIdentity float64 `json:"avg_requests_per_identity"`
	ViolationRate          float64 `json:"violation_rate"` // percent
}

// Violator describes one identity's violation history
type Violator struct {
	Identity      string    `json:"identity"`
	Violations    int       `json:"violations"`
	LastViolation time.Time `json:"last_violation"`
}

// Stats returns aggregate usage statistics for observability
func (l *Limiter) Stats() UsageStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	stats := UsageStats{TotalIdentities: len(l.entries)}

	totalViolations := 0
	for _, e := range l.entries {
		if now.Sub(e.windowStart) < minuteWindow {
			stats.ActiveIdentities++
		}
		if now.Before(e.blockedUntil) {
			stats.BlockedIdentities++
		}
		stats.TotalRequests += e.requests
		stats.TotalTokens += e.tokens
		totalViolations += e.violations
	}

	if len(l.entries) > 0 {
		stats.AvgRequestsPerIdentity = float64(stats.TotalRequests) / float64(len(l.entries))
	}
	if stats.TotalRequests > 0 {
		stats.ViolationRate = float64(totalViolations) / float64(stats.TotalRequests) * 100
	}

	return stats
}

// TopViolators returns up to limit identities ordered by violation count
func (l *Limiter) TopViolators(limit int) []Violator {
	l.mu.Lock()
	defer l.mu.Unlock()

	var violators []Violator
	for key, e := range l.entries {
		if e.violations == 0 {
			continue
		}
		violators = append(violators, Violator{
			Identity:      key,
			Violations:    e.violations,
			LastViolation: e.lastViolation,
		})
	}

	sort.Slice(violators, func(i, j int) bool {
		return violators[i].Violations > violators[j].Violations
	})

	if len(violators) > limit {
		violators = violators[:limit]
	}
	return violators
}
