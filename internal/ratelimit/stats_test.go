package ratelimit

import (
	"testing"
	"time"

	"auroraai/internal/domain"
)

func TestStats(t *testing.T) {
	l, _ := newTestLimiter(freeLimits())

	l.CheckAndConsume("user-a", domain.TierFree, 100)
	l.CheckAndConsume("user-a", domain.TierFree, 100)
	l.CheckAndConsume("user-b", domain.TierFree, 50)

	stats := l.Stats()
	if stats.TotalIdentities != 2 {
		t.Errorf("total identities = %d, want 2", stats.TotalIdentities)
	}
	if stats.ActiveIdentities != 2 {
		t.Errorf("active identities = %d, want 2", stats.ActiveIdentities)
	}
	if stats.TotalRequests != 3 {
		t.Errorf("total requests = %d, want 3", stats.TotalRequests)
	}
	if stats.TotalTokens != 250 {
		t.Errorf("total tokens = %d, want 250", stats.TotalTokens)
	}
	if stats.AvgRequestsPerIdentity != 1.5 {
		t.Errorf("avg requests = %v, want 1.5", stats.AvgRequestsPerIdentity)
	}
	if stats.BlockedIdentities != 0 {
		t.Errorf("blocked identities = %d, want 0", stats.BlockedIdentities)
	}
}

func TestTopViolators(t *testing.T) {
	l, now := newTestLimiter(freeLimits())

	// user-a trips two violations across two minute windows, user-b one.
	for i := 0; i < 11; i++ {
		l.CheckAndConsume("user-a", domain.TierFree, 1)
	}
	*now = now.Add(6 * time.Minute)
	for i := 0; i < 11; i++ {
		l.CheckAndConsume("user-a", domain.TierFree, 1)
	}
	for i := 0; i < 11; i++ {
		l.CheckAndConsume("user-b", domain.TierFree, 1)
	}
	l.CheckAndConsume("user-c", domain.TierFree, 1)

	violators := l.TopViolators(10)
	if len(violators) != 2 {
		t.Fatalf("violators = %d, want 2", len(violators))
	}
	if violators[0].Identity != "user-a" {
		t.Errorf("top violator = %s, want user-a", violators[0].Identity)
	}
	if violators[0].Violations <= violators[1].Violations {
		t.Errorf("violators not sorted: %+v", violators)
	}

	if got := l.TopViolators(1); len(got) != 1 {
		t.Errorf("limited violators = %d, want 1", len(got))
	}
}
