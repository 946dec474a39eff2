package logsink

import (
	"errors"
	"fmt"
	"testing"

	"auroraai/internal/domain"
)

func entryFor(userID string, tier domain.Tier, requestType string) *domain.LogEntry {
	return &domain.LogEntry{
		ID:          fmt.Sprintf("%s-%s-%s", userID, tier, requestType),
		UserID:      userID,
		Tier:        tier,
		RequestType: requestType,
		Success:     true,
	}
}

func TestMemoryRecordAndList(t *testing.T) {
	m := NewMemory()

	m.Record(entryFor("alice", domain.TierFree, "text"))
	m.Record(entryFor("bob", domain.TierPaid, "image"))
	m.Record(entryFor("alice", domain.TierFree, "mixed"))

	t.Run("newest first", func(t *testing.T) {
		all := m.List(Query{})
		if len(all) != 3 {
			t.Fatalf("entries = %d, want 3", len(all))
		}
		if all[0].RequestType != "mixed" {
			t.Errorf("first entry = %s, want the most recent", all[0].RequestType)
		}
	})

	t.Run("filter by user", func(t *testing.T) {
		got := m.List(Query{UserID: "alice"})
		if len(got) != 2 {
			t.Errorf("alice entries = %d, want 2", len(got))
		}
	})

	t.Run("filter by tier", func(t *testing.T) {
		got := m.List(Query{Tier: "paid"})
		if len(got) != 1 || got[0].UserID != "bob" {
			t.Errorf("paid entries = %+v, want bob's", got)
		}
	})

	t.Run("filter by request type", func(t *testing.T) {
		got := m.List(Query{RequestType: "text"})
		if len(got) != 1 {
			t.Errorf("text entries = %d, want 1", len(got))
		}
	})

	t.Run("limit and offset", func(t *testing.T) {
		got := m.List(Query{Limit: 1, Offset: 1})
		if len(got) != 1 {
			t.Fatalf("entries = %d, want 1", len(got))
		}
		if got[0].RequestType != "image" {
			t.Errorf("offset entry = %s, want image", got[0].RequestType)
		}
	})

	t.Run("offset past the end", func(t *testing.T) {
		if got := m.List(Query{Offset: 10}); len(got) != 0 {
			t.Errorf("entries = %d, want 0", len(got))
		}
	})
}

func TestMemoryEviction(t *testing.T) {
	m := NewMemory()

	for i := 0; i < maxLogs+50; i++ {
		m.Record(&domain.LogEntry{ID: fmt.Sprintf("e%d", i)})
	}

	if m.Len() != maxLogs {
		t.Errorf("retained = %d, want cap of %d", m.Len(), maxLogs)
	}
	// The newest entry survives; the oldest fell off.
	newest := m.List(Query{Limit: 1})
	if newest[0].ID != fmt.Sprintf("e%d", maxLogs+49) {
		t.Errorf("newest = %s", newest[0].ID)
	}
}

func TestEntryFromResult(t *testing.T) {
	res := &domain.Result{
		ID: "run-1",
		Selected: &domain.Response{
			AdapterID:  "strong",
			ModelName:  "Strong",
			TokensUsed: 210,
		},
		AllCandidates: []*domain.Candidate{
			{Response: &domain.Response{AdapterID: "strong", ModelName: "Strong"}, FinalScore: 0.7},
			{Response: &domain.Response{AdapterID: "weak", ModelName: "Weak"}, FinalScore: 0.2},
		},
		OrchestrationMS: 420,
		Metadata: domain.ResultMetadata{
			UserID: "alice",
			Tier:   domain.TierPaid,
		},
	}

	entry := EntryFromResult("text", "the question", res)

	if entry.ID == "" {
		t.Error("entry needs its own id")
	}
	if entry.UserID != "alice" || entry.Tier != domain.TierPaid {
		t.Errorf("identity = %s/%s", entry.UserID, entry.Tier)
	}
	if entry.SelectedModel != "Strong" {
		t.Errorf("selected model = %s", entry.SelectedModel)
	}
	if entry.TokensUsed != 210 || entry.LatencyMS != 420 {
		t.Errorf("usage = %d tokens / %d ms", entry.TokensUsed, entry.LatencyMS)
	}
	if !entry.Success {
		t.Error("entry should mark success")
	}
	if len(entry.AllModels) != 2 {
		t.Errorf("models = %v", entry.AllModels)
	}
	if entry.Scores["strong"] != 0.7 || entry.Scores["weak"] != 0.2 {
		t.Errorf("scores = %v", entry.Scores)
	}
}

func TestFailureEntry(t *testing.T) {
	entry := FailureEntry("image", "draw", "bob", domain.TierFree, errors.New("no models available"))

	if entry.Success {
		t.Error("failure entry marked successful")
	}
	if entry.Error != "no models available" {
		t.Errorf("error = %q", entry.Error)
	}
	if entry.RequestType != "image" || entry.UserID != "bob" {
		t.Errorf("entry = %+v", entry)
	}
}
