package orchestrator

import (
	"math"
	"strings"
	"testing"

	"auroraai/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluateErrorResponse(t *testing.T) {
	cand := Evaluate(&domain.Response{
		AdapterID: "m1",
		Error:     "boom",
	})

	if cand.FinalScore != 0 || cand.Score != 0 {
		t.Errorf("error candidate scored %v/%v, want 0/0", cand.Score, cand.FinalScore)
	}
	if cand.Response.Error != "boom" {
		t.Error("error response not preserved on candidate")
	}
}

func TestEvaluateWeights(t *testing.T) {
	// confidence 1.0, completeness 0.5 (short plain content), no latency
	// penalty, no token penalty: 1.0*0.4 + 0.5*0.3 = 0.55
	cand := Evaluate(&domain.Response{
		AdapterID:  "m1",
		Modality:   domain.ModalityText,
		Content:    "short answer",
		Confidence: 1.0,
		TokensUsed: 10,
		LatencyMS:  100,
	})

	if !almostEqual(cand.FinalScore, 0.55) {
		t.Errorf("final score = %v, want 0.55", cand.FinalScore)
	}
}

func TestEvaluateDefaultConfidence(t *testing.T) {
	cand := Evaluate(&domain.Response{
		AdapterID:  "m1",
		Modality:   domain.ModalityText,
		Content:    "short answer",
		TokensUsed: 10,
		LatencyMS:  100,
	})

	// 0.5*0.4 + 0.5*0.3 = 0.35
	if !almostEqual(cand.FinalScore, 0.35) {
		t.Errorf("final score = %v, want 0.35 with default confidence", cand.FinalScore)
	}
}

func TestEvaluateHigherConfidenceScoresHigher(t *testing.T) {
	base := domain.Response{
		AdapterID:  "m1",
		Modality:   domain.ModalityText,
		Content:    "short answer",
		TokensUsed: 10,
		LatencyMS:  100,
	}

	lower, higher := base, base
	lower.Confidence = 0.6
	higher.Confidence = 0.9

	a := Evaluate(&lower)
	b := Evaluate(&higher)
	if b.FinalScore <= a.FinalScore {
		t.Errorf("scores = %v vs %v, higher confidence must outscore lower",
			a.FinalScore, b.FinalScore)
	}
}

func TestEvaluateClampsAtZero(t *testing.T) {
	// A slow, token-opaque success with empty content drives the raw
	// score negative; the final score clamps at zero.
	cand := Evaluate(&domain.Response{
		AdapterID:  "m1",
		Modality:   domain.ModalityText,
		Confidence: 0.01,
		LatencyMS:  20000,
	})

	if cand.Score >= 0 {
		t.Fatalf("raw score = %v, expected negative for this input", cand.Score)
	}
	if cand.FinalScore != 0 {
		t.Errorf("final score = %v, want clamp to 0", cand.FinalScore)
	}
}

func TestCompletenessScore(t *testing.T) {
	long := strings.Repeat("word ", 120) // > 500 chars

	tests := []struct {
		name string
		resp *domain.Response
		want float64
	}{
		{
			name: "empty content",
			resp: &domain.Response{Modality: domain.ModalityText},
			want: 0,
		},
		{
			name: "short plain text",
			resp: &domain.Response{Modality: domain.ModalityText, Content: "hi there"},
			want: 0.5,
		},
		{
			name: "structured long text caps at 1",
			resp: &domain.Response{
				Modality: domain.ModalityText,
				Content:  "1. first\n2. second\n" + long,
			},
			want: 1,
		},
		{
			name: "realtime with full sources",
			resp: &domain.Response{
				Modality: domain.ModalityRealtime,
				Content:  "summary",
				Sources: []domain.Source{
					{}, {}, {}, {}, {},
				},
			},
			want: 0.7,
		},
		{
			name: "image with url",
			resp: &domain.Response{
				Modality: domain.ModalityImage,
				ImageURL: "https://img.example.com/1.png",
			},
			want: 0.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := completenessScore(tt.resp); !almostEqual(got, tt.want) {
				t.Errorf("completenessScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLatencyPenalty(t *testing.T) {
	tests := []struct {
		latency int64
		want    float64
	}{
		{500, 0},
		{1500, 0.1},
		{4000, 0.2},
		{7000, 0.3},
		{15000, 0.4},
	}

	for _, tt := range tests {
		if got := latencyPenalty(tt.latency); got != tt.want {
			t.Errorf("latencyPenalty(%d) = %v, want %v", tt.latency, got, tt.want)
		}
	}
}

func TestTokenPenalty(t *testing.T) {
	tests := []struct {
		tokens int
		want   float64
	}{
		{0, 0.2}, // unknown usage is penalized
		{50, 0},
		{300, 0.05},
		{800, 0.1},
		{1500, 0.15},
		{5000, 0.2},
	}

	for _, tt := range tests {
		if got := tokenPenalty(tt.tokens); got != tt.want {
			t.Errorf("tokenPenalty(%d) = %v, want %v", tt.tokens, got, tt.want)
		}
	}
}

func TestSelectBest(t *testing.T) {
	mk := func(id string, score float64, failed bool) *domain.Candidate {
		resp := &domain.Response{AdapterID: id}
		if failed {
			resp.Error = "failed"
		}
		return &domain.Candidate{Response: resp, FinalScore: score}
	}

	t.Run("skips failed candidates", func(t *testing.T) {
		best := SelectBest([]*domain.Candidate{
			mk("a", 0.9, true),
			mk("b", 0.4, false),
		})
		if best == nil || best.Response.AdapterID != "b" {
			t.Errorf("best = %v, want b", best)
		}
	})

	t.Run("ties keep the first candidate", func(t *testing.T) {
		best := SelectBest([]*domain.Candidate{
			mk("a", 0.7, false),
			mk("b", 0.7, false),
			mk("c", 0.7, false),
		})
		if best.Response.AdapterID != "a" {
			t.Errorf("best = %s, want a on tie", best.Response.AdapterID)
		}
	})

	t.Run("all failed returns nil", func(t *testing.T) {
		best := SelectBest([]*domain.Candidate{
			mk("a", 0, true),
			mk("b", 0, true),
		})
		if best != nil {
			t.Errorf("best = %v, want nil", best)
		}
	})

	t.Run("empty pool returns nil", func(t *testing.T) {
		if best := SelectBest(nil); best != nil {
			t.Errorf("best = %v, want nil", best)
		}
	})
}
