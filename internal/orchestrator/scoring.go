package orchestrator

import (
	"regexp"

	"auroraai/internal/domain"
)

// Scoring weights. A candidate's raw score is
// confidence*0.4 + completeness*0.3 - latencyPenalty*0.2 - tokenPenalty*0.1,
// clamped at zero.
const (
	confidenceWeight   = 0.4
	completenessWeight = 0.3
	latencyWeight      = 0.2
	tokenWeight        = 0.1

	// defaultConfidence is assumed when an adapter reports none
	defaultConfidence = 0.5
)

var numberedListPattern = regexp.MustCompile(`\d+\.`)

// Evaluate scores a response into a candidate. Error responses score zero
// across the board but are kept for diagnostics.
func Evaluate(resp *domain.Response) *domain.Candidate {
	if resp.Failed() {
		return &domain.Candidate{Response: resp}
	}

	confidence := resp.Confidence
	if confidence == 0 {
		confidence = defaultConfidence
	}

	completeness := completenessScore(resp)
	latencyPen := latencyPenalty(resp.LatencyMS)
	tokenPen := tokenPenalty(resp.TokensUsed)

	score := confidence*confidenceWeight +
		completeness*completenessWeight -
		latencyPen*latencyWeight -
		tokenPen*tokenWeight

	final := score
	if final < 0 {
		final = 0
	}

	return &domain.Candidate{
		Response:          resp,
		Score:             score,
		CompletenessScore: completeness,
		LatencyPenalty:    latencyPen,
		TokenPenalty:      tokenPen,
		FinalScore:        final,
	}
}

// completenessScore rewards substantive, well-formed, source-backed answers.
// Base 0.5, length bonuses at 50/200/500 chars, modality-specific bonuses,
// clamped to [0,1].
func completenessScore(resp *domain.Response) float64 {
	if resp.Content == "" && !resp.HasImage() {
		return 0
	}

	score := 0.5

	if len(resp.Content) > 50 {
		score += 0.1
	}
	if len(resp.Content) > 200 {
		score += 0.1
	}
	if len(resp.Content) > 500 {
		score += 0.1
	}

	switch resp.Modality {
	case domain.ModalityText:
		if containsNewline(resp.Content) {
			score += 0.1
		}
		if numberedListPattern.MatchString(resp.Content) {
			score += 0.1
		}
	case domain.ModalityRealtime:
		if n := len(resp.Sources); n > 0 {
			ratio := float64(n) / 5
			if ratio > 1 {
				ratio = 1
			}
			score += 0.2 * ratio
		}
	case domain.ModalityImage:
		if resp.HasImage() {
			score += 0.4
		}
	}

	if score > 1 {
		score = 1
	}
	return score
}

func containsNewline(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return true
		}
	}
	return false
}

// latencyPenalty is a step function of response latency in milliseconds
func latencyPenalty(latencyMS int64) float64 {
	switch {
	case latencyMS < 1000:
		return 0
	case latencyMS < 3000:
		return 0.1
	case latencyMS < 5000:
		return 0.2
	case latencyMS < 10000:
		return 0.3
	default:
		return 0.4
	}
}

// tokenPenalty is a step function of token usage; unknown usage is
// penalized for opacity.
func tokenPenalty(tokensUsed int) float64 {
	switch {
	case tokensUsed == 0:
		return 0.2
	case tokensUsed < 100:
		return 0
	case tokensUsed < 500:
		return 0.05
	case tokensUsed < 1000:
		return 0.1
	case tokensUsed < 2000:
		return 0.15
	default:
		return 0.2
	}
}

// SelectBest returns the highest-scoring non-error candidate, or nil if
// none succeeded. Ties retain the first encountered candidate, so the
// result is deterministic for a fixed pool order.
func SelectBest(candidates []*domain.Candidate) *domain.Candidate {
	var best *domain.Candidate
	for _, c := range candidates {
		if c.Response.Failed() {
			continue
		}
		if best == nil || c.FinalScore > best.FinalScore {
			best = c
		}
	}
	return best
}
