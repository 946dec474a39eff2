package orchestrator

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/unicode/norm"

	"auroraai/internal/domain"
)

// duplicateThreshold is the normalized similarity above which two
// candidates' contents are considered duplicates of each other.
const duplicateThreshold = 0.92

// maxCompareLen bounds the Levenshtein comparison cost for long contents
const maxCompareLen = 1000

// normalizeContent canonicalizes content for comparison: NFKC
// normalization, lowercasing, whitespace collapsing.
func normalizeContent(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// similarity returns a normalized similarity in [0,1] between two strings
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	ra, rb := []rune(a), []rune(b)
	if len(ra) > maxCompareLen {
		ra = ra[:maxCompareLen]
	}
	if len(rb) > maxCompareLen {
		rb = rb[:maxCompareLen]
	}

	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}

	dist := levenshtein.ComputeDistance(string(ra), string(rb))
	return 1 - float64(dist)/float64(maxLen)
}

// annotateDuplicates marks candidates whose content nearly duplicates an
// earlier candidate's, keyed by the earlier adapter's ID. Two adapters can
// legitimately produce byte-identical answers, so duplicates are surfaced
// as diagnostics and never excluded from selection.
func annotateDuplicates(candidates []*domain.Candidate) {
	normalized := make([]string, len(candidates))
	for i, c := range candidates {
		if !c.Response.Failed() {
			normalized[i] = normalizeContent(c.Response.Content)
		}
	}

	for i, c := range candidates {
		if c.Response.Failed() || normalized[i] == "" {
			continue
		}
		for j := 0; j < i; j++ {
			prev := candidates[j]
			if prev.Response.Failed() || normalized[j] == "" {
				continue
			}
			if prev.Response.AdapterID == c.Response.AdapterID {
				continue
			}
			if similarity(normalized[i], normalized[j]) >= duplicateThreshold {
				c.DuplicateOf = prev.Response.AdapterID
				break
			}
		}
	}
}
