package orchestrator

import (
	"testing"

	"auroraai/internal/domain"
)

func TestNormalizeContent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Hello World", "hello world"},
		{"collapses whitespace", "a  b\t\nc", "a b c"},
		{"trims leading space", "  padded", "padded"},
		{"nfkc folds fullwidth", "ｈｅｌｌｏ", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeContent(tt.input); got != tt.want {
				t.Errorf("normalizeContent(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	if got := similarity("identical", "identical"); got != 1 {
		t.Errorf("identical strings = %v, want 1", got)
	}
	if got := similarity("", "anything"); got != 0 {
		t.Errorf("empty string = %v, want 0", got)
	}
	if got := similarity("abcd", "wxyz"); got != 0 {
		t.Errorf("disjoint strings = %v, want 0", got)
	}

	near := similarity("the quick brown fox jumps", "the quick brown fox jumped")
	if near < 0.9 {
		t.Errorf("near-identical strings = %v, want >= 0.9", near)
	}
}

func TestAnnotateDuplicates(t *testing.T) {
	mk := func(id, content, errMsg string) *domain.Candidate {
		return &domain.Candidate{Response: &domain.Response{
			AdapterID: id,
			Content:   content,
			Error:     errMsg,
		}}
	}

	t.Run("marks near-identical later candidate", func(t *testing.T) {
		a := mk("m1", "The capital of France is Paris.", "")
		b := mk("m2", "the capital  of france is paris.", "")
		annotateDuplicates([]*domain.Candidate{a, b})

		if a.DuplicateOf != "" {
			t.Errorf("first candidate marked duplicate of %q", a.DuplicateOf)
		}
		if b.DuplicateOf != "m1" {
			t.Errorf("second candidate DuplicateOf = %q, want m1", b.DuplicateOf)
		}
	})

	t.Run("distinct answers untouched", func(t *testing.T) {
		a := mk("m1", "The capital of France is Paris.", "")
		b := mk("m2", "Berlin is the capital of Germany, a different fact entirely.", "")
		annotateDuplicates([]*domain.Candidate{a, b})

		if a.DuplicateOf != "" || b.DuplicateOf != "" {
			t.Error("distinct answers should not be marked")
		}
	})

	t.Run("failed candidates skipped", func(t *testing.T) {
		a := mk("m1", "same words here", "upstream error")
		b := mk("m2", "same words here", "")
		annotateDuplicates([]*domain.Candidate{a, b})

		if b.DuplicateOf != "" {
			t.Errorf("candidate marked duplicate of failed response: %q", b.DuplicateOf)
		}
	})

	t.Run("same adapter across iterations skipped", func(t *testing.T) {
		a := mk("m1", "repeat answer", "")
		b := mk("m1", "repeat answer", "")
		annotateDuplicates([]*domain.Candidate{a, b})

		if b.DuplicateOf != "" {
			t.Errorf("same-adapter repeat marked duplicate: %q", b.DuplicateOf)
		}
	})
}
