package assembler

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 4000), 1000},
	}
	for _, c := range cases {
		if got := EstimateTokens(c.text); got != c.want {
			t.Errorf("EstimateTokens(%d chars) = %d, want %d", len(c.text), got, c.want)
		}
	}
}

func TestEstimateTokensMonotonic(t *testing.T) {
	prev := 0
	for i := 0; i < 100; i++ {
		got := EstimateTokens(strings.Repeat("a", i))
		if got < prev {
			t.Fatalf("estimate decreased at length %d: %d < %d", i, got, prev)
		}
		prev = got
	}
}

func TestTruncateTextWithinBudget(t *testing.T) {
	text := "short text"
	if got := TruncateText(text, 100, false); got != text {
		t.Errorf("in-budget text changed: %q", got)
	}
}

func TestTruncateTextCutsHead(t *testing.T) {
	text := strings.Repeat("a", 100)
	got := TruncateText(text, 10, false)
	if EstimateTokens(got) > 10 {
		t.Errorf("truncated text estimates %d tokens, want <= 10", EstimateTokens(got))
	}
	if !strings.HasSuffix(got, truncationMarker) {
		t.Errorf("expected trailing marker, got %q", got)
	}
	if !strings.HasPrefix(got, "aaa") {
		t.Errorf("expected head preserved, got %q", got)
	}
}

func TestTruncateTextPreserveEnding(t *testing.T) {
	text := strings.Repeat("a", 100) + "END"
	got := TruncateText(text, 10, true)
	if !strings.HasPrefix(got, truncationMarker) {
		t.Errorf("expected leading marker, got %q", got)
	}
	if !strings.HasSuffix(got, "END") {
		t.Errorf("expected tail preserved, got %q", got)
	}
	if EstimateTokens(got) > 10 {
		t.Errorf("truncated text estimates %d tokens, want <= 10", EstimateTokens(got))
	}
}

func TestTruncateTextIdempotent(t *testing.T) {
	text := strings.Repeat("word ", 200)
	once := TruncateText(text, 25, false)
	twice := TruncateText(once, 25, false)
	if once != twice {
		t.Errorf("re-truncation shrank content: %q vs %q", once, twice)
	}
}

func TestTruncateTextRuneBoundary(t *testing.T) {
	text := strings.Repeat("é", 100) // two bytes per rune
	got := TruncateText(text, 10, false)
	if !strings.HasSuffix(got, truncationMarker) {
		t.Fatalf("expected marker, got %q", got)
	}
	body := strings.TrimSuffix(got, truncationMarker)
	for _, r := range body {
		if r != 'é' {
			t.Fatalf("rune split mid-sequence: %q", body)
		}
	}
}

func TestTruncateTextTinyBudget(t *testing.T) {
	if got := TruncateText("hello world", 0, false); got != "" {
		t.Errorf("zero budget should yield empty string, got %q", got)
	}
}
