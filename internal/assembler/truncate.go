package assembler

import "strings"

// TruncateTableRows enforces a token budget on a table section by
// dropping trailing data rows. The header row is always kept; columns
// are never removed. The second return reports whether rows were cut.
// A section whose header alone exceeds the budget cannot be salvaged and
// comes back empty.
func TruncateTableRows(sec TableSection, maxTokens int) (TableSection, bool) {
	if EstimateTokens(sec.Table) <= maxTokens {
		return sec, false
	}

	lines := strings.SplitAfter(sec.Table, "\n")
	// SplitAfter leaves a trailing empty element for newline-terminated text.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	if len(lines) == 0 {
		return TableSection{}, true
	}

	header := lines[0]
	if EstimateTokens(header) > maxTokens {
		return TableSection{}, true
	}

	var b strings.Builder
	b.WriteString(header)
	kept := 0
	for _, row := range lines[1:] {
		if EstimateTokens(b.String())+EstimateTokens(row) > maxTokens {
			break
		}
		b.WriteString(row)
		kept++
	}
	if kept == 0 {
		return TableSection{}, true
	}

	out := sec
	out.RowCount = kept
	out.Table = b.String()
	return out, true
}

// TruncateStructuredData includes table sections in their original order
// until the budget is exhausted. The last partially-fitting section is
// truncated row-wise; everything after it is dropped. The returned ints
// count truncated and dropped sections.
func TruncateStructuredData(sections []TableSection, maxTokens int) ([]TableSection, int, int) {
	var kept []TableSection
	truncated := 0
	remaining := maxTokens

	for i, sec := range sections {
		cost := EstimateTokens(sec.Table)
		if cost <= remaining {
			kept = append(kept, sec)
			remaining -= cost
			continue
		}

		partial, cut := TruncateTableRows(sec, remaining)
		if cut && partial.Table != "" {
			kept = append(kept, partial)
			truncated++
		}
		return kept, truncated, len(sections) - i - boolToInt(cut && partial.Table != "")
	}
	return kept, truncated, 0
}

// TruncateHistory keeps the most recent turns that fit maxTokens,
// walking from newest to oldest and dropping older turns first. The
// returned slice preserves chronological order. The int reports how many
// turns were dropped.
func TruncateHistory(turns []Turn, maxTokens int) ([]Turn, int) {
	if len(turns) == 0 {
		return nil, 0
	}

	used := 0
	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		cost := EstimateTokens(formatTurn(turns[i]))
		if used+cost > maxTokens {
			break
		}
		used += cost
		start = i
	}
	if start == len(turns) {
		return nil, len(turns)
	}
	return turns[start:], start
}

// formatTurn renders one history turn as a prompt line.
func formatTurn(t Turn) string {
	return t.Role + ": " + t.Content + "\n"
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
