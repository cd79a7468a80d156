package assembler

import (
	"fmt"
	"strings"
	"testing"
)

func tableOfRows(rows int) TableSection {
	var b strings.Builder
	b.WriteString("id,value\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "%d,%s\n", i, strings.Repeat("v", 20))
	}
	return TableSection{Name: "rows", Path: "rows", RowCount: rows, Table: b.String()}
}

func TestTruncateTableRowsWithinBudget(t *testing.T) {
	sec := tableOfRows(3)
	got, cut := TruncateTableRows(sec, 1000)
	if cut {
		t.Error("in-budget table reported as truncated")
	}
	if got.Table != sec.Table {
		t.Error("in-budget table was modified")
	}
}

func TestTruncateTableRowsKeepsHeader(t *testing.T) {
	sec := tableOfRows(50)
	got, cut := TruncateTableRows(sec, 30)
	if !cut {
		t.Fatal("expected truncation")
	}
	if !strings.HasPrefix(got.Table, "id,value\n") {
		t.Errorf("header lost: %q", got.Table)
	}
	if EstimateTokens(got.Table) > 30 {
		t.Errorf("truncated table estimates %d tokens, want <= 30", EstimateTokens(got.Table))
	}
	if got.RowCount >= 50 || got.RowCount == 0 {
		t.Errorf("unexpected kept row count %d", got.RowCount)
	}
	// Whole rows only: every line still has both columns.
	for _, line := range strings.Split(strings.TrimRight(got.Table, "\n"), "\n") {
		if !strings.Contains(line, ",") {
			t.Errorf("split row %q", line)
		}
	}
}

func TestTruncateTableRowsHeaderTooBig(t *testing.T) {
	sec := TableSection{Table: strings.Repeat("col,", 100) + "last\nrow\n"}
	got, cut := TruncateTableRows(sec, 5)
	if !cut || got.Table != "" {
		t.Errorf("expected unsalvageable section to come back empty, got %+v", got)
	}
}

func TestTruncateTableRowsIdempotent(t *testing.T) {
	sec := tableOfRows(50)
	once, _ := TruncateTableRows(sec, 30)
	twice, cut := TruncateTableRows(once, 30)
	if cut || twice.Table != once.Table {
		t.Error("re-truncation shrank an already-fitting table")
	}
}

func TestTruncateStructuredDataKeepsOrder(t *testing.T) {
	sections := []TableSection{tableOfRows(2), tableOfRows(2), tableOfRows(2)}
	sections[0].Name, sections[1].Name, sections[2].Name = "a", "b", "c"

	perSection := EstimateTokens(sections[0].Table)
	kept, truncated, dropped := TruncateStructuredData(sections, perSection*2)
	if len(kept) < 2 {
		t.Fatalf("expected at least 2 sections kept, got %d", len(kept))
	}
	if kept[0].Name != "a" || kept[1].Name != "b" {
		t.Errorf("section order not preserved: %+v", kept)
	}
	if truncated+dropped == 0 {
		t.Error("expected the third section truncated or dropped")
	}
}

func TestTruncateStructuredDataAllFit(t *testing.T) {
	sections := []TableSection{tableOfRows(2), tableOfRows(2)}
	kept, truncated, dropped := TruncateStructuredData(sections, 10000)
	if len(kept) != 2 || truncated != 0 || dropped != 0 {
		t.Errorf("kept=%d truncated=%d dropped=%d, want 2/0/0", len(kept), truncated, dropped)
	}
}

func makeTurns(n int) []Turn {
	turns := make([]Turn, 0, n)
	for i := 0; i < n; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		turns = append(turns, Turn{Role: role, Content: fmt.Sprintf("message number %d padding padding", i)})
	}
	return turns
}

func TestTruncateHistoryDropsOldestFirst(t *testing.T) {
	turns := makeTurns(10)
	perTurn := EstimateTokens(formatTurn(turns[9]))
	kept, dropped := TruncateHistory(turns, perTurn*3)

	if len(kept)+dropped != 10 {
		t.Fatalf("kept %d + dropped %d != 10", len(kept), dropped)
	}
	if len(kept) == 0 {
		t.Fatal("expected some turns kept")
	}
	// Retained turns are exactly the most recent, chronological.
	if kept[len(kept)-1].Content != turns[9].Content {
		t.Errorf("most recent turn missing: %+v", kept[len(kept)-1])
	}
	first := 10 - len(kept)
	for i, turn := range kept {
		if turn.Content != turns[first+i].Content {
			t.Errorf("kept[%d] = %q, want %q", i, turn.Content, turns[first+i].Content)
		}
	}
}

func TestTruncateHistoryAllFit(t *testing.T) {
	turns := makeTurns(4)
	kept, dropped := TruncateHistory(turns, 10000)
	if len(kept) != 4 || dropped != 0 {
		t.Errorf("kept=%d dropped=%d, want 4/0", len(kept), dropped)
	}
}

func TestTruncateHistoryZeroBudget(t *testing.T) {
	kept, dropped := TruncateHistory(makeTurns(5), 0)
	if len(kept) != 0 || dropped != 5 {
		t.Errorf("kept=%d dropped=%d, want 0/5", len(kept), dropped)
	}
}
