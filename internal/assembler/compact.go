package assembler

import (
	"fmt"
	"strings"
)

// TableSection is one array-of-records field rendered as CSV text. Raw
// JSON repeats every key name in every record; the tabular form spends
// the key names once, in the header row.
type TableSection struct {
	Name     string // field key ("data" for a root-level array)
	Path     string // dot path from the root, e.g. "report.items"
	RowCount int    // records in the source array
	Table    string // header line + one line per record
}

// Compact walks a JSON value and converts every array-of-objects field
// into a table section, in document order. It returns the sections, a
// copy of the value with each compacted array replaced by a short
// placeholder, and whether that copy still carries anything beyond the
// placeholders (a non-tabular remainder worth rendering).
//
// Arrays whose first element is not an object are left alone, as are
// arrays nested inside other arrays. Empty arrays produce no section.
func Compact(v Value) ([]TableSection, Value, bool) {
	var sections []TableSection

	switch v.Kind {
	case KindArray:
		if sec, ok := tableFor(v, "data", "data"); ok {
			sections = append(sections, sec)
			return sections, Value{Kind: KindString, Str: placeholderFor("data")}, false
		}
		return nil, v, true
	case KindObject:
		processed, hasOther := compactObject(v, "", &sections)
		return sections, processed, hasOther
	default:
		return nil, v, true
	}
}

func compactObject(obj Value, path string, sections *[]TableSection) (Value, bool) {
	out := Value{Kind: KindObject, Members: make([]Member, 0, len(obj.Members))}
	hasOther := false
	for _, m := range obj.Members {
		memberPath := m.Key
		if path != "" {
			memberPath = path + "." + m.Key
		}

		switch m.Value.Kind {
		case KindArray:
			if sec, ok := tableFor(m.Value, m.Key, memberPath); ok {
				*sections = append(*sections, sec)
				out.Members = append(out.Members, Member{
					Key:   m.Key,
					Value: Value{Kind: KindString, Str: placeholderFor(m.Key)},
				})
				continue
			}
			out.Members = append(out.Members, m)
			hasOther = true
		case KindObject:
			nested, nestedOther := compactObject(m.Value, memberPath, sections)
			out.Members = append(out.Members, Member{Key: m.Key, Value: nested})
			hasOther = hasOther || nestedOther
		default:
			out.Members = append(out.Members, m)
			hasOther = true
		}
	}
	return out, hasOther
}

// tableFor renders an array of objects as CSV. The column set and order
// come from the first record; records missing a column render it empty.
// Records that are not objects are skipped.
func tableFor(arr Value, name, path string) (TableSection, bool) {
	if len(arr.Items) == 0 {
		return TableSection{}, false
	}
	first := arr.Items[0]
	if first.Kind != KindObject || len(first.Members) == 0 {
		return TableSection{}, false
	}

	columns := make([]string, 0, len(first.Members))
	for _, m := range first.Members {
		columns = append(columns, m.Key)
	}

	var b strings.Builder
	writeCSVRow(&b, columns)

	rows := 0
	for _, item := range arr.Items {
		if item.Kind != KindObject {
			continue
		}
		cells := make([]string, 0, len(columns))
		for _, col := range columns {
			if val, ok := item.member(col); ok {
				cells = append(cells, val.cellString())
			} else {
				cells = append(cells, "")
			}
		}
		writeCSVRow(&b, cells)
		rows++
	}
	if rows == 0 {
		return TableSection{}, false
	}

	return TableSection{Name: name, Path: path, RowCount: rows, Table: b.String()}, true
}

func writeCSVRow(b *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(csvEscape(cell))
	}
	b.WriteByte('\n')
}

// csvEscape quotes a cell when it contains a comma, quote, or newline.
func csvEscape(cell string) string {
	if !strings.ContainsAny(cell, ",\"\n") {
		return cell
	}
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}

func placeholderFor(name string) string {
	return fmt.Sprintf("[see %s table above]", name)
}
