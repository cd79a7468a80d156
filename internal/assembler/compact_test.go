package assembler

import (
	"testing"
)

func mustParse(t *testing.T, src string) Value {
	t.Helper()
	v, err := ParseJSON([]byte(src))
	if err != nil {
		t.Fatalf("ParseJSON(%q): %v", src, err)
	}
	return v
}

func TestParseJSONPreservesMemberOrder(t *testing.T) {
	v := mustParse(t, `{"zebra":1,"apple":2,"mango":3}`)
	if v.Kind != KindObject || len(v.Members) != 3 {
		t.Fatalf("unexpected value: %+v", v)
	}
	want := []string{"zebra", "apple", "mango"}
	for i, m := range v.Members {
		if m.Key != want[i] {
			t.Errorf("member %d = %q, want %q", i, m.Key, want[i])
		}
	}
}

func TestParseJSONRejectsMalformed(t *testing.T) {
	for _, src := range []string{"", "not json", `{"a":}`, `[1,2`, `{"a":1} trailing`} {
		if _, err := ParseJSON([]byte(src)); err == nil {
			t.Errorf("ParseJSON(%q): expected error", src)
		}
	}
}

func TestCompactObjectArray(t *testing.T) {
	v := mustParse(t, `{"items":[{"a":1,"b":2},{"a":3,"b":4}]}`)
	sections, _, hasOther := Compact(v)

	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	sec := sections[0]
	if sec.Name != "items" || sec.Path != "items" || sec.RowCount != 2 {
		t.Errorf("unexpected section meta: %+v", sec)
	}
	want := "a,b\n1,2\n3,4\n"
	if sec.Table != want {
		t.Errorf("table = %q, want %q", sec.Table, want)
	}
	if hasOther {
		t.Error("expected no remainder for a single compacted array")
	}
}

func TestCompactRootArray(t *testing.T) {
	v := mustParse(t, `[{"name":"Widget","sales":10},{"name":"Gadget","sales":5}]`)
	sections, _, _ := Compact(v)
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	if sections[0].Name != "data" {
		t.Errorf("root array section name = %q, want %q", sections[0].Name, "data")
	}
	want := "name,sales\nWidget,10\nGadget,5\n"
	if sections[0].Table != want {
		t.Errorf("table = %q, want %q", sections[0].Table, want)
	}
}

func TestCompactMissingFieldsRenderEmpty(t *testing.T) {
	v := mustParse(t, `{"rows":[{"a":1,"b":2},{"a":3}]}`)
	sections, _, _ := Compact(v)
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	want := "a,b\n1,2\n3,\n"
	if sections[0].Table != want {
		t.Errorf("table = %q, want %q", sections[0].Table, want)
	}
}

func TestCompactHeaderFromFirstRecordOnly(t *testing.T) {
	// Extra keys in later records are ignored; the first record decides.
	v := mustParse(t, `{"rows":[{"a":1},{"a":2,"b":9}]}`)
	sections, _, _ := Compact(v)
	want := "a\n1\n2\n"
	if sections[0].Table != want {
		t.Errorf("table = %q, want %q", sections[0].Table, want)
	}
}

func TestCompactNestedValuesStringified(t *testing.T) {
	v := mustParse(t, `{"rows":[{"id":1,"tags":["x","y"],"meta":{"k":"v"}}]}`)
	sections, _, _ := Compact(v)
	want := "id,tags,meta\n1,\"[\"\"x\"\",\"\"y\"\"]\",\"{\"\"k\"\":\"\"v\"\"}\"\n"
	if sections[0].Table != want {
		t.Errorf("table = %q, want %q", sections[0].Table, want)
	}
}

func TestCompactEscapesCommas(t *testing.T) {
	v := mustParse(t, `{"rows":[{"name":"a, b","n":1}]}`)
	sections, _, _ := Compact(v)
	want := "name,n\n\"a, b\",1\n"
	if sections[0].Table != want {
		t.Errorf("table = %q, want %q", sections[0].Table, want)
	}
}

func TestCompactSkipsEmptyAndScalarArrays(t *testing.T) {
	v := mustParse(t, `{"empty":[],"nums":[1,2,3],"ok":[{"a":1}]}`)
	sections, _, hasOther := Compact(v)
	if len(sections) != 1 || sections[0].Name != "ok" {
		t.Fatalf("expected only %q compacted, got %+v", "ok", sections)
	}
	if !hasOther {
		t.Error("scalar array should count as remainder")
	}
}

func TestCompactNestedObjectPath(t *testing.T) {
	v := mustParse(t, `{"report":{"items":[{"a":1}]}}`)
	sections, _, _ := Compact(v)
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	if sections[0].Path != "report.items" || sections[0].Name != "items" {
		t.Errorf("unexpected section meta: %+v", sections[0])
	}
}

func TestCompactNullAndBoolCells(t *testing.T) {
	v := mustParse(t, `{"rows":[{"a":null,"b":true},{"a":1.5,"b":false}]}`)
	sections, _, _ := Compact(v)
	want := "a,b\n,true\n1.5,false\n"
	if sections[0].Table != want {
		t.Errorf("table = %q, want %q", sections[0].Table, want)
	}
}

func TestCompactRemainderPlaceholder(t *testing.T) {
	v := mustParse(t, `{"title":"Q3","items":[{"a":1}]}`)
	sections, processed, hasOther := Compact(v)
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	if !hasOther {
		t.Fatal("expected remainder for the scalar member")
	}
	got := processed.JSON()
	want := `{"title":"Q3","items":"[see items table above]"}`
	if got != want {
		t.Errorf("processed JSON = %s, want %s", got, want)
	}
}
