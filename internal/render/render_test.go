package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestSanitizePassesThroughValidUTF8(t *testing.T) {
	got := Sanitize([]byte("hello, 世界"))
	if got != "hello, 世界" {
		t.Fatalf("got %q", got)
	}
}

func TestSanitizeReplacesInvalidBytes(t *testing.T) {
	in := []byte{'o', 'k', 0xff, 0xfe, 'x'}
	got := Sanitize(in)
	if !strings.Contains(got, "ok") || !strings.Contains(got, "x") {
		t.Fatalf("got %q, want surviving ascii around replacement", got)
	}
	if strings.Contains(got, "\xff") {
		t.Fatalf("invalid byte leaked into output: %q", got)
	}
	if count := strings.Count(got, "�"); count == 0 {
		t.Fatalf("expected at least one replacement character, got %q", got)
	}
}

func TestSanitizeEmpty(t *testing.T) {
	if got := Sanitize(nil); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestTableWritesHeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	err := Table(&buf, []string{"id", "name"}, [][]string{{"1", "buck"}, {"2", "ibuck"}})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "id") || !strings.Contains(out, "name") {
		t.Fatalf("missing header: %q", out)
	}
	if !strings.Contains(out, "buck") || !strings.Contains(out, "ibuck") {
		t.Fatalf("missing rows: %q", out)
	}
}

func TestJSONEncodesRowsAsObjects(t *testing.T) {
	var buf bytes.Buffer
	rows := [][]any{{uint64(1), "buck"}, {uint64(2), "ibuck"}}
	if err := JSON(&buf, []string{"id", "name"}, rows, "", false); err != nil {
		t.Fatal(err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 2 || decoded[0]["name"] != "buck" || decoded[1]["name"] != "ibuck" {
		t.Fatalf("unexpected decoded rows: %+v", decoded)
	}
}

func TestJSONProjectsDottedPath(t *testing.T) {
	var buf bytes.Buffer
	rows := [][]any{{uint64(1), "buck"}, {uint64(2), "ibuck"}}
	if err := JSON(&buf, []string{"id", "name"}, rows, "name", false); err != nil {
		t.Fatal(err)
	}
	var decoded []any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 2 || decoded[0] != "buck" || decoded[1] != "ibuck" {
		t.Fatalf("unexpected projected values: %+v", decoded)
	}
}
