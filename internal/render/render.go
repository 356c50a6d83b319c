// Package render formats boltpage's CLI output: a text/tabwriter table, a
// JSON array of rows, and a byte-sanitizing transformer for printing
// arbitrary (possibly non-UTF8) keys and values to a terminal without
// corrupting it.
//
// The sanitizer is grounded on quay-claircore's internal/rpm/bdb sibling
// package dockerfile's Unquote/Vars transformers
// (internal/rpm/bdb/../../rhel/dockerfile/unquote.go): a small hand-written
// transform.Transformer driven rune-by-rune, composed via transform.String
// rather than called directly.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"golang.org/x/text/transform"
)

// sanitizeUTF8 replaces invalid UTF-8 byte sequences with the Unicode
// replacement character so raw page bytes (keys/values are arbitrary,
// per spec.md §3) can be printed without corrupting the terminal.
type sanitizeUTF8 struct{ transform.NopResetter }

// Sanitize returns b as a string with any invalid UTF-8 byte sequence replaced by
// U+FFFD, by running it through a transform.Transformer the way the
// teacher's sibling dockerfile package drives Unquote/Vars.
func Sanitize(b []byte) string {
	out, _, err := transform.String(sanitizeUTF8{}, string(b))
	if err != nil {
		return string(utf8.RuneError)
	}
	return out
}

func (sanitizeUTF8) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		r, size := utf8.DecodeRune(src[nSrc:])
		if r == utf8.RuneError && size <= 1 {
			if !atEOF && nSrc+size >= len(src) {
				return nDst, nSrc, transform.ErrShortSrc
			}
			if nDst+len(replacement) > len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			nDst += copy(dst[nDst:], replacement)
			nSrc++
			continue
		}
		if nDst+size > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += copy(dst[nDst:], src[nSrc:nSrc+size])
		nSrc += size
	}
	return nDst, nSrc, nil
}

var replacement = []byte(string(utf8.RuneError))

// Table writes rows as an aligned, tab-separated table to w, header first,
// matching the teacher's cmd/sqltools tabwriter convention
// (text/tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)).
func Table(w io.Writer, cols []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

// JSON writes rows as a JSON array of column->value objects. When path is
// non-empty, its segment before the first '.' names a column and only that
// field of each row object is emitted (a row missing the field is emitted
// as null); later segments are ignored, since row objects are flat;
// this is intentionally a minimal field selector, not a general JSON query
// language — the CLI is a thin external collaborator per spec.md §1.
func JSON(w io.Writer, cols []string, rows [][]any, path string, pretty bool) error {
	objs := make([]map[string]any, len(rows))
	for i, r := range rows {
		m := make(map[string]any, len(cols))
		for j, c := range cols {
			if j < len(r) {
				m[c] = r[j]
			}
		}
		objs[i] = m
	}

	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if path == "" {
		return enc.Encode(objs)
	}

	field := path
	if i := strings.IndexByte(path, '.'); i >= 0 {
		field = path[:i]
	}
	projected := make([]any, len(objs))
	for i, o := range objs {
		projected[i] = o[field]
	}
	return enc.Encode(projected)
}
