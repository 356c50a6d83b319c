package page

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/boltpage/inspector/internal/pagefmt"
)

// buildBranchPage lays out a branch page with elems in the given order,
// computing pos/ksize from the keys themselves.
func buildBranchPage(t *testing.T, elems []struct {
	key  string
	pgid uint64
}) []byte {
	t.Helper()
	n := len(elems)
	headerEnd := pagefmt.PageHeaderSize + n*pagefmt.BranchElementHeaderSize
	cursor := headerEnd
	type laid struct {
		pos, ksize uint32
		pgid       uint64
		key        string
	}
	out := make([]laid, n)
	for i, e := range elems {
		elOff := pagefmt.PageHeaderSize + i*pagefmt.BranchElementHeaderSize
		out[i] = laid{pos: uint32(cursor - elOff), ksize: uint32(len(e.key)), pgid: e.pgid, key: e.key}
		cursor += len(e.key)
	}
	buf := make([]byte, cursor)
	putHeader(buf, 1, pagefmt.FlagBranch, uint16(n), 0)
	for i, l := range out {
		elOff := pagefmt.PageHeaderSize + i*pagefmt.BranchElementHeaderSize
		binary.LittleEndian.PutUint32(buf[elOff:elOff+4], l.pos)
		binary.LittleEndian.PutUint32(buf[elOff+4:elOff+8], l.ksize)
		binary.LittleEndian.PutUint64(buf[elOff+8:elOff+16], l.pgid)
		start := elOff + int(l.pos)
		copy(buf[start:start+len(l.key)], l.key)
	}
	return buf
}

func TestBranchElementsAscendingOrder(t *testing.T) {
	buf := buildBranchPage(t, []struct {
		key  string
		pgid uint64
	}{{"a", 2}, {"b", 3}})
	p, err := Classify(buf, uint32(len(buf)))
	if err != nil {
		t.Fatal(err)
	}
	els, err := p.BranchElements()
	if err != nil {
		t.Fatal(err)
	}
	if len(els) != 2 || string(els[0].Key) != "a" || string(els[1].Key) != "b" {
		t.Fatalf("unexpected elements: %+v", els)
	}
	if els[0].Pgid != 2 || els[1].Pgid != 3 {
		t.Fatalf("unexpected pgids: %+v", els)
	}
}

func TestBranchElementsNotAscendingFails(t *testing.T) {
	buf := buildBranchPage(t, []struct {
		key  string
		pgid uint64
	}{{"b", 2}, {"a", 3}})
	p, err := Classify(buf, uint32(len(buf)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.BranchElements(); err == nil {
		t.Fatal("expected error for non-ascending branch keys")
	}
}

type rawLeafElem struct {
	key   string
	flags uint32
	value []byte
}

func buildLeafPage(id uint64, elems []rawLeafElem) []byte {
	n := len(elems)
	headerEnd := pagefmt.PageHeaderSize + n*pagefmt.LeafElementHeaderSize
	cursor := headerEnd
	type laid struct {
		pos, ksize, vsize, flags uint32
		key                      string
		value                    []byte
	}
	out := make([]laid, n)
	for i, e := range elems {
		elOff := pagefmt.PageHeaderSize + i*pagefmt.LeafElementHeaderSize
		out[i] = laid{pos: uint32(cursor - elOff), ksize: uint32(len(e.key)), vsize: uint32(len(e.value)), flags: e.flags, key: e.key, value: e.value}
		cursor += len(e.key) + len(e.value)
	}
	buf := make([]byte, cursor)
	putHeader(buf, id, pagefmt.FlagLeaf, uint16(n), 0)
	for i, l := range out {
		elOff := pagefmt.PageHeaderSize + i*pagefmt.LeafElementHeaderSize
		binary.LittleEndian.PutUint32(buf[elOff:elOff+4], l.flags)
		binary.LittleEndian.PutUint32(buf[elOff+4:elOff+8], l.pos)
		binary.LittleEndian.PutUint32(buf[elOff+8:elOff+12], l.ksize)
		binary.LittleEndian.PutUint32(buf[elOff+12:elOff+16], l.vsize)
		start := elOff + int(l.pos)
		copy(buf[start:start+len(l.key)], l.key)
		copy(buf[start+len(l.key):start+len(l.key)+len(l.value)], l.value)
	}
	return buf
}

func TestLeafElementsKeyValue(t *testing.T) {
	buf := buildLeafPage(1, []rawLeafElem{{key: "k", value: []byte("v")}})
	p, err := Classify(buf, uint32(len(buf)))
	if err != nil {
		t.Fatal(err)
	}
	els, err := p.LeafElements()
	if err != nil {
		t.Fatal(err)
	}
	if len(els) != 1 || els[0].Kind != LeafItemKeyValue {
		t.Fatalf("unexpected elements: %+v", els)
	}
	if string(els[0].Key) != "k" || !bytes.Equal(els[0].Value, []byte("v")) {
		t.Fatalf("unexpected kv: %+v", els[0])
	}
}

func bucketHeaderBytes(root, seq uint64) []byte {
	b := make([]byte, pagefmt.BucketHeaderSize)
	binary.LittleEndian.PutUint64(b[0:8], root)
	binary.LittleEndian.PutUint64(b[8:16], seq)
	return b
}

func TestLeafElementsBucket(t *testing.T) {
	buf := buildLeafPage(1, []rawLeafElem{{key: "b", flags: 1, value: bucketHeaderBytes(99, 0)}})
	p, err := Classify(buf, uint32(len(buf)))
	if err != nil {
		t.Fatal(err)
	}
	els, err := p.LeafElements()
	if err != nil {
		t.Fatal(err)
	}
	if els[0].Kind != LeafItemBucket || els[0].RootPgid != 99 || string(els[0].Name) != "b" {
		t.Fatalf("unexpected bucket element: %+v", els[0])
	}
}

func TestLeafElementsInlineBucket(t *testing.T) {
	inner := buildLeafPage(0, []rawLeafElem{{key: "ik", value: []byte("iv")}})
	value := append(bucketHeaderBytes(0, 0), inner...)
	buf := buildLeafPage(1, []rawLeafElem{{key: "ib", flags: 1, value: value}})

	p, err := Classify(buf, uint32(len(buf)))
	if err != nil {
		t.Fatal(err)
	}
	els, err := p.LeafElements()
	if err != nil {
		t.Fatal(err)
	}
	if els[0].Kind != LeafItemInlineBucket || els[0].RootPgid != 0 {
		t.Fatalf("unexpected inline element: %+v", els[0])
	}
	if len(els[0].InlineItems) != 1 || string(els[0].InlineItems[0].Key) != "ik" {
		t.Fatalf("unexpected inline items: %+v", els[0].InlineItems)
	}
}

func TestLeafElementsInlineBucketRejectsNestedBucket(t *testing.T) {
	nestedBucket := buildLeafPage(0, []rawLeafElem{{key: "nb", flags: 1, value: bucketHeaderBytes(5, 0)}})
	value := append(bucketHeaderBytes(0, 0), nestedBucket...)
	buf := buildLeafPage(1, []rawLeafElem{{key: "ib", flags: 1, value: value}})

	p, err := Classify(buf, uint32(len(buf)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.LeafElements(); err == nil {
		t.Fatal("expected error for inline bucket containing a nested bucket")
	}
}

func TestLeafElementsOutOfBoundsValue(t *testing.T) {
	buf := buildLeafPage(1, []rawLeafElem{{key: "k", value: []byte("v")}})
	// Corrupt the element's vsize so the declared value runs past the page.
	binary.LittleEndian.PutUint32(buf[pagefmt.PageHeaderSize+12:pagefmt.PageHeaderSize+16], 1000)

	p, err := Classify(buf, uint32(len(buf)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.LeafElements(); err == nil {
		t.Fatal("expected out-of-bounds error for corrupted vsize")
	}
}
