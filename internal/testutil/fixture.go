// Package testutil builds a small, byte-exact, synthetic database file in
// the on-disk page format spec.md §3 describes, for use by internal
// packages' tests (reader, tree, query). It is not a _test.go file because
// several packages' test suites import the same fixture.
package testutil

import (
	"encoding/binary"
	"hash/fnv"
	"os"
	"path/filepath"
	"testing"
)

// PageSize is the page size used by Fixture.
const PageSize = 4096

const (
	pageHeaderSize = 16
	metaSize       = 80
	branchElHdr    = 16
	leafElHdr      = 16
	bucketHdrSize  = 16
)

const (
	flagBranch   uint16 = 0x01
	flagLeaf     uint16 = 0x02
	flagMeta     uint16 = 0x04
	flagFreelist uint16 = 0x10
)

// Fixture is the small tree built by BuildDB, documented so tests can
// assert against it without re-deriving the layout:
//
//	page 0: meta (txid=1)
//	page 1: meta (txid=2) -- active, larger txid
//	page 2: freelist, free ids = [6]
//	page 3: root, branch: {"b1" -> 4, "m" -> 7}
//	page 4: leaf: bucket "buck" -> 9, kv "foo"="bar", inline bucket "ibuck" {kv "ik"="iv"}
//	page 7: leaf: kv "zk"="zv"
//	page 9: leaf (bucket "buck"'s root): kv "k1"="v1"
//	(page 5, page 8: never referenced or freed -- leaked)
//	max_pgid = 10
type Fixture struct {
	Path         string
	RootPgid     uint64
	FreelistPgid uint64
	MaxPgid      uint64
	ActiveMetaID uint64
	Txid         uint64
}

// BuildDB writes the fixture database to a temp file under t.TempDir() and
// returns it. t.Cleanup handles removal.
func BuildDB(t *testing.T) Fixture {
	t.Helper()

	pages := make(map[uint64][]byte)

	leaf4 := buildLeaf(4, []leafElem{
		{key: []byte("buck"), kind: elemBucket, bucketRoot: 9},
		{key: []byte("foo"), kind: elemKV, value: []byte("bar")},
		{key: []byte("ibuck"), kind: elemInline, inline: buildLeafBytes(0, []leafElem{
			{key: []byte("ik"), kind: elemKV, value: []byte("iv")},
		})},
	})
	leaf7 := buildLeaf(7, []leafElem{
		{key: []byte("zk"), kind: elemKV, value: []byte("zv")},
	})
	leaf9 := buildLeaf(9, []leafElem{
		{key: []byte("k1"), kind: elemKV, value: []byte("v1")},
	})
	branch3 := buildBranch(3, []branchElem{
		{key: []byte("b1"), pgid: 4},
		{key: []byte("m"), pgid: 7},
	})
	freelist2 := buildFreelist(2, []uint64{6})

	pages[3] = branch3
	pages[4] = leaf4
	pages[7] = leaf7
	pages[9] = leaf9
	pages[2] = freelist2

	meta0 := buildMeta(0, 1 /*txid*/, 3, 2, 10)
	meta1 := buildMeta(1, 2 /*txid*/, 3, 2, 10)
	pages[0] = meta0
	pages[1] = meta1

	path := filepath.Join(t.TempDir(), "fixture.db")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	defer f.Close()

	maxID := uint64(9)
	for id := uint64(0); id <= maxID; id++ {
		buf, ok := pages[id]
		if !ok {
			buf = make([]byte, PageSize) // unused page, e.g. 5, 6, 8
		}
		if _, err := f.WriteAt(buf, int64(id)*PageSize); err != nil {
			t.Fatalf("write page %d: %v", id, err)
		}
	}

	return Fixture{
		Path:         path,
		RootPgid:     3,
		FreelistPgid: 2,
		MaxPgid:      10,
		ActiveMetaID: 1,
		Txid:         2,
	}
}

func buildMeta(id, txid, rootPgid, freelistPgid, maxPgid uint64) []byte {
	buf := make([]byte, metaSize)
	putHeader(buf, id, flagMeta, 0, 0)
	b := buf[pageHeaderSize:]
	binary.LittleEndian.PutUint32(b[0:4], 0xED0CDAED) // magic
	binary.LittleEndian.PutUint32(b[4:8], 2)          // version
	binary.LittleEndian.PutUint32(b[8:12], PageSize)
	binary.LittleEndian.PutUint32(b[12:16], 0) // _flag
	binary.LittleEndian.PutUint64(b[16:24], rootPgid)
	binary.LittleEndian.PutUint64(b[24:32], 0) // root sequence
	binary.LittleEndian.PutUint64(b[32:40], freelistPgid)
	binary.LittleEndian.PutUint64(b[40:48], maxPgid)
	binary.LittleEndian.PutUint64(b[48:56], txid)

	h := fnv.New64a()
	h.Write(buf[16:72])
	binary.BigEndian.PutUint64(b[56:64], h.Sum64())

	out := make([]byte, PageSize)
	copy(out, buf)
	return out
}

func putHeader(buf []byte, id uint64, flags, count uint16, overflow uint32) {
	binary.LittleEndian.PutUint64(buf[0:8], id)
	binary.LittleEndian.PutUint16(buf[8:10], flags)
	binary.LittleEndian.PutUint16(buf[10:12], count)
	binary.LittleEndian.PutUint32(buf[12:16], overflow)
}

func buildFreelist(id uint64, ids []uint64) []byte {
	buf := make([]byte, PageSize)
	putHeader(buf, id, flagFreelist, uint16(len(ids)), 0)
	off := pageHeaderSize
	for _, fid := range ids {
		binary.LittleEndian.PutUint64(buf[off:off+8], fid)
		off += 8
	}
	return buf
}

type elemKind int

const (
	elemKV elemKind = iota
	elemBucket
	elemInline
)

type leafElem struct {
	key        []byte
	kind       elemKind
	value      []byte // elemKV
	bucketRoot uint64 // elemBucket
	inline     []byte // elemInline: raw bytes of an embedded leaf page (bucket header prepended here)
}

// buildLeafBytes renders a leaf page's bytes sized exactly to its content
// (no trailing padding) -- used both for real pages (padded to PageSize by
// the caller) and for inline-bucket embedded pages (sized to what's left of
// the value, per spec.md §4.3).
func buildLeafBytes(id uint64, elems []leafElem) []byte {
	// First pass: compute each element's header offset and value layout.
	n := len(elems)
	headerEnd := pageHeaderSize + n*leafElHdr
	type laidOut struct {
		elem  leafElem
		pos   uint32 // relative to this element's own header offset
		ksize uint32
		vsize uint32
		flags uint32
	}
	laid := make([]laidOut, n)
	cursor := headerEnd
	for i, e := range elems {
		elOff := pageHeaderSize + i*leafElHdr
		var valueBytes []byte
		var flags uint32
		switch e.kind {
		case elemKV:
			valueBytes = e.value
		case elemBucket:
			bh := make([]byte, bucketHdrSize)
			binary.LittleEndian.PutUint64(bh[0:8], e.bucketRoot)
			valueBytes = bh
			flags = 1
		case elemInline:
			bh := make([]byte, bucketHdrSize) // root=0, sequence=0
			valueBytes = append(bh, e.inline...)
			flags = 1
		}
		pos := uint32(cursor - elOff)
		laid[i] = laidOut{elem: e, pos: pos, ksize: uint32(len(e.key)), vsize: uint32(len(valueBytes)), flags: flags}
		cursor += len(e.key) + len(valueBytes)
		laid[i].elem.value = valueBytes // stash full value bytes (bucket header + inline, if any)
	}

	buf := make([]byte, cursor)
	putHeader(buf, id, flagLeaf, uint16(n), 0)
	for i, l := range laid {
		elOff := pageHeaderSize + i*leafElHdr
		binary.LittleEndian.PutUint32(buf[elOff:elOff+4], l.flags)
		binary.LittleEndian.PutUint32(buf[elOff+4:elOff+8], l.pos)
		binary.LittleEndian.PutUint32(buf[elOff+8:elOff+12], l.ksize)
		binary.LittleEndian.PutUint32(buf[elOff+12:elOff+16], l.vsize)
		start := elOff + int(l.pos)
		copy(buf[start:start+len(l.elem.key)], l.elem.key)
		copy(buf[start+len(l.elem.key):start+len(l.elem.key)+len(l.elem.value)], l.elem.value)
	}
	return buf
}

func buildLeaf(id uint64, elems []leafElem) []byte {
	content := buildLeafBytes(id, elems)
	if len(content) > PageSize {
		panic("testutil: fixture leaf exceeds PageSize")
	}
	out := make([]byte, PageSize)
	copy(out, content)
	return out
}

type branchElem struct {
	key  []byte
	pgid uint64
}

func buildBranch(id uint64, elems []branchElem) []byte {
	n := len(elems)
	headerEnd := pageHeaderSize + n*branchElHdr
	type laidOut struct {
		pos   uint32
		ksize uint32
		pgid  uint64
		key   []byte
	}
	laid := make([]laidOut, n)
	cursor := headerEnd
	for i, e := range elems {
		elOff := pageHeaderSize + i*branchElHdr
		pos := uint32(cursor - elOff)
		laid[i] = laidOut{pos: pos, ksize: uint32(len(e.key)), pgid: e.pgid, key: e.key}
		cursor += len(e.key)
	}

	buf := make([]byte, PageSize)
	putHeader(buf, id, flagBranch, uint16(n), 0)
	for i, l := range laid {
		elOff := pageHeaderSize + i*branchElHdr
		binary.LittleEndian.PutUint32(buf[elOff:elOff+4], l.pos)
		binary.LittleEndian.PutUint32(buf[elOff+4:elOff+8], l.ksize)
		binary.LittleEndian.PutUint64(buf[elOff+8:elOff+16], l.pgid)
		start := elOff + int(l.pos)
		copy(buf[start:start+len(l.key)], l.key)
	}
	return buf
}
