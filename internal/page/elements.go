package page

import (
	"github.com/boltpage/inspector/internal/errs"
	"github.com/boltpage/inspector/internal/pagefmt"
)

// BranchElement is a decoded (key, child page id) pair from a branch page.
type BranchElement struct {
	Key  []byte
	Pgid uint64
}

// BranchElements decodes every element of a branch page, in on-disk (key
// ascending) order.
func (p *Page) BranchElements() ([]BranchElement, error) {
	if p.kind != KindBranch {
		return nil, errs.InvalidPageType(p.header.ID, uint16(pagefmt.FlagBranch), p.header.Flags)
	}
	n := int(p.header.Count)
	out := make([]BranchElement, n)
	base := pagefmt.PageHeaderSize
	for i := 0; i < n; i++ {
		elOff := base + i*pagefmt.BranchElementHeaderSize
		if elOff+pagefmt.BranchElementHeaderSize > len(p.buf) {
			return nil, errs.InvalidData("branch element header out of page bounds")
		}
		hdr, err := pagefmt.DecodeBranchElementHeader(p.buf[elOff:])
		if err != nil {
			return nil, err
		}
		start := uint64(elOff) + uint64(hdr.Pos)
		end := start + uint64(hdr.Ksize)
		if end > uint64(len(p.buf)) {
			return nil, errs.InvalidData("branch element key out of page bounds")
		}
		key := make([]byte, hdr.Ksize)
		copy(key, p.buf[start:end])
		out[i] = BranchElement{Key: key, Pgid: hdr.Pgid}
	}
	for i := 1; i < len(out); i++ {
		if string(out[i-1].Key) >= string(out[i].Key) {
			return nil, errs.InvalidData("branch element keys are not strictly ascending")
		}
	}
	return out, nil
}

// LeafItemKind tags the variant of a decoded leaf element.
type LeafItemKind int

const (
	LeafItemKeyValue LeafItemKind = iota
	LeafItemBucket
	LeafItemInlineBucket
)

// LeafItem is the tagged union a leaf element decodes to: a plain
// key/value pair, a reference to a regular (page-backed) bucket, or an
// inline bucket whose contents are embedded in the value bytes.
type LeafItem struct {
	Kind  LeafItemKind
	Key   []byte
	Value []byte // KeyValue only

	Name        []byte // Bucket / InlineBucket only
	RootPgid    uint64 // Bucket only
	InlineItems []LeafItem // InlineBucket only: recursively-parsed key/value items
}

// LeafElements decodes every element of a leaf page, in on-disk (key
// ascending) order.
func (p *Page) LeafElements() ([]LeafItem, error) {
	if p.kind != KindLeaf {
		return nil, errs.InvalidPageType(p.header.ID, uint16(pagefmt.FlagLeaf), p.header.Flags)
	}
	n := int(p.header.Count)
	out := make([]LeafItem, n)
	base := pagefmt.PageHeaderSize
	for i := 0; i < n; i++ {
		elOff := base + i*pagefmt.LeafElementHeaderSize
		if elOff+pagefmt.LeafElementHeaderSize > len(p.buf) {
			return nil, errs.InvalidData("leaf element header out of page bounds")
		}
		hdr, err := pagefmt.DecodeLeafElementHeader(p.buf[elOff:])
		if err != nil {
			return nil, err
		}
		keyStart := uint64(elOff) + uint64(hdr.Pos)
		keyEnd := keyStart + uint64(hdr.Ksize)
		valEnd := keyEnd + uint64(hdr.Vsize)
		if valEnd > uint64(len(p.buf)) {
			return nil, errs.InvalidData("leaf element value out of page bounds")
		}
		key := make([]byte, hdr.Ksize)
		copy(key, p.buf[keyStart:keyEnd])

		if hdr.Flags != pagefmt.LeafElementBucketFlag {
			value := make([]byte, hdr.Vsize)
			copy(value, p.buf[keyEnd:valEnd])
			out[i] = LeafItem{Kind: LeafItemKeyValue, Key: key, Value: value}
			continue
		}

		bh, err := pagefmt.DecodeBucketHeader(p.buf[keyEnd:valEnd])
		if err != nil {
			return nil, err
		}
		if bh.Root != 0 {
			out[i] = LeafItem{Kind: LeafItemBucket, Key: key, Name: key, RootPgid: bh.Root}
			continue
		}

		inlineBuf := p.buf[keyEnd+pagefmt.BucketHeaderSize : valEnd]
		items, err := decodeInlineLeaf(inlineBuf)
		if err != nil {
			return nil, err
		}
		out[i] = LeafItem{Kind: LeafItemInlineBucket, Key: key, Name: key, RootPgid: 0, InlineItems: items}
	}
	for i := 1; i < len(out); i++ {
		if string(out[i-1].Key) >= string(out[i].Key) {
			return nil, errs.InvalidData("leaf element keys are not strictly ascending")
		}
	}
	return out, nil
}

// decodeInlineLeaf parses the bytes embedded in an inline bucket's value
// (following its bucket header) as a standalone leaf page. The embedded
// page's byte slice is sized to exactly what's left of the value — its own
// page_size field, if any, is purely advisory. Per spec.md §4.3, an inline
// leaf must contain only key/value elements; a nested bucket is an error.
func decodeInlineLeaf(buf []byte) ([]LeafItem, error) {
	inline, err := Classify(buf, uint32(len(buf)))
	if err != nil {
		return nil, err
	}
	if inline.Kind() != KindLeaf {
		return nil, errs.InvalidData("inline bucket does not embed a leaf page")
	}
	items, err := inline.LeafElements()
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.Kind != LeafItemKeyValue {
			return nil, errs.InvalidData("inline bucket contains a nested bucket")
		}
	}
	return items, nil
}
