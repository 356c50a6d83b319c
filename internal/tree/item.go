// Package tree implements the three streaming iterators over a decoded
// B+tree (items, buckets, pages — spec.md C5) and the binary-search point
// lookup (spec.md C6).
//
// Grounded on the teacher's internal/storage/pager.BTree traversal idiom
// (stack/path-based descent, binary search over sorted keys in
// btree_page.go's searchInternal/searchLeaf) generalized from a read-write
// tree to a read-only one, and on original_source/crates/ancla/src/db.rs's
// DbItemIterator for the exact nested-bucket frame-stack state machine —
// the teacher's own BTree has no bucket-within-bucket concept, so that
// part is new code written in the teacher's traversal idiom rather than a
// direct adaptation.
package tree

import (
	"github.com/boltpage/inspector/internal/errs"
	"github.com/boltpage/inspector/internal/page"
	"github.com/boltpage/inspector/internal/reader"
)

// ItemKind tags the variant of item the iterator emits.
type ItemKind int

const (
	ItemKeyValue ItemKind = iota
	ItemBucket
	ItemInlineBucket
)

// Item is a single value produced by ItemIterator: a key/value pair, or a
// bucket descriptor (regular or inline).
type Item struct {
	Kind  ItemKind
	Depth uint64

	// KeyValue
	Key   []byte
	Value []byte

	// Bucket / InlineBucket
	Name         []byte
	ParentName   []byte
	PageID       uint64 // 0 for inline buckets
	IsInline     bool
}

// frame is one entry of the iterator's explicit stack.
type frame struct {
	// page-backed frame
	isPage     bool
	pgid       uint64
	elements   []pageElement // decoded lazily on first visit, branch or leaf
	cursor     int
	depth      uint64
	parentName []byte

	// inline-materialized frame
	items []page.LeafItem
}

// pageElement abstracts over a branch element or a leaf item so a page
// frame can be stepped uniformly regardless of its page's kind.
type pageElement struct {
	isBranch bool
	branch   page.BranchElement
	leaf     page.LeafItem
}

// ItemIterator performs the depth-first walk described in spec.md §4.5.1.
// A decode error is surfaced in-band: Next returns (nil, err) and the
// iterator does not rewind, but the caller may call Next again to continue
// with whatever remains on the stack.
type ItemIterator struct {
	rdr   *reader.Reader
	stack []*frame
	done  bool
}

// NewItemIterator seeds the stack with a single page frame for root at
// depth 0.
func NewItemIterator(rdr *reader.Reader, root uint64) *ItemIterator {
	return &ItemIterator{
		rdr:   rdr,
		stack: []*frame{{isPage: true, pgid: root, depth: 0}},
	}
}

// Next returns the next item, or (nil, nil) when the iterator is
// exhausted.
func (it *ItemIterator) Next() (*Item, error) {
	for {
		if it.done || len(it.stack) == 0 {
			it.done = true
			return nil, nil
		}
		top := it.stack[len(it.stack)-1]

		if !top.isPage {
			if top.cursor >= len(top.items) {
				it.stack = it.stack[:len(it.stack)-1]
				continue
			}
			kv := top.items[top.cursor]
			top.cursor++
			return &Item{Kind: ItemKeyValue, Depth: top.depth + 1, Key: kv.Key, Value: kv.Value}, nil
		}

		if top.elements == nil {
			els, err := it.loadPage(top)
			if err != nil {
				it.stack = it.stack[:len(it.stack)-1]
				return nil, err
			}
			top.elements = els
		}
		if top.cursor >= len(top.elements) {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		el := top.elements[top.cursor]
		top.cursor++

		if el.isBranch {
			it.stack = append(it.stack, &frame{isPage: true, pgid: el.branch.Pgid, depth: top.depth, parentName: top.parentName})
			continue
		}

		li := el.leaf
		switch li.Kind {
		case page.LeafItemKeyValue:
			return &Item{Kind: ItemKeyValue, Depth: top.depth + 1, Key: li.Key, Value: li.Value}, nil
		case page.LeafItemBucket:
			it.stack = append(it.stack, &frame{isPage: true, pgid: li.RootPgid, depth: top.depth + 1, parentName: li.Name})
			return &Item{Kind: ItemBucket, Depth: top.depth + 1, Name: li.Name, ParentName: top.parentName, PageID: li.RootPgid}, nil
		case page.LeafItemInlineBucket:
			it.stack = append(it.stack, &frame{isPage: false, items: li.InlineItems, depth: top.depth + 1})
			return &Item{Kind: ItemInlineBucket, Depth: top.depth + 1, Name: li.Name, ParentName: top.parentName, IsInline: true}, nil
		}
	}
}

func (it *ItemIterator) loadPage(f *frame) ([]pageElement, error) {
	p, err := it.rdr.ReadPage(f.pgid)
	if err != nil {
		return nil, err
	}
	switch p.Kind() {
	case page.KindBranch:
		bels, err := p.BranchElements()
		if err != nil {
			return nil, err
		}
		out := make([]pageElement, len(bels))
		for i, b := range bels {
			out[i] = pageElement{isBranch: true, branch: b}
		}
		return out, nil
	case page.KindLeaf:
		lels, err := p.LeafElements()
		if err != nil {
			return nil, err
		}
		out := make([]pageElement, len(lels))
		for i, l := range lels {
			out[i] = pageElement{isBranch: false, leaf: l}
		}
		return out, nil
	default:
		return nil, errs.InvalidData("expected branch or leaf page in tree traversal")
	}
}

// BucketIterator filters an ItemIterator down to Bucket/InlineBucket items,
// preserving depth-first pre-order.
type BucketIterator struct {
	inner *ItemIterator
}

// NewBucketIterator wraps an ItemIterator, keeping only bucket items.
func NewBucketIterator(rdr *reader.Reader, root uint64) *BucketIterator {
	return &BucketIterator{inner: NewItemIterator(rdr, root)}
}

// Next returns the next bucket descriptor, or (nil, nil) when exhausted.
func (it *BucketIterator) Next() (*Item, error) {
	for {
		item, err := it.inner.Next()
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, nil
		}
		if item.Kind == ItemBucket || item.Kind == ItemInlineBucket {
			return item, nil
		}
	}
}
