package tree

import (
	"github.com/boltpage/inspector/internal/errs"
	"github.com/boltpage/inspector/internal/page"
	"github.com/boltpage/inspector/internal/reader"
)

// PageKind mirrors spec.md's PageInfo.type enum, including the two kinds
// (Free, and implicitly anything never visited) that don't correspond to a
// page.Kind value.
type PageKind int

const (
	PageKindMeta PageKind = iota
	PageKindDataBranch
	PageKindDataLeaf
	PageKindFreelist
	PageKindFree
)

func (k PageKind) String() string {
	switch k {
	case PageKindMeta:
		return "Meta"
	case PageKindDataBranch:
		return "DataBranch"
	case PageKindDataLeaf:
		return "DataLeaf"
	case PageKindFreelist:
		return "Freelist"
	case PageKindFree:
		return "Free"
	default:
		return "Unknown"
	}
}

// PageInfo describes one page reachable from the active meta.
type PageInfo struct {
	ID            uint64
	Kind          PageKind
	Overflow      uint32
	Capacity      uint64
	Used          uint64
	ParentPageID  *uint64
}

// PageIterator walks every page reachable from the active meta in FIFO
// (breadth-first, seed-order) order: page 0, page 1, the active freelist
// page, then the active root data page, per spec.md §4.5.3.
type PageIterator struct {
	rdr   *reader.Reader
	queue []queuedPage
	done  bool
}

type queuedPage struct {
	id     uint64
	kind   PageKind
	parent *uint64
}

// NewPageIterator seeds the work queue per spec.md §4.5.3.
func NewPageIterator(rdr *reader.Reader, freelistPgid, rootPgid uint64) *PageIterator {
	return &PageIterator{
		rdr: rdr,
		queue: []queuedPage{
			{id: 0, kind: PageKindMeta},
			{id: 1, kind: PageKindMeta},
			{id: freelistPgid, kind: PageKindFreelist},
			{id: rootPgid, kind: PageKindDataBranch}, // re-classified against the actual page below
		},
	}
}

// Next returns the next PageInfo, or (nil, nil) when exhausted.
func (it *PageIterator) Next() (*PageInfo, error) {
	if it.done || len(it.queue) == 0 {
		it.done = true
		return nil, nil
	}
	q := it.queue[0]
	it.queue = it.queue[1:]

	if q.kind == PageKindFree {
		return &PageInfo{ID: q.id, Kind: PageKindFree, Capacity: uint64(it.rdr.PageSize()), Used: 0, ParentPageID: nil}, nil
	}

	p, err := it.rdr.ReadPage(q.id)
	if err != nil {
		return nil, err
	}

	var kind PageKind
	switch p.Kind() {
	case page.KindMeta:
		kind = PageKindMeta
	case page.KindFreelist:
		kind = PageKindFreelist
		ids, err := p.Freelist()
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			it.queue = append(it.queue, queuedPage{id: id, kind: PageKindFree})
		}
	case page.KindBranch:
		kind = PageKindDataBranch
		els, err := p.BranchElements()
		if err != nil {
			return nil, err
		}
		for _, el := range els {
			it.queue = append(it.queue, queuedPage{id: el.Pgid, kind: PageKindDataBranch, parent: &q.id})
		}
	case page.KindLeaf:
		kind = PageKindDataLeaf
		els, err := p.LeafElements()
		if err != nil {
			return nil, err
		}
		for _, el := range els {
			if el.Kind == page.LeafItemBucket {
				it.queue = append(it.queue, queuedPage{id: el.RootPgid, kind: PageKindDataBranch, parent: &q.id})
			}
		}
	default:
		return nil, errs.InvalidData("unknown page kind during reachability walk")
	}

	used, err := p.Used()
	if err != nil {
		return nil, err
	}
	return &PageInfo{
		ID:           q.id,
		Kind:         kind,
		Overflow:     p.Overflow(),
		Capacity:     p.Capacity(),
		Used:         used,
		ParentPageID: q.parent,
	}, nil
}

// Unreachable returns every page id in [0, maxPgid) not visited by a full
// run of a PageIterator seeded the same way — spec.md §4.5.3's
// "Reachability note" and the "pages unreachable" command (§6).
func Unreachable(rdr *reader.Reader, freelistPgid, rootPgid, maxPgid uint64) ([]uint64, error) {
	seen := make(map[uint64]struct{})
	it := NewPageIterator(rdr, freelistPgid, rootPgid)
	for {
		info, err := it.Next()
		if err != nil {
			return nil, err
		}
		if info == nil {
			break
		}
		seen[info.ID] = struct{}{}
	}
	var out []uint64
	for id := uint64(0); id < maxPgid; id++ {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}
