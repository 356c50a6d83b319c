package tree

import (
	"bytes"

	"github.com/boltpage/inspector/internal/errs"
	"github.com/boltpage/inspector/internal/page"
	"github.com/boltpage/inspector/internal/reader"
)

// Get performs the point lookup described in spec.md §4.6: descend from
// root, binary-searching branch levels, then resolve bucketPath against
// named child buckets before scanning a leaf (or inline items) for key.
// Returns (nil, nil) on a clean miss.
func Get(rdr *reader.Reader, root uint64, bucketPath [][]byte, key []byte) ([]byte, error) {
	pgid := root
	for {
		p, err := rdr.ReadPage(pgid)
		if err != nil {
			return nil, err
		}
		switch p.Kind() {
		case page.KindBranch:
			els, err := p.BranchElements()
			if err != nil {
				return nil, err
			}
			child, err := descendBranch(els, bucketAwareKey(bucketPath, key))
			if err != nil {
				return nil, err
			}
			pgid = child
		case page.KindLeaf:
			return getFromLeaf(rdr, p, bucketPath, key)
		default:
			return nil, errs.InvalidData("expected branch or leaf page during point lookup")
		}
	}
}

// bucketAwareKey picks the key branch elements should be compared against:
// the first bucket-path component when the path is non-empty (we're still
// descending toward a named bucket's root), else the target key itself.
func bucketAwareKey(bucketPath [][]byte, key []byte) []byte {
	if len(bucketPath) > 0 {
		return bucketPath[0]
	}
	return key
}

// descendBranch binary-searches el keys for target; on an exact match pick
// that index, on a miss pick max(0, insertion_point-1) — the child that
// may contain the key, per spec.md §4.6.
func descendBranch(els []page.BranchElement, target []byte) (uint64, error) {
	if len(els) == 0 {
		return 0, errs.InvalidData("branch page has no elements")
	}
	lo, hi := 0, len(els)
	for lo < hi {
		mid := (lo + hi) / 2
		if bytes.Compare(els[mid].Key, target) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	idx := lo
	if idx < len(els) && bytes.Equal(els[idx].Key, target) {
		return els[idx].Pgid, nil
	}
	if idx > 0 {
		idx--
	} else {
		idx = 0
	}
	return els[idx].Pgid, nil
}

func getFromLeaf(rdr *reader.Reader, p *page.Page, bucketPath [][]byte, key []byte) ([]byte, error) {
	els, err := p.LeafElements()
	if err != nil {
		return nil, err
	}
	if len(bucketPath) == 0 {
		for _, el := range els {
			if el.Kind == page.LeafItemKeyValue && bytes.Equal(el.Key, key) {
				return el.Value, nil
			}
		}
		return nil, nil
	}

	name := bucketPath[0]
	rest := bucketPath[1:]
	for _, el := range els {
		if !bytes.Equal(el.Name, name) && !bytes.Equal(el.Key, name) {
			continue
		}
		switch el.Kind {
		case page.LeafItemBucket:
			if len(rest) == 0 {
				return Get(rdr, el.RootPgid, nil, key)
			}
			return Get(rdr, el.RootPgid, rest, key)
		case page.LeafItemInlineBucket:
			if len(rest) != 0 {
				return nil, nil
			}
			for _, it := range el.InlineItems {
				if bytes.Equal(it.Key, key) {
					return it.Value, nil
				}
			}
			return nil, nil
		}
	}
	return nil, nil
}
