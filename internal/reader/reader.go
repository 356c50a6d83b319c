// Package reader implements the random-access file reader and page cache
// (spec.md C4): opening the database file, discovering its page size when
// not given explicitly, resolving the active meta page, and serving
// decoded pages from an unbounded cache keyed by page id.
//
// Grounded on the teacher's internal/storage/pager.Pager (OpenPager, one
// mutex guarding the file handle and the page cache) with its LRU eviction
// (PageBufferPool) deliberately dropped — spec.md §4.4 calls for a cache
// with no eviction policy, since a tooling workload traverses the file
// once.
package reader

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/boltpage/inspector/internal/errs"
	"github.com/boltpage/inspector/internal/page"
	"github.com/boltpage/inspector/internal/pagefmt"
)

// Options controls how a Reader opens a database file.
type Options struct {
	// PageSize overrides automatic discovery when non-zero.
	PageSize uint32
}

// minProbeSize and maxProbeSize bound the power-of-two page-size probe
// used when PageSize is not supplied and meta0 does not itself validate.
const (
	minProbeSize = 512
	maxProbeSize = 1 << 20 // 1 MiB
)

// Reader owns the open file handle, the discovered page size, the active
// meta, and the page cache. It is safe for concurrent use: every method
// that touches the file or the cache takes mu.
type Reader struct {
	mu       sync.Mutex
	f        *os.File
	path     string
	pageSize uint32

	activeMeta   pagefmt.Meta
	activeMetaID uint64

	cache map[uint64]*page.Page
}

// Open opens path read-only, discovers the page size (unless opts.PageSize
// is set), and resolves the active meta page.
func Open(path string, opts Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs.FileNotFound(path)
		}
		return nil, errs.IOError(path, err.Error())
	}

	r := &Reader{f: f, path: path, cache: make(map[uint64]*page.Page)}

	pageSize := opts.PageSize
	if pageSize == 0 {
		discovered, err := discoverPageSize(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		pageSize = discovered
	}
	r.pageSize = pageSize

	if err := r.loadActiveMeta(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// discoverPageSize implements spec.md §4.4.2: try meta0 directly; if it
// doesn't validate, probe powers of two from 512 up to 1 MiB by reading
// meta1 at the candidate offset.
func discoverPageSize(f *os.File) (uint32, error) {
	if m, err := tryReadMeta(f, 0, 0); err == nil {
		return m.PageSize, nil
	}
	for sz := uint32(minProbeSize); sz <= maxProbeSize; sz *= 2 {
		m, err := tryReadMeta(f, int64(sz), sz)
		if err != nil {
			continue
		}
		if m.PageSize == sz {
			return sz, nil
		}
	}
	return 0, errs.InvalidMeta()
}

// tryReadMeta reads pagefmt.MetaSize bytes at offset, decodes them as a
// meta, and validates magic, version, and checksum. candidateSize, when
// non-zero, must also equal the meta's PageSize field.
func tryReadMeta(f *os.File, offset int64, candidateSize uint32) (pagefmt.Meta, error) {
	buf := make([]byte, pagefmt.MetaSize)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return pagefmt.Meta{}, err
	}
	m, err := pagefmt.DecodeMeta(buf)
	if err != nil {
		return pagefmt.Meta{}, err
	}
	if m.Magic != pagefmt.MetaMagic || m.Version != pagefmt.MetaVersion {
		return pagefmt.Meta{}, errs.InvalidMeta()
	}
	if candidateSize != 0 && m.PageSize != candidateSize {
		return pagefmt.Meta{}, errs.InvalidMeta()
	}
	if pagefmt.MetaChecksum(buf) != m.Checksum {
		return pagefmt.Meta{}, errs.InvalidMeta()
	}
	return m, nil
}

// loadActiveMeta reads pages 0 and 1, decodes both as meta, and selects
// the active one: the valid meta with the greater txid, page 1 winning
// ties. At least one of the two must be valid.
func (r *Reader) loadActiveMeta() error {
	p0, err0 := r.readPageLocked(0)
	p1, err1 := r.readPageLocked(1)

	var m0, m1 pagefmt.Meta
	valid0, valid1 := false, false
	if err0 == nil && p0.Kind() == page.KindMeta {
		if m, err := p0.Meta(); err == nil {
			m0, valid0 = m, true
		}
	}
	if err1 == nil && p1.Kind() == page.KindMeta {
		if m, err := p1.Meta(); err == nil {
			m1, valid1 = m, true
		}
	}

	switch {
	case valid0 && valid1:
		if m1.Txid >= m0.Txid {
			r.activeMeta, r.activeMetaID = m1, 1
		} else {
			r.activeMeta, r.activeMetaID = m0, 0
		}
	case valid0:
		r.activeMeta, r.activeMetaID = m0, 0
	case valid1:
		r.activeMeta, r.activeMetaID = m1, 1
	default:
		return errs.InvalidMeta()
	}
	return nil
}

// ActiveMeta returns the currently active meta and the id of the page it
// was read from (0 or 1).
func (r *Reader) ActiveMeta() (pagefmt.Meta, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeMeta, r.activeMetaID
}

// PageSize returns the page size this reader was opened with or discovered.
func (r *Reader) PageSize() uint32 {
	return r.pageSize
}

// ReadPage returns the classified page for id, serving it from the cache
// when present. A short read is fatal.
func (r *Reader) ReadPage(id uint64) (*page.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readPageLocked(id)
}

func (r *Reader) readPageLocked(id uint64) (*page.Page, error) {
	if p, ok := r.cache[id]; ok {
		return p, nil
	}

	offset := int64(id) * int64(r.pageSize)
	hdrBuf := make([]byte, pagefmt.PageHeaderSize)
	if _, err := r.f.ReadAt(hdrBuf, offset); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errs.IOError(r.path, "short read on page header")
		}
		return nil, errs.IOError(r.path, err.Error())
	}
	hdr, err := pagefmt.DecodePageHeader(hdrBuf)
	if err != nil {
		return nil, err
	}

	total := uint64(r.pageSize) * (1 + uint64(hdr.Overflow))
	full := make([]byte, total)
	if _, err := r.f.ReadAt(full, offset); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errs.IOError(r.path, "short read on page body")
		}
		return nil, errs.IOError(r.path, err.Error())
	}

	p, err := page.Classify(full, r.pageSize)
	if err != nil {
		return nil, err
	}
	r.cache[id] = p
	return p, nil
}

// Close releases the underlying file handle and drops the page cache.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = nil
	return r.f.Close()
}
