// Package page wraps a decoded byte buffer as a typed page — Meta,
// Freelist, Branch, or Leaf — and extracts its elements.
//
// Construction validates size and flags for every page; element extraction
// adds bounds and key-order checks; meta validation (magic, version, checksum) happens
// both at construction and again on every call to Meta(), matching
// spec.md §4.2's "re-validates checksum on each call" contract.
package page

import (
	"github.com/boltpage/inspector/internal/errs"
	"github.com/boltpage/inspector/internal/pagefmt"
)

// Kind identifies which of the four page types a Page holds.
type Kind int

const (
	KindMeta Kind = iota
	KindFreelist
	KindBranch
	KindLeaf
)

func (k Kind) String() string {
	switch k {
	case KindMeta:
		return "Meta"
	case KindFreelist:
		return "Freelist"
	case KindBranch:
		return "DataBranch"
	case KindLeaf:
		return "DataLeaf"
	default:
		return "Unknown"
	}
}

// Page is a classified view over a page's raw byte buffer.
type Page struct {
	buf      []byte
	pageSize uint32
	header   pagefmt.PageHeader
	kind     Kind
}

// Classify constructs a typed Page from (bytes, page_size). buf must be
// exactly pageSize*(1+overflow) bytes, where overflow is read from the
// page's own header.
func Classify(buf []byte, pageSize uint32) (*Page, error) {
	if pageSize == 0 {
		return nil, errs.InvalidData("page size is zero")
	}
	hdr, err := pagefmt.DecodePageHeader(buf)
	if err != nil {
		return nil, err
	}
	want := uint64(pageSize) * (1 + uint64(hdr.Overflow))
	if uint64(len(buf)) != want {
		return nil, errs.InvalidData("page buffer length does not match page_size*(1+overflow)")
	}

	var kind Kind
	switch hdr.Flags {
	case pagefmt.FlagMeta:
		kind = KindMeta
	case pagefmt.FlagFreelist:
		kind = KindFreelist
	case pagefmt.FlagBranch:
		kind = KindBranch
	case pagefmt.FlagLeaf:
		kind = KindLeaf
	default:
		return nil, errs.InvalidData("unknown page flags")
	}

	p := &Page{buf: buf, pageSize: pageSize, header: hdr, kind: kind}
	if kind == KindMeta {
		if _, err := p.Meta(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Header returns the page's common header.
func (p *Page) Header() pagefmt.PageHeader { return p.header }

// ID returns the page's id.
func (p *Page) ID() uint64 { return p.header.ID }

// Overflow returns the page's overflow count.
func (p *Page) Overflow() uint32 { return p.header.Overflow }

// Kind returns which of {Meta, Freelist, Branch, Leaf} this page is.
func (p *Page) Kind() Kind { return p.kind }

// Capacity returns (overflow+1) * page_size.
func (p *Page) Capacity() uint64 {
	return uint64(p.pageSize) * (1 + uint64(p.header.Overflow))
}

// Used returns the byte footprint of the page's meaningful content: header
// plus the last element's value end for branch/leaf, header plus the
// encoded id list for freelist, header plus sizeof(Meta) for meta.
func (p *Page) Used() (uint64, error) {
	switch p.kind {
	case KindMeta:
		return pagefmt.MetaSize, nil
	case KindFreelist:
		extra := 0
		if p.header.Count == pagefmt.FreelistCountSentinel {
			extra = 8
		}
		ids, err := pagefmt.DecodeFreelist(p.buf, p.header.Count)
		if err != nil {
			return 0, err
		}
		return uint64(pagefmt.PageHeaderSize + extra + len(ids)*8), nil
	case KindBranch:
		return p.usedBranch()
	case KindLeaf:
		return p.usedLeaf()
	default:
		return 0, errs.InvalidData("unknown page kind")
	}
}

func (p *Page) usedBranch() (uint64, error) {
	n := int(p.header.Count)
	if n == 0 {
		return pagefmt.PageHeaderSize, nil
	}
	off := pagefmt.PageHeaderSize
	var maxEnd uint64
	for i := 0; i < n; i++ {
		elOff := off + i*pagefmt.BranchElementHeaderSize
		if elOff+pagefmt.BranchElementHeaderSize > len(p.buf) {
			return 0, errs.InvalidData("branch element header out of page bounds")
		}
		hdr, err := pagefmt.DecodeBranchElementHeader(p.buf[elOff:])
		if err != nil {
			return 0, err
		}
		elementBase := uint64(elOff)
		end := elementBase + uint64(hdr.Pos) + uint64(hdr.Ksize)
		if end > maxEnd {
			maxEnd = end
		}
	}
	return maxEnd, nil
}

func (p *Page) usedLeaf() (uint64, error) {
	n := int(p.header.Count)
	if n == 0 {
		return pagefmt.PageHeaderSize, nil
	}
	off := pagefmt.PageHeaderSize
	var maxEnd uint64
	for i := 0; i < n; i++ {
		elOff := off + i*pagefmt.LeafElementHeaderSize
		if elOff+pagefmt.LeafElementHeaderSize > len(p.buf) {
			return 0, errs.InvalidData("leaf element header out of page bounds")
		}
		hdr, err := pagefmt.DecodeLeafElementHeader(p.buf[elOff:])
		if err != nil {
			return 0, err
		}
		elementBase := uint64(off + i*pagefmt.LeafElementHeaderSize)
		end := elementBase + uint64(hdr.Pos) + uint64(hdr.Ksize) + uint64(hdr.Vsize)
		if end > maxEnd {
			maxEnd = end
		}
	}
	return maxEnd, nil
}

// Meta decodes and validates the meta page. It re-validates the checksum
// on every call, per spec.md §4.2.
func (p *Page) Meta() (pagefmt.Meta, error) {
	if p.kind != KindMeta {
		return pagefmt.Meta{}, errs.InvalidPageType(p.header.ID, uint16(pagefmt.FlagMeta), p.header.Flags)
	}
	m, err := pagefmt.DecodeMeta(p.buf)
	if err != nil {
		return pagefmt.Meta{}, err
	}
	if m.Magic != pagefmt.MetaMagic {
		return pagefmt.Meta{}, errs.InvalidPageMagic(p.header.ID, pagefmt.MetaMagic, m.Magic)
	}
	if m.Version != pagefmt.MetaVersion {
		return pagefmt.Meta{}, errs.InvalidPageVersion(p.header.ID, pagefmt.MetaVersion, m.Version)
	}
	computed := pagefmt.MetaChecksum(p.buf)
	if computed != m.Checksum {
		return pagefmt.Meta{}, errs.InvalidPageChecksum(p.header.ID, computed, m.Checksum)
	}
	return m, nil
}

// Freelist decodes the list of free page ids from a freelist page.
func (p *Page) Freelist() ([]uint64, error) {
	if p.kind != KindFreelist {
		return nil, errs.InvalidPageType(p.header.ID, uint16(pagefmt.FlagFreelist), p.header.Flags)
	}
	return pagefmt.DecodeFreelist(p.buf, p.header.Count)
}
