// Package pagefmt decodes the fixed-layout, little-endian structures that
// make up the on-disk page format: the page header, the meta page, branch
// and leaf element headers, and the bucket header embedded in leaf values.
//
// Every decoder here is a pure function: given a byte slice, it either
// returns the decoded value or an *errs.Error of kind ErrTooSmallData.
// Decoders allocate nothing beyond the returned value (only DecodeFreelist
// returns a freshly allocated id slice) and never validate
// anything past length (magic/version/checksum validation lives in the
// page classifier, which is the only place integrity checks belong).
package pagefmt

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/boltpage/inspector/internal/errs"
)

// Page flag bits. Exactly one is meaningful per page.
const (
	FlagBranch   uint16 = 0x01
	FlagLeaf     uint16 = 0x02
	FlagMeta     uint16 = 0x04
	FlagFreelist uint16 = 0x10
)

// MetaMagic is the magic number stored in every valid meta page.
const MetaMagic uint32 = 0xED0CDAED

// MetaVersion is the only meta format version this reader understands.
const MetaVersion uint32 = 2

const (
	// PageHeaderSize is the size in bytes of the common page header.
	PageHeaderSize = 16
	// MetaSize is the size in bytes of the meta page, header included.
	MetaSize = 80
	// BranchElementHeaderSize is the size in bytes of a branch element header.
	BranchElementHeaderSize = 16
	// LeafElementHeaderSize is the size in bytes of a leaf element header.
	LeafElementHeaderSize = 16
	// BucketHeaderSize is the size in bytes of an embedded bucket header.
	BucketHeaderSize = 16
)

// PageHeader is the common 16-byte header present at the start of every page.
type PageHeader struct {
	ID       uint64
	Flags    uint16
	Count    uint16
	Overflow uint32
}

// DecodePageHeader reads the page header from the first PageHeaderSize
// bytes of buf.
func DecodePageHeader(buf []byte) (PageHeader, error) {
	if len(buf) < PageHeaderSize {
		return PageHeader{}, errs.TooSmallData(PageHeaderSize, len(buf))
	}
	return PageHeader{
		ID:       binary.LittleEndian.Uint64(buf[0:8]),
		Flags:    binary.LittleEndian.Uint16(buf[8:10]),
		Count:    binary.LittleEndian.Uint16(buf[10:12]),
		Overflow: binary.LittleEndian.Uint32(buf[12:16]),
	}, nil
}

// Meta is the global database state stored in pages 0 and 1.
type Meta struct {
	Magic        uint32
	Version      uint32
	PageSize     uint32
	Flag         uint32
	RootPgid     uint64
	RootSequence uint64
	FreelistPgid uint64
	MaxPgid      uint64
	Txid         uint64
	Checksum     uint64
}

// DecodeMeta reads a Meta from the first MetaSize bytes of buf. It does not
// validate magic, version, or checksum — see page.Classify for that.
//
// Every field is little-endian except Checksum, which is stored
// big-endian-encoded on disk (the one documented exception to the
// otherwise all-little-endian file format).
func DecodeMeta(buf []byte) (Meta, error) {
	if len(buf) < MetaSize {
		return Meta{}, errs.TooSmallData(MetaSize, len(buf))
	}
	b := buf[PageHeaderSize:MetaSize]
	return Meta{
		Magic:        binary.LittleEndian.Uint32(b[0:4]),
		Version:      binary.LittleEndian.Uint32(b[4:8]),
		PageSize:     binary.LittleEndian.Uint32(b[8:12]),
		Flag:         binary.LittleEndian.Uint32(b[12:16]),
		RootPgid:     binary.LittleEndian.Uint64(b[16:24]),
		RootSequence: binary.LittleEndian.Uint64(b[24:32]),
		FreelistPgid: binary.LittleEndian.Uint64(b[32:40]),
		MaxPgid:      binary.LittleEndian.Uint64(b[40:48]),
		Txid:         binary.LittleEndian.Uint64(b[48:56]),
		Checksum:     binary.BigEndian.Uint64(b[56:64]),
	}, nil
}

// MetaChecksum computes the big-endian FNV-1a-64 checksum over bytes
// [16..72) of a meta page buffer, matching the on-disk checksum field as
// decoded by DecodeMeta.
func MetaChecksum(pageBuf []byte) uint64 {
	h := fnv.New64a()
	h.Write(pageBuf[16:72])
	return h.Sum64()
}

// BranchElementHeader is the fixed header preceding a branch element's key
// bytes: { pos, ksize, pgid }.
type BranchElementHeader struct {
	Pos   uint32
	Ksize uint32
	Pgid  uint64
}

// DecodeBranchElementHeader reads a branch element header from buf.
func DecodeBranchElementHeader(buf []byte) (BranchElementHeader, error) {
	if len(buf) < BranchElementHeaderSize {
		return BranchElementHeader{}, errs.TooSmallData(BranchElementHeaderSize, len(buf))
	}
	return BranchElementHeader{
		Pos:   binary.LittleEndian.Uint32(buf[0:4]),
		Ksize: binary.LittleEndian.Uint32(buf[4:8]),
		Pgid:  binary.LittleEndian.Uint64(buf[8:16]),
	}, nil
}

// LeafElementHeader is the fixed header preceding a leaf element's value
// bytes: { flags, pos, ksize, vsize }. Flags==1 marks a bucket entry.
type LeafElementHeader struct {
	Flags uint32
	Pos   uint32
	Ksize uint32
	Vsize uint32
}

// LeafElementBucketFlag marks a leaf element whose value is a bucket header.
const LeafElementBucketFlag uint32 = 1

// DecodeLeafElementHeader reads a leaf element header from buf.
func DecodeLeafElementHeader(buf []byte) (LeafElementHeader, error) {
	if len(buf) < LeafElementHeaderSize {
		return LeafElementHeader{}, errs.TooSmallData(LeafElementHeaderSize, len(buf))
	}
	return LeafElementHeader{
		Flags: binary.LittleEndian.Uint32(buf[0:4]),
		Pos:   binary.LittleEndian.Uint32(buf[4:8]),
		Ksize: binary.LittleEndian.Uint32(buf[8:12]),
		Vsize: binary.LittleEndian.Uint32(buf[12:16]),
	}, nil
}

// BucketHeader is the 16-byte value stored for a bucket leaf element:
// { root, sequence }. Root==0 marks an inline bucket whose contents follow
// immediately as a standalone leaf page.
type BucketHeader struct {
	Root     uint64
	Sequence uint64
}

// DecodeBucketHeader reads a bucket header from buf.
func DecodeBucketHeader(buf []byte) (BucketHeader, error) {
	if len(buf) < BucketHeaderSize {
		return BucketHeader{}, errs.TooSmallData(BucketHeaderSize, len(buf))
	}
	return BucketHeader{
		Root:     binary.LittleEndian.Uint64(buf[0:8]),
		Sequence: binary.LittleEndian.Uint64(buf[8:16]),
	}, nil
}

// FreelistCountSentinel marks that the true freelist count is stored as a
// u64 immediately following the page header, rather than in the header's
// Count field. Note: this is 0xFFFF, not 0xFF — one historical source
// compared against 0xFF, which spec.md §9 flags as a bug, not a variant to
// replicate.
const FreelistCountSentinel uint16 = 0xFFFF

// DecodeFreelist reads the list of free page ids following the page header
// in buf, given the header's Count field.
func DecodeFreelist(buf []byte, count uint16) ([]uint64, error) {
	if count == FreelistCountSentinel {
		if len(buf) < PageHeaderSize+8 {
			return nil, errs.TooSmallData(PageHeaderSize+8, len(buf))
		}
		n := binary.LittleEndian.Uint64(buf[PageHeaderSize : PageHeaderSize+8])
		need := PageHeaderSize + 8 + int(n)*8
		if len(buf) < need {
			return nil, errs.TooSmallData(need, len(buf))
		}
		ids := make([]uint64, n)
		off := PageHeaderSize + 8
		for i := range ids {
			ids[i] = binary.LittleEndian.Uint64(buf[off : off+8])
			off += 8
		}
		return ids, nil
	}
	need := PageHeaderSize + int(count)*8
	if len(buf) < need {
		return nil, errs.TooSmallData(need, len(buf))
	}
	ids := make([]uint64, count)
	off := PageHeaderSize
	for i := range ids {
		ids[i] = binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
	}
	return ids, nil
}
