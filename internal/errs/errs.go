package errs

import "fmt"

// ErrorKind identifies the category of a boltpage error, mirroring the
// kinds a decoder, the reader, or meta validation can fail with.
type ErrorKind int

const (
	ErrTooSmallData ErrorKind = iota
	ErrInvalidData
	ErrFileNotFound
	ErrIO
	ErrInvalidPageType
	ErrInvalidPageChecksum
	ErrInvalidPageMagic
	ErrInvalidPageVersion
	ErrInvalidMeta
)

func (k ErrorKind) String() string {
	switch k {
	case ErrTooSmallData:
		return "too small data"
	case ErrInvalidData:
		return "invalid data"
	case ErrFileNotFound:
		return "file not found"
	case ErrIO:
		return "io error"
	case ErrInvalidPageType:
		return "invalid page type"
	case ErrInvalidPageChecksum:
		return "invalid page checksum"
	case ErrInvalidPageMagic:
		return "invalid page magic"
	case ErrInvalidPageVersion:
		return "invalid page version"
	case ErrInvalidMeta:
		return "invalid meta"
	default:
		return "unknown error"
	}
}

// Error is the single typed error returned by every decoding, reading, and
// traversal operation in boltpage. Callers branch on Kind (or use
// errors.As) rather than matching on Error() text.
type Error struct {
	Kind ErrorKind

	// ID is the page id involved, when applicable.
	ID uint64
	// Expect/Got carry the expected and actual values for size/checksum/
	// magic/version mismatches. Stored as uint64 regardless of the
	// underlying field width (page flags, magic, and version are narrower).
	Expect uint64
	Got    uint64
	// Path is the file path involved in FileNotFound/IOError.
	Path string
	// Reason is a free-form description for InvalidData and IOError.
	Reason string
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrTooSmallData:
		return fmt.Sprintf("boltpage: data buffer is too small, expect %d, got %d", e.Expect, e.Got)
	case ErrInvalidData:
		return fmt.Sprintf("boltpage: invalid data: %s", e.Reason)
	case ErrFileNotFound:
		return fmt.Sprintf("boltpage: file not found: %s", e.Path)
	case ErrIO:
		return fmt.Sprintf("boltpage: could not operate on file %s: %s", e.Path, e.Reason)
	case ErrInvalidPageType:
		return fmt.Sprintf("boltpage: page %d type is invalid, expect %d, got %d", e.ID, e.Expect, e.Got)
	case ErrInvalidPageChecksum:
		return fmt.Sprintf("boltpage: page %d checksum is invalid, expect %016x, got %016x", e.ID, e.Expect, e.Got)
	case ErrInvalidPageMagic:
		return fmt.Sprintf("boltpage: page %d magic is invalid, expect %08x, got %08x", e.ID, e.Expect, e.Got)
	case ErrInvalidPageVersion:
		return fmt.Sprintf("boltpage: page %d version is invalid, expect %d, got %d", e.ID, e.Expect, e.Got)
	case ErrInvalidMeta:
		return "boltpage: file's meta is invalid"
	default:
		return "boltpage: unknown error"
	}
}

// TooSmallData constructs an ErrTooSmallData error.
func TooSmallData(expect, got int) *Error {
	return &Error{Kind: ErrTooSmallData, Expect: uint64(expect), Got: uint64(got)}
}

// InvalidData constructs an ErrInvalidData error with a free-form reason.
func InvalidData(reason string) *Error {
	return &Error{Kind: ErrInvalidData, Reason: reason}
}

// FileNotFound constructs an ErrFileNotFound error.
func FileNotFound(path string) *Error {
	return &Error{Kind: ErrFileNotFound, Path: path}
}

// IOError constructs an ErrIO error.
func IOError(path, detail string) *Error {
	return &Error{Kind: ErrIO, Path: path, Reason: detail}
}

// InvalidPageType constructs an ErrInvalidPageType error.
func InvalidPageType(id uint64, expect, got uint16) *Error {
	return &Error{Kind: ErrInvalidPageType, ID: id, Expect: uint64(expect), Got: uint64(got)}
}

// InvalidPageChecksum constructs an ErrInvalidPageChecksum error.
func InvalidPageChecksum(id, expect, got uint64) *Error {
	return &Error{Kind: ErrInvalidPageChecksum, ID: id, Expect: expect, Got: got}
}

// InvalidPageMagic constructs an ErrInvalidPageMagic error.
func InvalidPageMagic(id uint64, expect, got uint32) *Error {
	return &Error{Kind: ErrInvalidPageMagic, ID: id, Expect: uint64(expect), Got: uint64(got)}
}

// InvalidPageVersion constructs an ErrInvalidPageVersion error.
func InvalidPageVersion(id uint64, expect, got uint32) *Error {
	return &Error{Kind: ErrInvalidPageVersion, ID: id, Expect: uint64(expect), Got: uint64(got)}
}

// InvalidMeta constructs an ErrInvalidMeta error.
func InvalidMeta() *Error {
	return &Error{Kind: ErrInvalidMeta}
}
