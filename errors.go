package boltpage

import "github.com/boltpage/inspector/internal/errs"

// Error and ErrorKind are re-exported from internal/errs so both this
// package's public API and every internal package (pagefmt, page, reader,
// tree, query) can construct and return the same concrete error type
// without an import cycle back to this package.
type Error = errs.Error
type ErrorKind = errs.ErrorKind

const (
	ErrTooSmallData        = errs.ErrTooSmallData
	ErrInvalidData         = errs.ErrInvalidData
	ErrFileNotFound        = errs.ErrFileNotFound
	ErrIO                  = errs.ErrIO
	ErrInvalidPageType     = errs.ErrInvalidPageType
	ErrInvalidPageChecksum = errs.ErrInvalidPageChecksum
	ErrInvalidPageMagic    = errs.ErrInvalidPageMagic
	ErrInvalidPageVersion  = errs.ErrInvalidPageVersion
	ErrInvalidMeta         = errs.ErrInvalidMeta
)
