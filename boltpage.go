// Package boltpage is a read-only inspector for the on-disk page format of
// a single-file embedded key/value store organized as a copy-on-write
// B+tree of fixed-size pages. See SPEC_FULL.md for the full design; this
// file is the public entry point every other internal package is wired
// behind.
package boltpage

import (
	"context"
	"sync"

	tinysql "github.com/SimonWaldherr/tinySQL"

	"github.com/boltpage/inspector/internal/query"
	"github.com/boltpage/inspector/internal/reader"
	"github.com/boltpage/inspector/internal/tree"
)

// Re-exported traversal types, so callers never need to import the
// internal packages directly.
type (
	PageInfo       = tree.PageInfo
	PageKind       = tree.PageKind
	Item           = tree.Item
	ItemKind       = tree.ItemKind
	PageIterator   = tree.PageIterator
	BucketIterator = tree.BucketIterator
	ItemIterator   = tree.ItemIterator
	Row            = tinysql.Row
)

// ResultSet holds a Query's column names and matching rows. Declared here
// rather than re-exported from tinysql because tinysql.Execute returns an
// unexported result type — Query copies its Cols/Rows into one of these
// after the real engine runs.
type ResultSet struct {
	Cols []string
	Rows []Row
}

// Re-exported Item/PageInfo kind constants.
const (
	ItemKeyValue     = tree.ItemKeyValue
	ItemBucket       = tree.ItemBucket
	ItemInlineBucket = tree.ItemInlineBucket

	PageKindMeta       = tree.PageKindMeta
	PageKindDataBranch = tree.PageKindDataBranch
	PageKindDataLeaf   = tree.PageKindDataLeaf
	PageKindFreelist   = tree.PageKindFreelist
	PageKindFree       = tree.PageKindFree
)

// DB is a handle on an open database file. It owns the page cache (via its
// reader) and, lazily, a materialized query catalog for Query. A DB is safe
// for concurrent use by multiple goroutines, mirroring the teacher's
// storage.DB and the spec's "shared, interior-mutable access" contract
// (spec.md §3 Lifecycle, §5 Concurrency).
type DB struct {
	rdr *reader.Reader

	queryOnce sync.Once
	queryErr  error
	catalog   *tinysql.DB
}

// Info summarizes the active meta page, mirroring the fields an operator
// needs to decide which root/freelist page to traverse from.
type Info struct {
	PageSize     uint32
	ActiveMetaID uint64
	RootPgid     uint64
	FreelistPgid uint64
	MaxPgid      uint64
	Txid         uint64
}

// Open opens path read-only and resolves its active meta page. The
// returned DB must be closed with Close.
func Open(path string, opts Options) (*DB, error) {
	rdr, err := reader.Open(path, reader.Options{PageSize: opts.PageSize})
	if err != nil {
		return nil, err
	}
	return &DB{rdr: rdr}, nil
}

// Info returns the active meta's page size, root, freelist, and max page
// ids, and the transaction id that made it active.
func (db *DB) Info() Info {
	m, metaID := db.rdr.ActiveMeta()
	return Info{
		PageSize:     db.rdr.PageSize(),
		ActiveMetaID: metaID,
		RootPgid:     m.RootPgid,
		FreelistPgid: m.FreelistPgid,
		MaxPgid:      m.MaxPgid,
		Txid:         m.Txid,
	}
}

// Get performs a point lookup for key inside the bucket named by the
// (possibly empty) sequence of bucket names in bucketPath, starting at the
// database root. Returns (nil, nil) on a clean miss.
func (db *DB) Get(bucketPath [][]byte, key []byte) ([]byte, error) {
	m, _ := db.rdr.ActiveMeta()
	return tree.Get(db.rdr, m.RootPgid, bucketPath, key)
}

// IterPages returns a fresh page-reachability iterator seeded from the
// active meta (spec.md §4.5.3).
func (db *DB) IterPages() *PageIterator {
	m, _ := db.rdr.ActiveMeta()
	return tree.NewPageIterator(db.rdr, m.FreelistPgid, m.RootPgid)
}

// Unreachable returns every page id in [0, max_pgid) that IterPages never
// visits — the "pages unreachable" command (spec.md §6).
func (db *DB) Unreachable() ([]uint64, error) {
	m, _ := db.rdr.ActiveMeta()
	return tree.Unreachable(db.rdr, m.FreelistPgid, m.RootPgid, m.MaxPgid)
}

// IterBuckets returns a fresh depth-first bucket iterator rooted at the
// database root (spec.md §4.5.2).
func (db *DB) IterBuckets() *BucketIterator {
	m, _ := db.rdr.ActiveMeta()
	return tree.NewBucketIterator(db.rdr, m.RootPgid)
}

// IterItems returns a fresh depth-first item iterator (buckets, inline
// buckets, and key/value pairs) rooted at the database root (spec.md
// §4.5.1).
func (db *DB) IterItems() *ItemIterator {
	m, _ := db.rdr.ActiveMeta()
	return tree.NewItemIterator(db.rdr, m.RootPgid)
}

// Query runs sql against the pages and buckets relations (spec.md §4.7),
// materializing them into the teacher's public tinysql engine on first use.
func (db *DB) Query(ctx context.Context, sql string) (*ResultSet, error) {
	db.queryOnce.Do(func() {
		m, _ := db.rdr.ActiveMeta()
		cat := tinysql.NewDB()
		db.queryErr = query.RegisterRelations(cat, db.rdr, m.RootPgid, m.FreelistPgid)
		db.catalog = cat
	})
	if db.queryErr != nil {
		return nil, db.queryErr
	}
	parser := tinysql.NewParser(sql)
	stmt, err := parser.ParseStatement()
	if err != nil {
		return nil, err
	}
	rs, err := tinysql.Execute(ctx, db.catalog, query.Tenant, stmt)
	if err != nil {
		return nil, err
	}
	return &ResultSet{Cols: rs.Cols, Rows: rs.Rows}, nil
}

// Close releases the underlying file handle and drops the page cache.
func (db *DB) Close() error {
	return db.rdr.Close()
}
