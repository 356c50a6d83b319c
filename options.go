package boltpage

// Options controls how Open reads a database file. It follows the
// teacher's StorageConfig idiom (internal/storage/db.go): a plain struct
// with documented zero values, never read from the environment by the
// library itself — cmd/boltpage fills one from its --page-size flag, which
// a --config YAML file (decoded with gopkg.in/yaml.v3) can default.
type Options struct {
	// PageSize overrides page-size discovery (spec.md §4.4.2) when
	// non-zero. Leave zero to let Open probe the file.
	PageSize uint32
}
