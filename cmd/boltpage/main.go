// Command boltpage is a thin, read-only front end over the boltpage
// library: argument parsing and output formatting only (spec.md §1 keeps
// the CLI itself out of the specified core, an external collaborator).
//
// Flag/subcommand handling follows the teacher's own cmd/sqltools
// convention (flag.NewFlagSet per subcommand, os.Args dispatch,
// text/tabwriter table output); see internal/render for the shared table/
// JSON renderers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/boltpage/inspector"
	"github.com/boltpage/inspector/internal/exporter"
	"github.com/boltpage/inspector/internal/render"
)

// config mirrors the subset of Options and global flags a --config YAML
// file may set, following the teacher's StorageConfig idiom of a plain
// struct decoded up front with no environment binding inside the library
// itself (see SPEC_FULL.md AMBIENT STACK / Configuration).
type config struct {
	DB       string `yaml:"db"`
	PageSize uint32 `yaml:"page-size"`
	Output   string `yaml:"output"`
}

func main() {
	log.SetFlags(0)

	fs := flag.NewFlagSet("boltpage", flag.ExitOnError)
	dbPath := fs.String("db", "", "path to the database file (required)")
	pageSize := fs.Uint("page-size", 0, "override page-size discovery; 0 lets boltpage probe the file")
	output := fs.String("output", "table", "output format: table|json")
	jsonPath := fs.String("json-path", "", "dotted field selector applied to --output json")
	configPath := fs.String("config", "", "YAML file providing db, page-size, output")
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Usage = usage
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if *configPath != "" {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			log.Fatalf("boltpage: %v", err)
		}
		if *dbPath == "" {
			*dbPath = cfg.DB
		}
		if *pageSize == 0 {
			*pageSize = cfg.PageSize
		}
		if *output == "table" && cfg.Output != "" {
			*output = cfg.Output
		}
	}

	if *output != "table" && *output != "json" {
		log.Fatalf("boltpage: --output must be table or json, got %q", *output)
	}
	if *jsonPath != "" && *output != "json" {
		log.Fatalf("boltpage: --json-path requires --output json")
	}
	if *dbPath == "" {
		log.Fatalf("boltpage: --db is required")
	}
	args := fs.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	if *verbose {
		log.Printf("boltpage: opening %s (page-size override=%d)", *dbPath, *pageSize)
	}

	db, err := boltpage.Open(*dbPath, boltpage.Options{PageSize: uint32(*pageSize)})
	if err != nil {
		log.Fatalf("boltpage: %v", err)
	}
	defer db.Close()

	c := &cli{db: db, output: *output, jsonPath: *jsonPath}

	var cmdErr error
	switch args[0] {
	case "info":
		cmdErr = c.info()
	case "buckets":
		cmdErr = c.buckets()
	case "pages":
		cmdErr = c.pages(args[1:])
	case "kv":
		cmdErr = c.kv(args[1:])
	case "query":
		cmdErr = c.query(args[1:])
	case "export":
		cmdErr = c.export(args[1:])
	default:
		usage()
		os.Exit(2)
	}
	if cmdErr != nil {
		log.Fatalf("boltpage: %v", cmdErr)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `boltpage --db <path> [--page-size N] [--output table|json] [--json-path expr] <command>

Commands:
  info                                  print the active meta page's fields
  buckets                                tree-render every bucket
  pages [unreachable]                    list reachable pages, or unreachable page ids
  kv get --buckets name[,name...] --key k   point lookup
  kv list                                stream every item in the tree
  query <sql>                            run SQL against the pages/buckets relations
  export <csv|json|xml|gob> <sql>        run SQL and write the result set in the given format
`)
}

func loadConfig(path string) (config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

type cli struct {
	db       *boltpage.DB
	output   string
	jsonPath string
}

func (c *cli) emit(cols []string, rows [][]any) error {
	if c.output == "json" {
		return render.JSON(os.Stdout, cols, rows, c.jsonPath, true)
	}
	strRows := make([][]string, len(rows))
	for i, r := range rows {
		sr := make([]string, len(r))
		for j, v := range r {
			sr[j] = fmt.Sprint(v)
		}
		strRows[i] = sr
	}
	return render.Table(os.Stdout, cols, strRows)
}

func (c *cli) info() error {
	info := c.db.Info()
	cols := []string{"page_size", "root_pgid", "freelist_pgid", "max_pgid", "txid", "meta_pgid"}
	row := []any{info.PageSize, info.RootPgid, info.FreelistPgid, info.MaxPgid, info.Txid, info.ActiveMetaID}
	return c.emit(cols, [][]any{row})
}

func (c *cli) buckets() error {
	cols := []string{"name", "page_id", "is_inline", "depth", "parent_name"}
	var rows [][]any
	it := c.db.IterBuckets()
	for {
		item, err := it.Next()
		if err != nil {
			return err
		}
		if item == nil {
			break
		}
		rows = append(rows, []any{
			render.Sanitize(item.Name),
			item.PageID,
			item.IsInline,
			item.Depth,
			render.Sanitize(item.ParentName),
		})
	}
	return c.emit(cols, rows)
}

func (c *cli) pages(args []string) error {
	if len(args) > 0 && args[0] == "unreachable" {
		ids, err := c.db.Unreachable()
		if err != nil {
			return err
		}
		rows := make([][]any, len(ids))
		for i, id := range ids {
			rows[i] = []any{id}
		}
		return c.emit([]string{"id"}, rows)
	}

	cols := []string{"id", "type", "overflow", "capacity", "used", "parent_page_id"}
	var rows [][]any
	it := c.db.IterPages()
	for {
		info, err := it.Next()
		if err != nil {
			return err
		}
		if info == nil {
			break
		}
		var parent any
		if info.ParentPageID != nil {
			parent = *info.ParentPageID
		}
		rows = append(rows, []any{info.ID, info.Kind.String(), info.Overflow, info.Capacity, info.Used, parent})
	}
	return c.emit(cols, rows)
}

func (c *cli) kv(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("kv requires a subcommand: get|list")
	}
	switch args[0] {
	case "get":
		return c.kvGet(args[1:])
	case "list":
		return c.kvList()
	default:
		return fmt.Errorf("unknown kv subcommand %q", args[0])
	}
}

func (c *cli) kvGet(args []string) error {
	fs := flag.NewFlagSet("kv get", flag.ExitOnError)
	buckets := fs.String("buckets", "", "comma-separated bucket path")
	key := fs.String("key", "", "key to look up")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" {
		return fmt.Errorf("kv get requires --key")
	}
	var path [][]byte
	if *buckets != "" {
		for _, name := range strings.Split(*buckets, ",") {
			path = append(path, []byte(name))
		}
	}
	val, err := c.db.Get(path, []byte(*key))
	if err != nil {
		return err
	}
	if val == nil {
		fmt.Println("Key not found")
		return nil
	}
	fmt.Printf("%s\n", render.Sanitize(val))
	return nil
}

func (c *cli) kvList() error {
	it := c.db.IterItems()
	for {
		item, err := it.Next()
		if err != nil {
			return err
		}
		if item == nil {
			return nil
		}
		switch item.Kind {
		case boltpage.ItemKeyValue:
			fmt.Printf("Key: %s, Value: %s\n", render.Sanitize(item.Key), render.Sanitize(item.Value))
		case boltpage.ItemBucket, boltpage.ItemInlineBucket:
			fmt.Printf("Bucket: %s\n", render.Sanitize(item.Name))
		}
	}
}

func (c *cli) query(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("query requires a SQL statement")
	}
	sql := strings.Join(args, " ")
	rs, err := c.db.Query(context.Background(), sql)
	if err != nil {
		return err
	}
	if rs == nil {
		return nil
	}
	rows := make([][]any, len(rs.Rows))
	for i, r := range rs.Rows {
		row := make([]any, len(rs.Cols))
		for j, col := range rs.Cols {
			row[j] = r[strings.ToLower(col)]
		}
		rows[i] = row
	}
	return c.emit(rs.Cols, rows)
}

// export runs a query and writes its ResultSet through internal/exporter,
// the teacher's own result-set-to-wire-format encoder (csv/json/xml/gob).
func (c *cli) export(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("export requires a format and a SQL statement")
	}
	format := args[0]
	sql := strings.Join(args[1:], " ")
	rs, err := c.db.Query(context.Background(), sql)
	if err != nil {
		return err
	}
	switch format {
	case "csv":
		return exporter.ExportCSV(os.Stdout, rs, exporter.Options{})
	case "json":
		return exporter.ExportJSON(os.Stdout, rs, exporter.Options{PrettyJSON: true})
	case "xml":
		return exporter.ExportXML(os.Stdout, rs)
	case "gob":
		return exporter.ExportGOB(os.Stdout, rs)
	default:
		return fmt.Errorf("unknown export format %q: want csv, json, xml, or gob", format)
	}
}
