package reader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/vegasq/planexec/query"
)

// FileColumn is the column added to rows read through a glob pattern
const FileColumn = "_file"

// maxFiles limits glob expansion to prevent resource exhaustion
const maxFiles = 1000

// Source is one base relation backed by a parquet file or a glob of files with the same schema.
// It implements query.Source.
type Source struct {
	pattern string
	files   []string
	glob    bool
	// fileSchema is the schema every file must have; schema may add FileColumn
	fileSchema query.Schema
	schema     query.Schema
	log        *zap.Logger
}

// OpenSource resolves a path or glob pattern and maps its schema.
//
// The pattern can include wildcards:
//   - * matches any sequence of non-separator characters
//   - ? matches any single non-separator character
//   - [range] matches any character in range
//
// Glob reads add a "_file" column holding the source path of each row; plain paths do not,
// so the output shape of a single file never changes. Every matched file must have the
// same columns as the first.
func OpenSource(pattern string, log *zap.Logger) (*Source, error) {
	if log == nil {
		log = zap.NewNop()
	}
	src := &Source{pattern: pattern, log: log}

	if !isGlob(pattern) {
		src.files = []string{pattern}
	} else {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, query.NewError(query.ErrValidation, "parquet", "invalid glob pattern %q: %v", pattern, err)
		}
		if len(matches) == 0 {
			return nil, query.NewError(query.ErrNotFound, "parquet", "no files match pattern %s", pattern)
		}
		if len(matches) > maxFiles {
			return nil, query.NewError(query.ErrResourceExhausted, "parquet",
				"glob pattern matched too many files (%d), maximum is %d", len(matches), maxFiles)
		}
		sort.Strings(matches)
		src.files = matches
		src.glob = true
	}

	for i, path := range src.files {
		r, err := NewReader(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, query.NewError(query.ErrNotFound, "parquet", "file %s does not exist", path)
			}
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		schema := r.schema
		_ = r.Close()

		if i == 0 {
			src.fileSchema = schema
			continue
		}
		if err := sameColumns(src.fileSchema, schema); err != nil {
			return nil, query.NewError(query.ErrSchema, "parquet", "%s does not match %s: %v", path, src.files[0], err)
		}
	}

	src.schema = src.fileSchema
	if src.glob {
		if _, err := src.fileSchema.Index(FileColumn); err == nil {
			return nil, query.NewError(query.ErrSchema, "parquet", "column %s is reserved for glob reads", FileColumn)
		}
		cols := append(append([]query.Column{}, src.fileSchema.Columns...), query.Column{Name: FileColumn, Type: query.TypeText})
		src.schema = query.NewSchema(cols...)
	}
	log.Debug("parquet source opened",
		zap.String("pattern", pattern),
		zap.Int("files", len(src.files)),
		zap.Int("columns", src.schema.Len()))
	return src, nil
}

// Schema implements query.Source
func (s *Source) Schema() query.Schema {
	return s.schema
}

// Files returns the files read by the source, in read order
func (s *Source) Files() []string {
	return append([]string(nil), s.files...)
}

// Rows implements query.Source. Files are opened one at a time as the iterator advances.
func (s *Source) Rows(ctx context.Context) (query.RowIterator, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, query.Cancelled("parquet scan", err)
		}
	}
	return &sourceIterator{ctx: ctx, src: s}, nil
}

// sourceIterator chains the files of a source
type sourceIterator struct {
	ctx  context.Context
	src  *Source
	next int
	cur  *fileIterator
}

func (it *sourceIterator) Schema() query.Schema { return it.src.schema }

func (it *sourceIterator) Next() (query.Row, bool, error) {
	for {
		if it.cur == nil {
			if it.next >= len(it.src.files) {
				return nil, false, nil
			}
			if err := it.open(it.src.files[it.next]); err != nil {
				return nil, false, err
			}
			it.next++
		}

		row, ok, err := it.cur.Next()
		if err != nil || ok {
			return row, ok, err
		}
		if err := it.cur.Close(); err != nil {
			return nil, false, fmt.Errorf("failed to close %s: %w", it.cur.r.path, err)
		}
		it.cur = nil
	}
}

func (it *sourceIterator) open(path string) error {
	r, err := NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := sameColumns(it.src.fileSchema, r.schema); err != nil {
		_ = r.Close()
		return query.NewError(query.ErrSchema, "parquet", "%s changed since it was opened: %v", path, err)
	}
	var extra []query.Value
	if it.src.glob {
		extra = []query.Value{query.NewText(path)}
	}
	it.src.log.Debug("reading parquet file", zap.String("path", path), zap.Int64("rows", r.NumRows()))
	it.cur = r.rows(it.ctx, it.src.schema, extra...)
	return nil
}

func (it *sourceIterator) Close() error {
	if it.cur == nil {
		return nil
	}
	err := it.cur.Close()
	it.cur = nil
	return err
}

// sameColumns checks that b has the columns of a, by name and type
func sameColumns(a, b query.Schema) error {
	if a.Len() != b.Len() {
		return fmt.Errorf("has %d columns, want %d", b.Len(), a.Len())
	}
	for i := 0; i < a.Len(); i++ {
		ca, cb := a.Columns[i], b.Columns[i]
		if !strings.EqualFold(ca.Name, cb.Name) || ca.Type != cb.Type {
			return fmt.Errorf("column %d is %s %s, want %s %s", i, cb.Name, cb.Type, ca.Name, ca.Type)
		}
	}
	return nil
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// Catalog resolves table names to parquet sources. It implements query.Catalog.
//
// A name is looked up in the configured table map first; a mapped path may be a glob
// and is taken relative to the data directory unless absolute. Unmapped names resolve
// to <data dir>/<name>.parquet. Names are case-insensitive.
type Catalog struct {
	dataDir string
	tables  map[string]string
	log     *zap.Logger

	mu      sync.Mutex
	sources map[string]*Source
}

// NewCatalog creates a catalog over a data directory and an optional table map
func NewCatalog(dataDir string, tables map[string]string, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	normalized := make(map[string]string, len(tables))
	for name, path := range tables {
		normalized[strings.ToLower(name)] = path
	}
	return &Catalog{
		dataDir: dataDir,
		tables:  normalized,
		log:     log,
		sources: make(map[string]*Source),
	}
}

// Table implements query.Catalog. Opened sources are cached by name.
func (c *Catalog) Table(name string) (query.Source, error) {
	key := strings.ToLower(name)

	c.mu.Lock()
	defer c.mu.Unlock()
	if src, ok := c.sources[key]; ok {
		return src, nil
	}

	path, err := c.resolve(key)
	if err != nil {
		return nil, err
	}
	src, err := OpenSource(path, c.log.With(zap.String("table", key)))
	if err != nil {
		return nil, fmt.Errorf("failed to open table %s: %w", name, err)
	}
	c.sources[key] = src
	return src, nil
}

func (c *Catalog) resolve(key string) (string, error) {
	if path, ok := c.tables[key]; ok {
		if !filepath.IsAbs(path) && c.dataDir != "" {
			path = filepath.Join(c.dataDir, path)
		}
		return path, nil
	}
	if c.dataDir == "" {
		return "", query.NewError(query.ErrNotFound, "catalog", "table %q not found", key)
	}
	path := filepath.Join(c.dataDir, key+".parquet")
	if _, err := os.Stat(path); err != nil {
		return "", query.NewError(query.ErrNotFound, "catalog", "table %q not found in %s", key, c.dataDir)
	}
	return path, nil
}

// Names lists the mapped tables and the parquet files of the data directory, sorted
func (c *Catalog) Names() ([]string, error) {
	seen := make(map[string]bool)
	for name := range c.tables {
		seen[name] = true
	}
	if c.dataDir != "" {
		entries, err := os.ReadDir(c.dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to list data directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
				continue
			}
			seen[strings.ToLower(strings.TrimSuffix(e.Name(), ".parquet"))] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
