package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/planexec/query"
)

// DefaultBatchSize is the number of parquet rows decoded per read
const DefaultBatchSize = 256

// Reader reads one parquet file as engine rows.
//
// It maintains both an OS file handle and a parquet file handle to enable
// proper resource cleanup.
type Reader struct {
	path   string
	file   *os.File
	pqFile *parquet.File
	leaves []leaf
	schema query.Schema
}

// NewReader opens a parquet file and maps its schema.
//
// Returns an error if the file doesn't exist or is not a valid parquet file.
//
// Example:
//
//	r, err := reader.NewReader("data.parquet")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	leaves, err := leavesOf(pqFile.Schema())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to map schema of %s: %w", path, err)
	}
	cols := make([]query.Column, len(leaves))
	for i, l := range leaves {
		cols[i] = l.column()
	}

	return &Reader{
		path:   path,
		file:   file,
		pqFile: pqFile,
		leaves: leaves,
		schema: query.NewSchema(cols...),
	}, nil
}

// Schema returns the engine schema of the file
func (r *Reader) Schema() query.Schema {
	return r.schema
}

// ParquetSchema returns the underlying parquet schema
func (r *Reader) ParquetSchema() *parquet.Schema {
	return r.pqFile.Schema()
}

// NumRows returns the row count recorded in the file metadata
func (r *Reader) NumRows() int64 {
	return r.pqFile.NumRows()
}

// Close closes the underlying file. It is safe to call Close multiple times.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Rows streams the file. Closing the iterator closes the Reader.
func (r *Reader) Rows(ctx context.Context) query.RowIterator {
	return r.rows(ctx, r.schema)
}

// rows streams the file under schema; values past the file's own columns are filled from extra
func (r *Reader) rows(ctx context.Context, schema query.Schema, extra ...query.Value) *fileIterator {
	return &fileIterator{
		ctx:    ctx,
		r:      r,
		pr:     parquet.NewReader(r.pqFile),
		buf:    make([]parquet.Row, DefaultBatchSize),
		extra:  extra,
		schema: schema,
	}
}

// ReadAll reads every row into memory
func (r *Reader) ReadAll(ctx context.Context) ([]query.Row, error) {
	it := r.Rows(ctx)
	defer func() { _ = it.Close() }()

	var rows []query.Row
	for {
		row, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

// fileIterator decodes a parquet file in batches, checking for cancellation between batches
type fileIterator struct {
	ctx    context.Context
	r      *Reader
	pr     *parquet.Reader
	buf    []parquet.Row
	pos, n int
	eof    bool
	extra  []query.Value
	schema query.Schema
}

func (it *fileIterator) Schema() query.Schema { return it.schema }

func (it *fileIterator) Next() (query.Row, bool, error) {
	for it.pos >= it.n {
		if it.eof {
			return nil, false, nil
		}
		if it.ctx != nil {
			if err := it.ctx.Err(); err != nil {
				return nil, false, query.Cancelled("parquet scan", err)
			}
		}
		n, err := it.pr.ReadRows(it.buf)
		it.pos, it.n = 0, n
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, false, fmt.Errorf("failed to read rows from %s: %w", it.r.path, err)
			}
			it.eof = true
		}
	}

	src := it.buf[it.pos]
	it.pos++
	out := make(query.Row, len(it.r.leaves)+len(it.extra))
	if err := convertRow(it.r.leaves, src, out); err != nil {
		return nil, false, fmt.Errorf("failed to convert row from %s: %w", it.r.path, err)
	}
	copy(out[len(it.r.leaves):], it.extra)
	return out, true, nil
}

func (it *fileIterator) Close() error {
	readErr := it.pr.Close()
	closeErr := it.r.Close()
	if readErr != nil {
		return readErr
	}
	return closeErr
}
