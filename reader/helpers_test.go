package reader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
)

type personRow struct {
	ID     int64    `parquet:"id"`
	Name   string   `parquet:"name"`
	Age    int32    `parquet:"age"`
	Score  *float64 `parquet:"score,optional"`
	Active bool     `parquet:"active"`
}

type address struct {
	Street string `parquet:"street"`
	City   string `parquet:"city"`
}

type addressRow struct {
	ID      int64    `parquet:"id"`
	Address address  `parquet:"address"`
	Tags    []string `parquet:"tags"`
}

type eventRow struct {
	ID int64     `parquet:"id"`
	At time.Time `parquet:"at"`
}

func float64Ptr(f float64) *float64 { return &f }

func people() []personRow {
	return []personRow{
		{ID: 1, Name: "Alice", Age: 30, Score: float64Ptr(95.5), Active: true},
		{ID: 2, Name: "Bob", Age: 25, Score: nil, Active: false},
		{ID: 3, Name: "Carol", Age: 35, Score: float64Ptr(88), Active: true},
	}
}

// writeParquet writes rows to dir/name and returns the path
func writeParquet[T any](t *testing.T, dir, name string, rows []T) string {
	t.Helper()
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	writer := parquet.NewGenericWriter[T](f)
	if _, err := writer.Write(rows); err != nil {
		t.Fatalf("failed to write test data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close file: %v", err)
	}
	return path
}

func writeText(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
