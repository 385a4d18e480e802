package query

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Source provides the schema and rows of one base relation
type Source interface {
	Schema() Schema
	Rows(ctx context.Context) (RowIterator, error)
}

// Catalog resolves base relation names
type Catalog interface {
	Table(name string) (Source, error)
}

// MemoryCatalog holds base relations in memory. Table names are case-insensitive.
type MemoryCatalog struct {
	mu     sync.RWMutex
	tables map[string]*Relation
}

// NewMemoryCatalog creates an empty catalog
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{tables: make(map[string]*Relation)}
}

// Add registers (or replaces) a table. The relation must not be modified afterwards.
func (c *MemoryCatalog) Add(name string, rel *Relation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[strings.ToLower(name)] = rel
}

// Table implements Catalog
func (c *MemoryCatalog) Table(name string) (Source, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rel, ok := c.tables[strings.ToLower(name)]
	if !ok {
		return nil, newError(ErrNotFound, "catalog", "table %q not found", name)
	}
	return RelationSource(rel), nil
}

// Names returns the registered table names in sorted order
func (c *MemoryCatalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RelationSource exposes a materialized relation as a Source
func RelationSource(rel *Relation) Source {
	return relationSource{rel: rel}
}

type relationSource struct {
	rel *Relation
}

func (s relationSource) Schema() Schema { return s.rel.Schema }

func (s relationSource) Rows(ctx context.Context) (RowIterator, error) {
	if err := checkCtx(ctx, "scan"); err != nil {
		return nil, err
	}
	return NewRelationIterator(s.rel), nil
}
