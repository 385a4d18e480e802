package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultMaxRecursion bounds the iterations of a recursive CTE
	DefaultMaxRecursion = 1000
	// DefaultMaxRecursiveRows bounds the rows accumulated by a recursive CTE
	DefaultMaxRecursiveRows = 1_000_000
	// DefaultBatchSize is the number of rows processed between cancellation checks
	DefaultBatchSize = 1024
)

// Options configures an Executor
type Options struct {
	// NullOrdering places NULLs in every sort whose key does not override it. Required.
	NullOrdering NullOrdering
	// MaxRecursion bounds recursive CTE iterations (0 selects DefaultMaxRecursion)
	MaxRecursion int
	// MaxRecursiveRows bounds recursive CTE output (0 selects DefaultMaxRecursiveRows)
	MaxRecursiveRows int
	// MaxMaterializedRows bounds the rows buffered by any blocking operator (0 is unbounded)
	MaxMaterializedRows int
	// BatchSize is the cancellation check interval in rows (0 selects DefaultBatchSize)
	BatchSize int
	// Parallel evaluates independent inputs (set operator arms, hash join sides) concurrently
	Parallel bool
	// Logger receives debug and warning events; nil disables logging
	Logger *zap.Logger
}

// Validate rejects missing or out-of-range options
func (o Options) Validate() error {
	if o.NullOrdering != NullsFirst && o.NullOrdering != NullsLast {
		return newError(ErrValidation, "options", "null ordering must be NullsFirst or NullsLast")
	}
	if o.MaxRecursion < 0 || o.MaxRecursiveRows < 0 || o.MaxMaterializedRows < 0 || o.BatchSize < 0 {
		return newError(ErrValidation, "options", "limits must not be negative")
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.MaxRecursion == 0 {
		o.MaxRecursion = DefaultMaxRecursion
	}
	if o.MaxRecursiveRows == 0 {
		o.MaxRecursiveRows = DefaultMaxRecursiveRows
	}
	if o.BatchSize == 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Executor evaluates logical plans against a catalog.
// It holds no per-query state and may run queries concurrently.
type Executor struct {
	catalog Catalog
	opts    Options
}

// NewExecutor creates an executor
func NewExecutor(catalog Catalog, opts Options) (*Executor, error) {
	if catalog == nil {
		return nil, newError(ErrValidation, "executor", "catalog is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Executor{catalog: catalog, opts: opts.withDefaults()}, nil
}

// Execute evaluates the plan and materializes the result.
// On error no partial result is returned.
func (e *Executor) Execute(ctx context.Context, plan Node) (*Relation, error) {
	start := time.Now()
	ec := e.newContext(ctx)
	ec.log.Debug("executing plan")

	it, err := e.open(ec, plan)
	if err != nil {
		ec.logFailure(err)
		return nil, err
	}
	rows, err := drain(ec.ctx, it, "execute", ec.opts.BatchSize, 0)
	if err != nil {
		ec.logFailure(err)
		return nil, err
	}

	rel := &Relation{Schema: it.Schema(), Rows: rows, Ordered: isOrdered(plan)}
	ec.log.Debug("plan executed", zap.Int("rows", len(rows)), zap.Duration("elapsed", time.Since(start)))
	return rel, nil
}

// Stream evaluates the plan and returns an iterator over the result.
// Streaming stages pull rows on demand; blocking stages run before the first row is returned.
// The caller must Close the iterator.
func (e *Executor) Stream(ctx context.Context, plan Node) (RowIterator, error) {
	ec := e.newContext(ctx)
	ec.log.Debug("streaming plan")
	it, err := e.open(ec, plan)
	if err != nil {
		ec.logFailure(err)
		return nil, err
	}
	return it, nil
}

func (e *Executor) newContext(ctx context.Context) *ExecutionContext {
	if ctx == nil {
		ctx = context.Background()
	}
	ec := NewExecutionContext(ctx, e.catalog, e.opts)
	ec.log = ec.log.With(zap.String("query_id", uuid.NewString()))
	return ec
}

func (e *Executor) open(ec *ExecutionContext, plan Node) (RowIterator, error) {
	if err := ValidatePlan(plan); err != nil {
		return nil, err
	}
	if err := checkCtx(ec.ctx, "execute"); err != nil {
		return nil, err
	}
	return ec.build(plan)
}

// isOrdered reports whether the plan's result carries an ORDER BY
func isOrdered(node Node) bool {
	switch n := node.(type) {
	case *Select:
		return len(n.OrderBy) > 0
	case *With:
		return isOrdered(n.Body)
	default:
		return false
	}
}

// ExecutionContext holds the state of one query execution
type ExecutionContext struct {
	ctx     context.Context
	catalog Catalog
	opts    Options
	log     *zap.Logger
	// ctes maps lower-cased CTE names bound in this scope to their materialized results
	ctes       map[string]*Relation
	subqueries *subqueryCache
	parent     *ExecutionContext
}

// NewExecutionContext creates a root execution context
func NewExecutionContext(ctx context.Context, catalog Catalog, opts Options) *ExecutionContext {
	opts = opts.withDefaults()
	return &ExecutionContext{
		ctx:        ctx,
		catalog:    catalog,
		opts:       opts,
		log:        opts.Logger,
		ctes:       make(map[string]*Relation),
		subqueries: newSubqueryCache(),
	}
}

// NewChildContext creates a child context with its own CTE scope that still sees the parent's
func (ec *ExecutionContext) NewChildContext() *ExecutionContext {
	return &ExecutionContext{
		ctx:        ec.ctx,
		catalog:    ec.catalog,
		opts:       ec.opts,
		log:        ec.log,
		ctes:       make(map[string]*Relation),
		subqueries: newSubqueryCache(),
		parent:     ec,
	}
}

// withContext returns a copy sharing the CTE scope but observing ctx
func (ec *ExecutionContext) withContext(ctx context.Context) *ExecutionContext {
	cp := *ec
	cp.ctx = ctx
	return &cp
}

// lookupCTE finds a CTE by name in this scope or any enclosing one
func (ec *ExecutionContext) lookupCTE(name string) (*Relation, bool) {
	key := strings.ToLower(name)
	for c := ec; c != nil; c = c.parent {
		if rel, ok := c.ctes[key]; ok {
			return rel, true
		}
	}
	return nil, false
}

func (ec *ExecutionContext) bindCTE(name string, rel *Relation) {
	ec.ctes[strings.ToLower(name)] = rel
}

// nullsFirst resolves a per-key NULL placement against the engine default
func (ec *ExecutionContext) nullsFirst(n NullOrdering) bool {
	if n == NullsDefault {
		n = ec.opts.NullOrdering
	}
	return n == NullsFirst
}

// materialize runs node to completion under the blocking-operator bound
func (ec *ExecutionContext) materialize(node Node, op string) (*Relation, error) {
	it, err := ec.build(node)
	if err != nil {
		return nil, err
	}
	rows, err := drain(ec.ctx, it, op, ec.opts.BatchSize, ec.opts.MaxMaterializedRows)
	if err != nil {
		return nil, err
	}
	return &Relation{Schema: it.Schema(), Rows: rows}, nil
}

func (ec *ExecutionContext) logFailure(err error) {
	switch {
	case errors.Is(err, ErrRecursionLimit), errors.Is(err, ErrResourceExhausted):
		ec.log.Warn("query limit exceeded", zap.Error(err))
	case errors.Is(err, ErrCancelled):
		ec.log.Debug("query cancelled", zap.Error(err))
	default:
		ec.log.Debug("query failed", zap.Error(err))
	}
}

// build turns a plan node into an iterator
func (ec *ExecutionContext) build(node Node) (RowIterator, error) {
	switch n := node.(type) {
	case *Scan:
		return ec.scan(n.Table, n.Alias)
	case *CTERef:
		rel, ok := ec.lookupCTE(n.Name)
		if !ok {
			return nil, newError(ErrNotFound, "cte", "CTE %q is not defined", n.Name)
		}
		return newSliceIterator(rel.Schema.Qualify(qualifier(n.Alias, n.Name)), rel.Rows), nil
	case *Values:
		return newSliceIterator(n.Schema.Qualify(n.Alias), n.Rows), nil
	case *Join:
		return ec.join(n)
	case *Select:
		return ec.executeSelect(n)
	case *SetOp:
		return ec.setOp(n)
	case *With:
		return ec.with(n)
	default:
		return nil, newError(ErrValidation, "build", "unsupported plan node %T", node)
	}
}

// scan reads a CTE in scope or a catalog table; CTE names shadow tables
func (ec *ExecutionContext) scan(table, alias string) (RowIterator, error) {
	q := qualifier(alias, table)
	if rel, ok := ec.lookupCTE(table); ok {
		return newSliceIterator(rel.Schema.Qualify(q), rel.Rows), nil
	}
	src, err := ec.catalog.Table(table)
	if err != nil {
		return nil, err
	}
	it, err := src.Rows(ec.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", table, err)
	}
	return &schemaIterator{input: it, schema: src.Schema().Qualify(q)}, nil
}

// qualifier returns the alias, or the base name of a table reference
func qualifier(alias, name string) string {
	if alias != "" {
		return alias
	}
	if idx := strings.LastIndexAny(name, "/\\"); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.Index(name, "."); idx > 0 {
		name = name[:idx]
	}
	return name
}

// with materializes each CTE in a child scope, then builds the body
func (ec *ExecutionContext) with(n *With) (RowIterator, error) {
	child := ec.NewChildContext()
	for _, cte := range n.CTEs {
		var (
			rel *Relation
			err error
		)
		if cte.IsRecursive() {
			rel, err = child.recursive(cte)
		} else {
			rel, err = child.materializeCTE(cte)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to materialize CTE %s: %w", cte.Name, err)
		}
		child.bindCTE(cte.Name, rel)
	}
	return child.build(n.Body)
}

// materializeCTE evaluates a non-recursive CTE once
func (ec *ExecutionContext) materializeCTE(cte CTE) (*Relation, error) {
	rel, err := ec.materialize(cte.Query, "cte "+cte.Name)
	if err != nil {
		return nil, err
	}
	schema, err := cteSchema(cte, rel.Schema)
	if err != nil {
		return nil, err
	}
	return &Relation{Schema: schema, Rows: rel.Rows}, nil
}

// cteSchema applies the CTE column list and drops qualifiers
func cteSchema(cte CTE, schema Schema) (Schema, error) {
	if len(cte.Columns) > 0 && len(cte.Columns) != schema.Len() {
		return Schema{}, newError(ErrSchema, "cte "+cte.Name, "%d column names given for %d columns", len(cte.Columns), schema.Len())
	}
	cols := make([]Column, schema.Len())
	for i, c := range schema.Columns {
		c.Table = ""
		if len(cte.Columns) > 0 {
			c.Name = cte.Columns[i]
		}
		cols[i] = c
	}
	return Schema{Columns: cols}, nil
}

// executeSelect composes the stages of one query block
func (ec *ExecutionContext) executeSelect(s *Select) (RowIterator, error) {
	var (
		input RowIterator
		err   error
	)
	if s.From == nil {
		input = newSliceIterator(Schema{}, []Row{{}})
	} else if input, err = ec.build(s.From); err != nil {
		return nil, err
	}

	// WHERE
	if s.Where != nil {
		if input, err = ec.filter(input, ec.evaluatorFor(input.Schema()), s.Where, "WHERE"); err != nil {
			return nil, err
		}
	}

	var exprs []Expr
	for _, item := range s.Projection {
		exprs = append(exprs, item.Expr)
	}
	for _, key := range s.OrderBy {
		exprs = append(exprs, key.Expr)
	}

	// GROUP BY, aggregates and HAVING
	ev := ec.evaluatorFor(input.Schema())
	starWidth := input.Schema().Len()
	aggs := collectAggregates(append(exprs, s.Having)...)
	if len(s.GroupBy) > 0 || len(aggs) > 0 || s.Having != nil {
		rel, binds, err := ec.aggregate(input, s.GroupBy, aggs)
		if err != nil {
			return nil, fmt.Errorf("failed to apply aggregation: %w", err)
		}
		ev = ec.evaluatorFor(rel.Schema)
		for key, idx := range binds {
			ev.bind(key, idx)
		}
		starWidth = len(s.GroupBy)
		input = newSliceIterator(rel.Schema, rel.Rows)

		if s.Having != nil {
			if input, err = ec.filter(input, ev, s.Having, "HAVING"); err != nil {
				return nil, err
			}
		}
	}

	// WINDOW
	if windows := collectWindows(exprs...); len(windows) > 0 {
		input, ev, err = ec.applyWindows(input, ev, windows)
		if err != nil {
			return nil, fmt.Errorf("failed to apply window functions: %w", err)
		}
	}

	// SELECT
	proj, err := ec.project(input, ev, s.Projection, s.OrderBy, s.Distinct, starWidth)
	if err != nil {
		return nil, fmt.Errorf("failed to apply projection: %w", err)
	}
	var out RowIterator = proj.iter

	// DISTINCT
	if s.Distinct {
		if out, err = ec.distinct(out); err != nil {
			return nil, fmt.Errorf("failed to apply DISTINCT: %w", err)
		}
	}

	// ORDER BY
	if len(proj.keys) > 0 {
		if out, err = ec.orderBy(out, proj.keys); err != nil {
			return nil, fmt.Errorf("failed to apply ORDER BY: %w", err)
		}
	}

	// LIMIT / OFFSET
	if s.Limit != nil || s.Offset != nil {
		lim := &limitIterator{input: out, limit: -1}
		if s.Limit != nil {
			lim.limit = *s.Limit
		}
		if s.Offset != nil {
			lim.offset = *s.Offset
		}
		out = lim
	}

	if proj.hidden > 0 {
		out = &trimIterator{input: out, schema: proj.visible}
	}
	return out, nil
}
