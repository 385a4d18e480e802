// Package query evaluates logical query plans over in-memory relations.
//
// A plan is a tree of Node values built by a caller (or decoded by package planfile):
// scans of catalog tables, inline VALUES, joins, SELECT blocks, set operations and
// WITH clauses, including recursive CTEs. The executor never parses SQL text.
//
// # Basic Usage
//
//	catalog := query.NewMemoryCatalog()
//	catalog.Add("employees", employees)
//
//	exec, err := query.NewExecutor(catalog, query.Options{NullOrdering: query.NullsLast})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	plan := &query.Select{
//	    From:       &query.Scan{Table: "employees"},
//	    Where:      query.Binary(query.OpGt, query.Col("salary"), query.Lit(query.NewInt(50000))),
//	    Projection: []query.SelectItem{{Expr: query.Col("name")}},
//	    OrderBy:    []query.SortKey{{Expr: query.Col("name")}},
//	}
//	result, err := exec.Execute(ctx, plan)
//
// # Evaluation Order
//
// A Select is evaluated in a fixed order regardless of how its fields are populated:
// FROM and joins, WHERE, GROUP BY and aggregates, HAVING, window functions, the SELECT
// list, DISTINCT, ORDER BY, then LIMIT and OFFSET.
//
// # NULL Semantics
//
// Predicates use three-valued logic. WHERE, HAVING and join conditions keep a row only
// when the predicate is TRUE. Grouping, DISTINCT and set operations treat NULLs as equal;
// join keys never match a NULL. Aggregates other than COUNT(*) skip NULL inputs and
// return NULL when no input remains.
//
// # Errors
//
// Every error matches one of ErrSchema, ErrType, ErrDivisionByZero, ErrRecursionLimit,
// ErrCancelled, ErrResourceExhausted, ErrValidation or ErrNotFound with errors.Is.
// Plans are validated before any row is read.
//
// # Resource Bounds
//
// Blocking operators (hash join build, sort, aggregation, window partitioning, set
// operations and recursive CTEs) buffer rows. Options.MaxMaterializedRows bounds each of
// them, and cancellation of the context is checked every Options.BatchSize rows.
package query
