// Package planfile decodes logical plans written as YAML or JSON documents.
//
// A document holds one plan tree under the "plan" key. Every plan node and every
// expression is a mapping with exactly one kind key:
//
//	plan:
//	  select:
//	    from:
//	      join:
//	        kind: left
//	        left:  {scan: {table: employees, alias: e}}
//	        right: {scan: {table: departments, alias: d}}
//	        on: {op: "=", left: {col: e.dept_id}, right: {col: d.id}}
//	    where: {op: ">", left: {col: e.salary}, right: {lit: 50000}}
//	    projection:
//	      - expr: {col: e.name}
//	      - expr: {agg: {name: count}}
//	        alias: n
//	    group_by: [{col: e.name}]
//	    order_by:
//	      - {expr: {col: n}, desc: true, nulls: last}
//	    limit: 10
//
// # Plan Nodes
//
//   - scan: {table, alias}
//   - values: {columns: [{name, type, nullable}], rows: [[...]], alias}
//   - join: {kind, left, right, on}
//   - select: {from, where, group_by, having, projection, distinct, order_by, limit, offset};
//     a select without projection returns every input column
//   - setop: {op: union|intersect|except, all, left, right}
//   - with: {ctes: [{name, columns, query, recursive, union_all, max_iterations}], body}
//   - cte_ref: {name, alias}
//
// # Expressions
//
//   - col: column reference, optionally qualified ("t.col"); "*" and "t.*" select all columns
//   - lit: scalar literal, typed by its YAML/JSON form or by an explicit type
//     ({lit: "12.50", type: decimal}); a type with a null lit is the NULL literal
//     ({lit: null, type: integer})
//   - op with left and right: binary operator (=, <>, <, <=, >, >=, +, -, *, /, %, ||, and, or)
//   - and / or: lists of operands; not / neg: one operand
//   - is_null / is_not_null, in, between, like, case
//   - call: scalar function; agg: aggregate; window: window function with over-clause fields
//
// Unknown keys are rejected so that a typo cannot silently change a plan.
package planfile
