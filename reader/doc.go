// Package reader provides parquet-backed base relations for the query engine.
//
// A Catalog maps table names to parquet files or glob patterns and hands out
// Sources, which expose an engine schema and stream typed rows in batches.
//
// # Basic Usage
//
// Serving tables from a directory:
//
//	cat := reader.NewCatalog("data", map[string]string{
//	    "events": "events/2024-*.parquet",
//	}, logger)
//	exec, err := query.NewExecutor(cat, query.Options{NullOrdering: query.NullsLast})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Table "users" resolves to data/users.parquet; table "events" reads every file
// matching the pattern, in sorted order, and adds a "_file" column with the path
// each row came from. Every matched file must have the same columns.
//
// # Type Mapping
//
// Parquet columns map to engine types by logical type first, then physical type:
//
//	DECIMAL            -> DECIMAL (INT32, INT64 or byte array storage)
//	DATE, TIMESTAMP    -> TIMESTAMP (UTC)
//	BOOLEAN            -> BOOLEAN
//	INT32, INT64       -> INTEGER
//	FLOAT, DOUBLE      -> FLOAT
//	BYTE_ARRAY, other  -> TEXT
//
// Optional columns are nullable. Nested fields are flattened into columns named
// parent_child; repeated fields are read as TEXT of the form "[a, b]".
//
// # Schema Introspection
//
//	infos, err := reader.ExtractSchemaInfo("data.parquet")
//	for _, info := range infos {
//	    fmt.Printf("%s: %s (%s)\n", info.Name, info.EngineType, info.PhysicalType)
//	}
//
// # Resource Management
//
// Iterators returned by Source.Rows open one file at a time and close it once
// drained; always Close an iterator that is abandoned early. Cancellation of the
// context passed to Rows is observed between batches of DefaultBatchSize rows.
package reader
