// Package output writes query results in various formats.
//
// Formatters consume a query.RowIterator, so streamed results are written as
// rows arrive; WriteRelation adapts a materialized relation.
//
// # Supported Formats
//
//   - JSON Lines: one JSON object per row, keys in column order (suitable for streaming)
//   - CSV: header row followed by one record per row
//   - Table: aligned text table with a row count, buffered until the last row
//
// # Basic Usage
//
//	formatter, err := output.New("table", os.Stdout, 40)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := output.WriteRelation(formatter, rel); err != nil {
//	    log.Fatal(err)
//	}
//
// Streaming a plan:
//
//	it, err := exec.Stream(ctx, plan)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer it.Close()
//	if err := output.NewJSONFormatter(os.Stdout).Format(it); err != nil {
//	    log.Fatal(err)
//	}
//
// # Value Handling
//
//   - NULL is null in JSON, an empty field in CSV and "NULL" in tables
//   - Decimals are JSON strings so that no precision is lost
//   - Timestamps use RFC 3339; dates at midnight UTC render as YYYY-MM-DD outside JSON
//   - CSV text starting with a formula character is prefixed with a quote
//   - Columns sharing a name are labelled table.name
package output
