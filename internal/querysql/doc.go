// Package querysql processes SQL templates into parameterized queries.
//
// Fragments become SQL text and every embedded value becomes a "?" bind
// parameter, so values are never spliced into the statement:
//
//	t := stmt.MustNew("widgets", 10)   // "SELECT * FROM items WHERE category = \{c} LIMIT \{n}"
//	q, _ := querysql.Default.Process(t)
//	// q.SQL  == "SELECT * FROM items WHERE category = ? LIMIT ?"
//	// q.Args == []any{"widgets", int64(10)}
//
// Nested templates are flattened first, so a template embedded in another
// contributes its own fragments as SQL and its own values as parameters.
package querysql
