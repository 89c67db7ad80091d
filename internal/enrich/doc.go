// Package enrich downloads resource payloads and merges parsed fields into items.
//
// Parsers are registered per resource format (case-insensitive). They are
// described by YAML definitions loaded once from the configured parser
// directory:
//
//	format: csv
//	kind: csv
//	options:
//	  delimiter: ";"
//	filters:
//	  cols: columnCount
//	  rows: rowCount
//
// Two kinds exist. A csv parser stores the rows as data and exposes
// columnCount, rowCount and header as filter expressions. A json parser
// evaluates gjson paths, the "data" option selecting the payload and each
// filter naming the path of its value.
package enrich
