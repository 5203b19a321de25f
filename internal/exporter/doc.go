// Package exporter writes the computed rolling risk table to delimited
// text files for download or offline analysis.
//
// CSVWriter: core CSV writing with headers and optional UTF-8 BOM for
// Excel compatibility.
//
// MetricsExporter: serializes the aligned returns together with their
// rolling correlation and beta, one row per date with a header. Undefined
// metrics are written as empty cells, never as "NaN".
package exporter
