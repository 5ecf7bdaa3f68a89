// Package export writes the interval and average logs to Parquet files for
// offline analysis.
package export
