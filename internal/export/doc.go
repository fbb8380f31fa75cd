// Package export writes analysis results to CSV and JSON files.
//
// Rows flattens the latest results with reviewer overrides applied, so an
// exported file shows the values a reader of the results table would see.
// WriteFile names the file after the format and a timestamp and writes it
// into the export directory, creating the directory when needed.
// DraftReport asks the model for a markdown executive summary of the rows.
package export
