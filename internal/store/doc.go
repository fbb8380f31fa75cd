// Package store persists CUJs, video assets, manual mappings, analysis
// results, run records, and settings in SQLite.
//
// Analysis results are append-only history: the run engine inserts rows and
// the review overlay only touches the verification columns. The latest
// result for a CUJ is the row with the highest id. CUJ deletion is soft so
// that historical results keep their task text and are flagged as orphaned.
//
// Writes retry on SQLITE_BUSY with a short bounded backoff, and the
// database is opened in WAL mode so the CLI can read while a run writes.
package store
