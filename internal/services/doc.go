// Package services defines shared utilities consumed by the analysis engine
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, CUJ IDs, asset IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified (rate limit, transient, not found, persistence) without string
//     matching.
//   - StatusError, the common shape for remote endpoint failures that the retry
//     policy inspects.
//
// Remote integrations live in subpackages (gemini, drive) and report failures
// through these markers so retry and reporting behaviour stays uniform.
package services
