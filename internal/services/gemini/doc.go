// Package gemini implements analysis.Analyzer on top of the Gemini API.
//
// Each call uploads the session video, waits until the service reports the
// file ACTIVE, asks the configured model for a JSON verdict and optionally
// deletes the upload afterwards. Retrying is left to the caller; errors are
// translated so retry.Classify can tell rate limits and server faults from
// fatal failures.
package gemini
