// Package analysis defines the contract between the run engine and an
// inference backend: the Request sent for one CUJ, the Verdict that comes
// back, and helpers to build prompts and decode model replies.
package analysis
