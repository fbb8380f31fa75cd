// Package review layers human verification on top of stored analysis
// results.
//
// Reviewer overrides never replace the model's answer; they sit beside it
// and win when present. Low-confidence results are flagged so reviewers
// can start with the answers most likely to be wrong.
package review
