// Package retry runs fallible remote operations under a bounded exponential
// backoff policy.
//
// Errors are classified as rate limited, transient server failures, or fatal.
// Rate-limit failures back off with jitter up to a long cap, server failures
// use a shorter cap, and fatal errors return after the first attempt. When the
// attempt budget (or the total wait budget) runs out, Do returns an
// *ExhaustedError that matches ErrRetriesExhausted and unwraps to the last
// cause.
//
// The policy knows nothing about its call site: the Gemini analyzer and the
// Drive asset transfer use the same Retrier with different budgets.
package retry
