// Package engine runs an analysis pass over a list of CUJs.
//
// A run is validated up front by Preflight, which reports every problem at
// once and spends nothing. Run then walks the CUJs in order, one at a time:
// it resolves an asset, re-checks the file, invokes the analyzer through the
// retry policy, prices the call, and persists the result. A failure is
// recorded against its CUJ and the run moves on; the run always completes
// with a Summary unless pre-flight rejects it.
//
// When the context is cancelled no further CUJs are started. The CUJ that is
// already invoking finishes its current retry cycle and is persisted, and
// the remaining CUJs are reported as skipped.
package engine
