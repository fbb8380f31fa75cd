// Package preflight provides readiness checks for the filesystem paths,
// credentials and video files that analysis runs depend on.
//
// These checks back the CLI "uxrmate doctor" command and the verbose
// output of "uxrmate run --dry-run". The engine performs its own
// blocking pre-flight validation before any spend; the checks here are
// advisory and report every result, passing or not.
package preflight
