// Package assign decides which video asset each CUJ is evaluated against.
//
// A manual mapping wins when it points at an asset that is still ready;
// every other CUJ is paired round robin by its position in the run. The
// result depends only on the order of the inputs.
package assign
