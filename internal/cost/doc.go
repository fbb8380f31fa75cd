// Package cost estimates what a video analysis will cost before and after it
// runs.
//
// Estimate is a pure function of the asset duration and the model id: token
// counts come from fixed per-second video and audio rates plus a prompt
// overhead, and prices come from the per-million-token rates in the model
// table. Unknown models fall back to DefaultModel and unknown durations count
// as zero, so an estimate is always available.
package cost
