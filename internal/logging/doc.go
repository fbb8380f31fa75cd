// Package logging assembles structured slog loggers and formatting helpers
// used across uxrmate.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so engine code can tag log
// lines with run ids, CUJ ids, assets, and stages. Console output is
// colourised only when the destination is a terminal.
package logging
