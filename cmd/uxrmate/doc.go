// Package main hosts the uxrmate CLI entrypoint and command graph.
//
// The Cobra-based command tree manages CUJs, session videos and their
// mapping, starts analysis runs against the inference service, and
// surfaces results for review and export. Configuration resolution, the
// result store and logger setup live in the command context so subcommands
// only render.
//
// Keep this package lean: behaviour belongs in the internal packages and is
// surfaced here through dedicated commands or flags.
package main
