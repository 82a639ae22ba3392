// Package logging assembles structured slog loggers and formatting helpers used
// across Lectern.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so recorder code can tag log
// lines with session IDs, lecture keys, and stages. A bounded StreamHub keeps
// recent records for the daemon's log tail RPC, and a no-op logger serves tests
// and wiring code that cannot fail.
package logging
