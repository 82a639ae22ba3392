// Package logs reads daemon log output for the CLI.
//
// StreamClient pulls structured events from the daemon's token-protected
// /api/logs endpoint, which is useful when the control socket is not
// reachable from the shell running the CLI. TailFile and ReadFrom read the
// daemon's log file directly so `lectern logs` still has something to show
// while the daemon is down.
package logs
