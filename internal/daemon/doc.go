// Package daemon coordinates the long-running Lectern process.
//
// It wires configuration, the transcript store, the page-agent bridge and the
// recorder into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon owns the HTTP listener the browser extension
// polls, runs preflight checks at startup, resumes a session interrupted by a
// previous run, and renders exports for the control surface.
//
// Keep orchestration logic here: recording behaviour lives in the recorder
// package while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
