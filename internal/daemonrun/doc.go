// Package daemonrun assembles the daemon process: logger, store, bridge,
// recorder and IPC server.
package daemonrun
