// Package main hosts the lectern CLI.
//
// Commands translate terminal invocations into JSON-RPC calls against the
// lectern daemon: starting and stopping a course recording, inspecting its
// progress, exporting the transcript document and tailing daemon logs. The
// daemon subcommands launch and terminate the background process itself, and
// the config subcommands scaffold and validate the TOML configuration.
//
// Behaviour lives in the internal packages; this package only resolves
// configuration and the socket path, then renders responses.
package main
