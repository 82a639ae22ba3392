// Package daemonctl launches, stops and inspects the lectern daemon process
// on behalf of the CLI.
package daemonctl
