// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management, request/response DTOs, and the mapping
// from recorder errors to stable wire codes so the CLI can branch on outcomes
// without parsing messages.
package ipc
