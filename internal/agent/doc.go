// Package agent implements the daemon side of the page-agent bridge.
//
// The browser extension's content script cannot accept inbound connections,
// so it polls POST /agent/sync. Each sync carries replies to earlier commands
// and unsolicited capture events; the response hands back any commands queued
// for that page. When nothing is queued the request is held open for the
// configured long-poll window so navigation commands reach the page promptly.
//
// Bridge satisfies the recorder's PageAgent interface and forwards capture
// events to a Sink, which the daemon wires to the recorder.
package agent
