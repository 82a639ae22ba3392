// Package notifications delivers recording outcomes via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and degrades to a no-op when no topic is set. Per-event toggles
// (completed, stopped, errors) let operators silence the noisy ones.
package notifications
