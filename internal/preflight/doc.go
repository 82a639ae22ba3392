// Package preflight provides readiness checks for the filesystem paths and
// services Lectern depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failed check.
//   - The health RPC returns the same results so "lectern health" can
//     display them.
//
// The platform check is gated by its config toggle; disabled features are skipped.
package preflight
