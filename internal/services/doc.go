// Package services defines shared utilities consumed by the recorder and its
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, lecture keys, recorder stages,
//     and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures from the page
//     agent, the platform API, and storage classify consistently.
package services
