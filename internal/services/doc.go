// Package services defines shared utilities consumed by the projection
// pipeline, the persistence layer and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp image paths, box names, stage names and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is (caller misuse vs processing failure).
//
// Use these helpers when wiring new pipeline logic so error handling and
// observability stay uniform.
package services
