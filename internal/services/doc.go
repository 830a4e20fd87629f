// Package services defines shared utilities consumed by the pipeline stages
// and external engine integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs and stage names for logging.
//   - Structured error markers plus the Wrap helper that keep failure
//     messages and severity classification consistent across engines.
//   - The CommandRunner abstraction that makes exec-based engine clients
//     testable without spawning processes.
package services
