// Package logging wires log/slog with the handlers and helpers the dubbing
// pipeline uses: a console handler for interactive runs, a JSON handler for
// machine-readable logs, typed attribute constructors, and context helpers
// that stamp run IDs and stage names onto every record.
package logging
