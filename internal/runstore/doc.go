// Package runstore persists dubbing run history to SQLite: one row per run,
// an append-only stage transition log, and per-segment voicing outcomes.
package runstore
