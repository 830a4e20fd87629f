// Package segmentgen schedules per-segment dubbing work: sequential speech
// synthesis against the shared voice model, optional voice conversion, then
// concurrent duration alignment so every clip fits its original window.
package segmentgen
