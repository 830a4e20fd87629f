// Package diarize identifies per-speaker time intervals in an audio track
// via pyannote. Missing credentials or a broken pipeline degrade to an empty
// result so the pipeline can continue in mono-speaker mode.
package diarize
