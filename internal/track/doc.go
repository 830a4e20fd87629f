// Package track defines the data model shared across dubbing stages:
// transcript segments, diarization turns, and generated audio clips.
package track
