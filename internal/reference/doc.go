// Package reference builds per-speaker voice reference audio for TTS
// synthesis from the separated vocals track.
package reference
