// Package pipeline sequences the dubbing stages for one video: audio
// extraction, source separation, transcription, speaker attribution, emotion
// analysis, reference building, translation, segment synthesis, timeline
// assembly, muxing and optional lip sync. Fatal failures abort the run;
// everything else degrades with reduced fidelity and keeps going.
package pipeline
