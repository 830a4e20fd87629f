// Package audio builds and runs the ffmpeg invocations the pipeline needs:
// stream extraction, segment cutting, time-stretching, reference cleaning,
// timeline overlay, sidechain ducking, and the final mux.
package audio
