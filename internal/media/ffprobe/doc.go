// Package ffprobe shells out to ffprobe to read container metadata: stream
// layout and durations used for validation and time-stretch ratios.
package ffprobe
