// Package timeline assembles dubbed clips into a full-length audio track and
// mixes it back under the original video.
package timeline
