// Package lipsync re-times lip motion in the final video to match the
// dubbed audio track.
package lipsync
