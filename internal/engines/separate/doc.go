// Package separate splits a mixed audio track into vocals and background
// via demucs two-stem separation.
package separate
