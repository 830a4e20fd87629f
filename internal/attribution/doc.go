// Package attribution maps transcript segments onto diarized speaker turns
// by maximum summed temporal overlap.
package attribution
