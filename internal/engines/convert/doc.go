// Package convert refines synthesized speech through an optional
// voice-conversion model supplied per run.
package convert
