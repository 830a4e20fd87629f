// Package emotion classifies the emotional tone and prosody of audio clips
// so synthesis can reproduce the original delivery.
package emotion
