// Package tts drives the voice-cloning synthesis engine. The engine holds a
// single accelerator-resident model, so synthesis calls must be serialized
// by the caller.
package tts
