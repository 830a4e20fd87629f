// Package transcribe shells out to whisperx for speech recognition and
// parses its JSON output into transcript segments.
package transcribe
