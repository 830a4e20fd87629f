// Package translate fills in target-language text for transcript segments.
//
// The primary path sends the whole transcript in one chat-completion request
// so the model can keep pronouns and register consistent across lines, with
// per-line duration hints so translations stay speakable within the original
// timing. When no LLM is configured, or the contextual request fails, the
// service degrades to a word-for-word fallback rather than aborting the run.
package translate
