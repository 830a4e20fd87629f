// Package language normalizes target-language identifiers to the ISO 639-1
// codes the external engines expect and tracks which targets the synthesis
// engine supports well.
package language
