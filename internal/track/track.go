package track

import "sort"

// Segment is one transcribed utterance. Start and End are seconds relative to
// the start of the source audio. Text holds the source-language transcript;
// TextTranslated is filled in by the translation stage. AudioPath points at
// the segment's original-language clip cut from the vocal track, created once
// by the pipeline and never rewritten.
type Segment struct {
	Start          float64
	End            float64
	Text           string
	TextTranslated string
	Speaker        string
	Emotion        string
	EnergyLevel    string
	PitchLevel     string
	AudioPath      string
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Turn is a diarization interval [Start, End) attributed to one speaker.
type Turn struct {
	Start   float64
	End     float64
	Speaker string
}

// Clip is a generated, time-aligned audio clip destined for the timeline at
// its original segment window.
type Clip struct {
	File  string
	Start float64
	End   float64
}

// SortClips orders clips ascending by start time. Alignment tasks complete in
// arbitrary order; the assembler requires timeline order.
func SortClips(clips []Clip) {
	sort.SliceStable(clips, func(i, j int) bool {
		return clips[i].Start < clips[j].Start
	})
}

// MaxEnd returns the latest end time across clips, or 0 for an empty set.
func MaxEnd(clips []Clip) float64 {
	var max float64
	for _, c := range clips {
		if c.End > max {
			max = c.End
		}
	}
	return max
}
