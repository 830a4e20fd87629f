package pipeline

import (
	"context"

	"dubber/internal/engines/emotion"
	"dubber/internal/segmentgen"
	"dubber/internal/track"
)

// Separator splits a speech track from its background audio. The background
// path is empty when no background stem was produced.
type Separator interface {
	Separate(ctx context.Context, audioPath, workDir string) (vocals string, background string, err error)
}

// Transcriber produces ordered utterances from an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, source, outputDir, lang string) ([]track.Segment, error)
}

// Diarizer identifies speaker turns. A nil turn slice with a nil error means
// diarization is unavailable and the run degrades to mono-speaker mode.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string) ([]track.Turn, error)
}

// EmotionAnalyzer classifies the delivery of one audio clip.
type EmotionAnalyzer interface {
	Analyze(ctx context.Context, clipPath string) (emotion.Result, error)
}

// ReferenceBuilder produces one voice reference per speaker.
type ReferenceBuilder interface {
	Build(ctx context.Context, vocalsPath string, segments []*track.Segment, workDir string) (map[string]string, error)
}

// Translator fills TextTranslated on every segment.
type Translator interface {
	TranslateSegments(ctx context.Context, segments []*track.Segment, targetLang string) error
}

// SegmentProcessor voices and aligns all segments.
type SegmentProcessor interface {
	Process(ctx context.Context, segments []*track.Segment, references map[string]string, targetLang, workDir string) ([]track.Clip, []segmentgen.Outcome, error)
}

// Assembler builds the final audio track and muxes it into the video.
type Assembler interface {
	MergeClips(ctx context.Context, clips []track.Clip, sourceDuration float64, workDir string) (string, error)
	Mix(ctx context.Context, speech, background, workDir string) (string, error)
	Mux(ctx context.Context, video, audioTrack, dest string) error
}

// LipSyncer re-times lip motion to the dubbed audio.
type LipSyncer interface {
	Sync(ctx context.Context, videoPath, audioPath, dest string) (string, error)
}

// Engines bundles every external collaborator the controller drives.
type Engines struct {
	Separator  Separator
	Transcribe Transcriber
	Diarize    Diarizer
	Emotion    EmotionAnalyzer
	References ReferenceBuilder
	Translate  Translator
	Segments   SegmentProcessor
	Assembler  Assembler
	LipSync    LipSyncer
}
