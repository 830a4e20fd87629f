package segmentgen

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"dubber/internal/engines/tts"
	"dubber/internal/logging"
	"dubber/internal/media/audio"
	"dubber/internal/track"
)

// Outcome status values recorded per segment.
const (
	StatusSynthesized      = "synthesized"
	StatusFallbackOriginal = "fallback_original"
	StatusDropped          = "dropped"
)

// Outcome records how one segment ended up in the dubbed timeline.
type Outcome struct {
	Index  int
	Status string
	Clip   string
}

// Synthesizer produces dubbed speech for a single segment. Implementations
// hold a shared accelerator-bound model, so Process never calls Synthesize
// from more than one goroutine.
type Synthesizer interface {
	Synthesize(ctx context.Context, req tts.Request) error
}

// Converter optionally re-voices synthesized audio.
type Converter interface {
	Configured() bool
	Convert(ctx context.Context, source, dest string) error
}

// DurationFunc probes the playable duration of an audio file.
type DurationFunc func(ctx context.Context, path string) (float64, error)

// Processor turns attributed, translated segments into timed audio clips.
// Synthesis runs sequentially; each finished clip is handed straight to a
// bounded worker pool for duration alignment, so aligning segment i overlaps
// synthesizing segment i+1.
type Processor struct {
	tts      Synthesizer
	convert  Converter
	ffmpeg   *audio.FFmpeg
	duration DurationFunc
	workers  int
	logger   *slog.Logger
}

func NewProcessor(synth Synthesizer, convert Converter, ffmpeg *audio.FFmpeg, duration DurationFunc, workers int, logger *slog.Logger) *Processor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Processor{
		tts:      synth,
		convert:  convert,
		ffmpeg:   ffmpeg,
		duration: duration,
		workers:  workers,
		logger:   logging.NewComponentLogger(logger, "segments"),
	}
}

// Process synthesizes and aligns every segment, returning the surviving clips
// sorted by start time plus a per-segment outcome record. Each segment's
// AudioPath, when set, provides the original-language fallback clip.
func (p *Processor) Process(ctx context.Context, segments []*track.Segment, references map[string]string, targetLang, workDir string) ([]track.Clip, []Outcome, error) {
	clips := make([]*track.Clip, len(segments))
	outcomes := make([]Outcome, len(segments))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.workers)

	// Synthesis holds the shared model, so it runs one segment at a time;
	// each clip is dispatched to the alignment pool as soon as it exists.
	for i, seg := range segments {
		synthPath := p.synthesize(ctx, i, seg, references, targetLang, workDir)
		if err := ctx.Err(); err != nil {
			_ = group.Wait()
			return nil, nil, err
		}
		group.Go(func() error {
			outcome := Outcome{Index: i, Status: StatusDropped}

			aligned := ""
			if synthPath != "" {
				aligned = p.align(groupCtx, i, seg, synthPath, workDir)
			}
			switch {
			case aligned != "":
				outcome.Status = StatusSynthesized
				outcome.Clip = aligned
			case seg.AudioPath != "":
				outcome.Status = StatusFallbackOriginal
				outcome.Clip = seg.AudioPath
				p.logger.Warn("using original audio for segment",
					logging.Int(logging.FieldSegment, i),
					logging.String(logging.FieldSpeaker, seg.Speaker),
				)
			default:
				p.logger.Warn("dropping segment, no synthesized or original audio",
					logging.Int(logging.FieldSegment, i),
				)
			}

			outcomes[i] = outcome
			if outcome.Clip != "" {
				clips[i] = &track.Clip{File: outcome.Clip, Start: seg.Start, End: seg.End}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	result := make([]track.Clip, 0, len(clips))
	for _, clip := range clips {
		if clip != nil {
			result = append(result, *clip)
		}
	}
	track.SortClips(result)
	return result, outcomes, nil
}

// synthesize returns the path of the voiced clip for seg, or "" when the
// segment must fall back to its original audio.
func (p *Processor) synthesize(ctx context.Context, index int, seg *track.Segment, references map[string]string, targetLang, workDir string) string {
	text := seg.TextTranslated
	if text == "" {
		text = seg.Text
	}
	ref, ok := references[seg.Speaker]
	if !ok {
		p.logger.Warn("no voice reference for speaker",
			logging.Int(logging.FieldSegment, index),
			logging.String(logging.FieldSpeaker, seg.Speaker),
		)
		return ""
	}

	synthPath := filepath.Join(workDir, fmt.Sprintf("seg_%d_tts.wav", index))
	err := p.tts.Synthesize(ctx, tts.Request{
		Text:           text,
		ReferenceAudio: ref,
		Language:       targetLang,
		Emotion:        seg.Emotion,
		OutputPath:     synthPath,
	})
	if err != nil {
		p.logger.Warn("synthesis failed for segment",
			logging.Int(logging.FieldSegment, index),
			logging.String(logging.FieldSpeaker, seg.Speaker),
			logging.Error(err),
		)
		return ""
	}

	if p.convert != nil && p.convert.Configured() {
		convPath := filepath.Join(workDir, fmt.Sprintf("seg_%d_conv.wav", index))
		if err := p.convert.Convert(ctx, synthPath, convPath); err != nil {
			p.logger.Warn("voice conversion failed, keeping synthesized clip",
				logging.Int(logging.FieldSegment, index),
				logging.Error(err),
			)
		} else {
			synthPath = convPath
		}
	}
	return synthPath
}

// align stretches the synthesized clip to fit the segment window. Returns ""
// when alignment fails so the caller can fall back.
func (p *Processor) align(ctx context.Context, index int, seg *track.Segment, synthPath, workDir string) string {
	target := seg.Duration()
	if target <= 0 {
		return synthPath
	}
	actual, err := p.duration(ctx, synthPath)
	if err != nil || actual <= 0 {
		p.logger.Warn("could not probe synthesized clip duration",
			logging.Int(logging.FieldSegment, index),
			logging.Error(err),
		)
		return ""
	}

	ratio := actual / target
	if math.Abs(ratio-1.0) < 0.01 {
		return synthPath
	}
	clamped := audio.ClampRatio(ratio)
	if clamped != ratio {
		p.logger.Debug("tempo ratio clamped",
			logging.Int(logging.FieldSegment, index),
			logging.Float64("requested", ratio),
			logging.Float64("applied", clamped),
		)
	}

	aligned := filepath.Join(workDir, fmt.Sprintf("seg_%d_aligned.wav", index))
	if err := p.ffmpeg.Stretch(ctx, synthPath, clamped, aligned); err != nil {
		p.logger.Warn("alignment failed for segment",
			logging.Int(logging.FieldSegment, index),
			logging.Error(err),
		)
		return ""
	}
	return aligned
}
