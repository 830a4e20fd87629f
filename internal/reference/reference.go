package reference

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"dubber/internal/logging"
	"dubber/internal/media/audio"
	"dubber/internal/track"
)

const (
	// minClipSeconds filters out segments too short to carry voice timbre.
	minClipSeconds = 1.0
	// maxClips caps how many segments we concatenate per speaker.
	maxClips = 5
)

// Builder assembles one reference audio file per speaker by cutting that
// speaker's longest segments out of the vocals track, concatenating them and
// denoising the result.
type Builder struct {
	ffmpeg *audio.FFmpeg
	logger *slog.Logger
}

func NewBuilder(ffmpeg *audio.FFmpeg, logger *slog.Logger) *Builder {
	return &Builder{
		ffmpeg: ffmpeg,
		logger: logging.NewComponentLogger(logger, "reference"),
	}
}

// Build returns a map from speaker label to reference audio path. workDir
// receives all intermediate clips. Speakers whose reference cannot be built
// at all are absent from the result.
func (b *Builder) Build(ctx context.Context, vocalsPath string, segments []*track.Segment, workDir string) (map[string]string, error) {
	bySpeaker := make(map[string][]*track.Segment)
	for _, seg := range segments {
		bySpeaker[seg.Speaker] = append(bySpeaker[seg.Speaker], seg)
	}

	speakers := make([]string, 0, len(bySpeaker))
	for speaker := range bySpeaker {
		speakers = append(speakers, speaker)
	}
	sort.Strings(speakers)

	refs := make(map[string]string, len(speakers))
	for _, speaker := range speakers {
		path, err := b.buildForSpeaker(ctx, vocalsPath, speaker, bySpeaker[speaker], workDir)
		if err != nil {
			b.logger.Warn("could not build voice reference for speaker",
				logging.String(logging.FieldSpeaker, speaker),
				logging.Error(err),
			)
			continue
		}
		refs[speaker] = path
		b.logger.Info("voice reference ready",
			logging.String(logging.FieldSpeaker, speaker),
			logging.String("path", path),
		)
	}
	return refs, nil
}

func (b *Builder) buildForSpeaker(ctx context.Context, vocalsPath, speaker string, segments []*track.Segment, workDir string) (string, error) {
	picked := pickSegments(segments)
	if len(picked) == 0 {
		return "", fmt.Errorf("speaker %s has no usable segments", speaker)
	}

	dest := filepath.Join(workDir, fmt.Sprintf("ref_%s.wav", speaker))
	if err := b.concatAndClean(ctx, vocalsPath, speaker, picked, workDir, dest); err != nil {
		b.logger.Warn("reference concat failed, falling back to single longest clip",
			logging.String(logging.FieldSpeaker, speaker),
			logging.Error(err),
		)
		raw := filepath.Join(workDir, fmt.Sprintf("ref_%s_fallback.wav", speaker))
		if cutErr := b.ffmpeg.CutSegment(ctx, vocalsPath, picked[0].Start, picked[0].End, raw); cutErr != nil {
			return "", cutErr
		}
		if cleanErr := b.ffmpeg.Clean(ctx, raw, dest); cleanErr != nil {
			return "", cleanErr
		}
	}
	return dest, nil
}

func (b *Builder) concatAndClean(ctx context.Context, vocalsPath, speaker string, picked []*track.Segment, workDir, dest string) error {
	clips := make([]string, 0, len(picked))
	for i, seg := range picked {
		clip := filepath.Join(workDir, fmt.Sprintf("refclip_%s_%d.wav", speaker, i))
		if err := b.ffmpeg.CutSegment(ctx, vocalsPath, seg.Start, seg.End, clip); err != nil {
			return err
		}
		clips = append(clips, clip)
	}

	raw := filepath.Join(workDir, fmt.Sprintf("ref_%s_raw.wav", speaker))
	if len(clips) == 1 {
		raw = clips[0]
	} else if err := b.ffmpeg.Concat(ctx, clips, raw); err != nil {
		return err
	}
	return b.ffmpeg.Clean(ctx, raw, dest)
}

// pickSegments selects up to maxClips segments, longest first. Segments at or
// under minClipSeconds are skipped unless nothing else is available.
func pickSegments(segments []*track.Segment) []*track.Segment {
	usable := make([]*track.Segment, 0, len(segments))
	for _, seg := range segments {
		if seg.Duration() > minClipSeconds {
			usable = append(usable, seg)
		}
	}
	if len(usable) == 0 {
		usable = append(usable, segments...)
	}

	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].Duration() > usable[j].Duration()
	})
	if len(usable) > maxClips {
		usable = usable[:maxClips]
	}
	return usable
}
