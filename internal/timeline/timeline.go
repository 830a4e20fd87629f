package timeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"dubber/internal/logging"
	"dubber/internal/media/audio"
	"dubber/internal/services"
	"dubber/internal/track"
)

// Assembler lays dubbed clips onto a full-length speech track and mixes it
// with the background audio.
type Assembler struct {
	ffmpeg *audio.FFmpeg
	logger *slog.Logger
}

func NewAssembler(ffmpeg *audio.FFmpeg, logger *slog.Logger) *Assembler {
	return &Assembler{
		ffmpeg: ffmpeg,
		logger: logging.NewComponentLogger(logger, "timeline"),
	}
}

// MergeClips renders clips at their timestamps onto a silent canvas at least
// as long as the source audio. Returns the path of the merged speech track.
func (a *Assembler) MergeClips(ctx context.Context, clips []track.Clip, sourceDuration float64, workDir string) (string, error) {
	if len(clips) == 0 {
		return "", services.Wrap(services.ErrValidation, "timeline", "merge clips", "no clips to assemble", nil)
	}

	canvas := sourceDuration
	if end := track.MaxEnd(clips); end > canvas {
		canvas = end
	}

	dest := filepath.Join(workDir, "dubbed_speech.wav")
	if err := a.ffmpeg.OverlayClips(ctx, clips, canvas, dest); err != nil {
		return "", err
	}
	a.logger.Info("dubbed speech track assembled",
		logging.Int("clips", len(clips)),
		logging.Float64("canvas_seconds", canvas),
	)
	return dest, nil
}

// Mix combines the dubbed speech with the separated background track. The
// background is ducked under the speech so music and effects survive without
// drowning the dialogue. When no background exists the speech track is
// returned unchanged.
func (a *Assembler) Mix(ctx context.Context, speech, background, workDir string) (string, error) {
	if background == "" {
		a.logger.Info("no background track, using dubbed speech directly")
		return speech, nil
	}

	dest := filepath.Join(workDir, "final_mix.wav")
	if err := a.ffmpeg.DuckMix(ctx, speech, background, dest); err != nil {
		return "", err
	}
	a.logger.Info("background mixed under dubbed speech")
	return dest, nil
}

// Mux replaces the video's audio track with the final mix.
func (a *Assembler) Mux(ctx context.Context, video, audioTrack, dest string) error {
	if err := a.ffmpeg.Mux(ctx, video, audioTrack, dest); err != nil {
		return err
	}
	a.logger.Info("dubbed video written", logging.String("path", dest))
	return nil
}
