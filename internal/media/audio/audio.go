package audio

import (
	"context"
	"fmt"
	"strings"

	"dubber/internal/services"
	"dubber/internal/track"
)

// Atempo filter bounds. Stretch factors outside this range degrade speech
// quality audibly, so callers clamp rather than chain filters.
const (
	MinTempo = 0.5
	MaxTempo = 2.0
)

// FFmpeg wraps the audio operations the pipeline performs through ffmpeg.
type FFmpeg struct {
	binary string
	run    services.CommandRunner
}

// New constructs an FFmpeg helper around the given binary name.
func New(binary string) *FFmpeg {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{binary: binary, run: services.RunCommand}
}

// WithRunner sets a custom command runner (for testing).
func (f *FFmpeg) WithRunner(run services.CommandRunner) *FFmpeg {
	if run != nil {
		f.run = run
	}
	return f
}

func (f *FFmpeg) exec(ctx context.Context, args []string) error {
	if _, err := f.run(ctx, f.binary, args...); err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

// ClampRatio bounds a time-stretch ratio to the atempo-safe range.
func ClampRatio(ratio float64) float64 {
	if ratio < MinTempo {
		return MinTempo
	}
	if ratio > MaxTempo {
		return MaxTempo
	}
	return ratio
}

// ExtractAudio pulls the first audio stream out of a video container as PCM WAV.
func (f *FFmpeg) ExtractAudio(ctx context.Context, source, dest string) error {
	return f.exec(ctx, buildExtractArgs(source, dest))
}

// CutSegment copies the [start, end) window of an audio file into dest.
func (f *FFmpeg) CutSegment(ctx context.Context, source string, start, end float64, dest string) error {
	if end <= start {
		return fmt.Errorf("cut segment: invalid window [%f, %f)", start, end)
	}
	return f.exec(ctx, buildCutArgs(source, start, end, dest))
}

// Stretch re-times an audio clip by the given atempo ratio. The caller is
// responsible for clamping the ratio with ClampRatio first.
func (f *FFmpeg) Stretch(ctx context.Context, source string, ratio float64, dest string) error {
	if ratio < MinTempo || ratio > MaxTempo {
		return fmt.Errorf("stretch: ratio %.3f outside atempo range", ratio)
	}
	return f.exec(ctx, buildStretchArgs(source, ratio, dest))
}

// Concat joins the sources back to back in the order given.
func (f *FFmpeg) Concat(ctx context.Context, sources []string, dest string) error {
	if len(sources) == 0 {
		return fmt.Errorf("concat: no sources")
	}
	return f.exec(ctx, buildConcatArgs(sources, dest))
}

// Clean suppresses stationary noise and low-frequency rumble so a clip can
// serve as a voice-cloning reference.
func (f *FFmpeg) Clean(ctx context.Context, source, dest string) error {
	return f.exec(ctx, buildCleanArgs(source, dest))
}

// OverlayClips renders the clips onto a silent canvas at their start offsets.
// Overlapping clips are summed, never truncated, so slight drift from
// time-stretching cannot shift later segments.
func (f *FFmpeg) OverlayClips(ctx context.Context, clips []track.Clip, canvasSeconds float64, dest string) error {
	if len(clips) == 0 {
		return fmt.Errorf("overlay: no clips")
	}
	return f.exec(ctx, buildOverlayArgs(clips, canvasSeconds, dest))
}

// DuckMix mixes music under speech with sidechain compression keyed off the
// speech track: fast attack so music drops as dialogue starts, slow release
// so it fades back over roughly a second. Output duration follows speech.
func (f *FFmpeg) DuckMix(ctx context.Context, speech, music, dest string) error {
	return f.exec(ctx, buildDuckMixArgs(speech, music, dest))
}

// Mux replaces the video's audio stream with the supplied track. The video
// stream is copied without re-encoding; audio is encoded as AAC.
func (f *FFmpeg) Mux(ctx context.Context, video, audioTrack, dest string) error {
	return f.exec(ctx, buildMuxArgs(video, audioTrack, dest))
}

func baseArgs() []string {
	return []string{"-y", "-hide_banner", "-loglevel", "error"}
}

func buildExtractArgs(source, dest string) []string {
	return append(baseArgs(),
		"-i", source,
		"-vn", "-sn", "-dn",
		"-ac", "2",
		"-ar", "44100",
		"-c:a", "pcm_s16le",
		dest,
	)
}

func buildCutArgs(source string, start, end float64, dest string) []string {
	return append(baseArgs(),
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-i", source,
		"-c:a", "pcm_s16le",
		dest,
	)
}

func buildStretchArgs(source string, ratio float64, dest string) []string {
	return append(baseArgs(),
		"-i", source,
		"-filter:a", fmt.Sprintf("atempo=%.6f", ratio),
		dest,
	)
}

func buildConcatArgs(sources []string, dest string) []string {
	args := baseArgs()
	for _, src := range sources {
		args = append(args, "-i", src)
	}
	var filter strings.Builder
	for i := range sources {
		fmt.Fprintf(&filter, "[%d:a]", i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=0:a=1[out]", len(sources))
	return append(args,
		"-filter_complex", filter.String(),
		"-map", "[out]",
		dest,
	)
}

func buildCleanArgs(source, dest string) []string {
	return append(baseArgs(),
		"-i", source,
		"-af", "afftdn=nr=12:nf=-25,highpass=f=100",
		dest,
	)
}

func buildOverlayArgs(clips []track.Clip, canvasSeconds float64, dest string) []string {
	args := append(baseArgs(),
		"-f", "lavfi",
		"-t", formatSeconds(canvasSeconds),
		"-i", "anullsrc=r=44100:cl=stereo",
	)
	for _, clip := range clips {
		args = append(args, "-i", clip.File)
	}

	var filter strings.Builder
	for i, clip := range clips {
		delayMS := int(clip.Start * 1000)
		fmt.Fprintf(&filter, "[%d:a]adelay=%d|%d[d%d];", i+1, delayMS, delayMS, i)
	}
	filter.WriteString("[0:a]")
	for i := range clips {
		fmt.Fprintf(&filter, "[d%d]", i)
	}
	fmt.Fprintf(&filter, "amix=inputs=%d:duration=first:normalize=0[out]", len(clips)+1)

	return append(args,
		"-filter_complex", filter.String(),
		"-map", "[out]",
		"-c:a", "pcm_s16le",
		dest,
	)
}

func buildDuckMixArgs(speech, music, dest string) []string {
	filter := "[1:a][0:a]sidechaincompress=threshold=0.05:ratio=8:attack=50:release=800[duck];" +
		"[0:a][duck]amix=inputs=2:duration=first:normalize=0[out]"
	return append(baseArgs(),
		"-i", speech,
		"-i", music,
		"-filter_complex", filter,
		"-map", "[out]",
		"-c:a", "pcm_s16le",
		dest,
	)
}

func buildMuxArgs(video, audioTrack, dest string) []string {
	return append(baseArgs(),
		"-i", video,
		"-i", audioTrack,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		dest,
	)
}

func formatSeconds(value float64) string {
	return fmt.Sprintf("%.3f", value)
}
