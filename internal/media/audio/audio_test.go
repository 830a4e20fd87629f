package audio

import (
	"context"
	"strings"
	"testing"

	"dubber/internal/track"
)

type call struct {
	name string
	args []string
}

func capture(calls *[]call) func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, call{name: name, args: args})
		return nil, nil
	}
}

func TestClampRatio(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.1, 0.5},
		{0.5, 0.5},
		{1.0, 1.0},
		{2.0, 2.0},
		{3.7, 2.0},
	}
	for _, tc := range cases {
		if got := ClampRatio(tc.in); got != tc.want {
			t.Fatalf("ClampRatio(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestStretchRejectsOutOfRangeRatio(t *testing.T) {
	var calls []call
	f := New("ffmpeg").WithRunner(capture(&calls))
	if err := f.Stretch(context.Background(), "in.wav", 2.5, "out.wav"); err == nil {
		t.Fatal("expected error for unclamped ratio")
	}
	if len(calls) != 0 {
		t.Fatal("ffmpeg should not run for invalid ratio")
	}
}

func TestStretchBuildsAtempoFilter(t *testing.T) {
	var calls []call
	f := New("ffmpeg").WithRunner(capture(&calls))
	if err := f.Stretch(context.Background(), "in.wav", 1.25, "out.wav"); err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(calls[0].args, " ")
	if !strings.Contains(joined, "atempo=1.250000") {
		t.Fatalf("missing atempo filter in %q", joined)
	}
}

func TestOverlayArgsDelayEachClipAndMixOverCanvas(t *testing.T) {
	clips := []track.Clip{
		{File: "a.wav", Start: 0, End: 2},
		{File: "b.wav", Start: 2.5, End: 5},
	}
	args := buildOverlayArgs(clips, 6, "out.wav")
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "anullsrc=r=44100:cl=stereo") {
		t.Fatalf("missing silent canvas in %q", joined)
	}
	if !strings.Contains(joined, "[1:a]adelay=0|0[d0]") {
		t.Fatalf("missing first delay in %q", joined)
	}
	if !strings.Contains(joined, "[2:a]adelay=2500|2500[d1]") {
		t.Fatalf("missing second delay in %q", joined)
	}
	if !strings.Contains(joined, "amix=inputs=3:duration=first:normalize=0") {
		t.Fatalf("missing summing mix in %q", joined)
	}
}

func TestOverlayAcceptsIdenticalStarts(t *testing.T) {
	clips := []track.Clip{
		{File: "a.wav", Start: 1, End: 2},
		{File: "b.wav", Start: 1, End: 3},
	}
	args := buildOverlayArgs(clips, 3, "out.wav")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "adelay=1000|1000[d0]") || !strings.Contains(joined, "adelay=1000|1000[d1]") {
		t.Fatalf("expected both clips delayed to the same offset: %q", joined)
	}
}

func TestDuckMixKeysCompressionOffSpeech(t *testing.T) {
	args := buildDuckMixArgs("speech.wav", "music.wav", "out.wav")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "sidechaincompress=threshold=0.05:ratio=8:attack=50:release=800") {
		t.Fatalf("missing sidechain parameters in %q", joined)
	}
	// Output length must follow the speech track, not the music track.
	if !strings.Contains(joined, "duration=first") {
		t.Fatalf("missing duration bound in %q", joined)
	}
	if args[4] != "-i" || args[5] != "speech.wav" {
		t.Fatalf("speech must be the first input: %v", args)
	}
}

func TestMuxCopiesVideoAndEncodesAudio(t *testing.T) {
	args := buildMuxArgs("in.mp4", "dub.wav", "out.mp4")
	joined := strings.Join(args, " ")
	for _, want := range []string{"-map 0:v:0", "-map 1:a:0", "-c:v copy", "-c:a aac"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %q", want, joined)
		}
	}
}

func TestConcatPreservesSourceOrder(t *testing.T) {
	args := buildConcatArgs([]string{"long.wav", "mid.wav", "short.wav"}, "ref.wav")
	joined := strings.Join(args, " ")
	first := strings.Index(joined, "long.wav")
	second := strings.Index(joined, "mid.wav")
	third := strings.Index(joined, "short.wav")
	if !(first < second && second < third) {
		t.Fatalf("inputs out of order: %q", joined)
	}
	if !strings.Contains(joined, "concat=n=3:v=0:a=1") {
		t.Fatalf("missing concat filter in %q", joined)
	}
}

func TestCutSegmentRejectsInvalidWindow(t *testing.T) {
	var calls []call
	f := New("").WithRunner(capture(&calls))
	if err := f.CutSegment(context.Background(), "in.wav", 5, 5, "out.wav"); err == nil {
		t.Fatal("expected error for empty window")
	}
}

func TestCleanAppliesDenoiseAndHighpass(t *testing.T) {
	args := buildCleanArgs("ref.wav", "ref_clean.wav")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "afftdn") || !strings.Contains(joined, "highpass=f=100") {
		t.Fatalf("missing cleaning filters in %q", joined)
	}
}
