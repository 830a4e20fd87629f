package emotion_test

import (
	"context"
	"errors"
	"testing"

	"dubber/internal/engines/emotion"
)

func TestAnalyzeParsesClassifierOutput(t *testing.T) {
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(`{"emotion":"angry","confidence":0.91,"energy_level":"high","pitch_level":"low"}`), nil
	}
	svc := emotion.NewService(emotion.Config{}).WithCommandRunner(run)

	got, err := svc.Analyze(context.Background(), "seg_0_orig.wav")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Emotion != "angry" || got.EnergyLevel != "high" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestAnalyzeFailureYieldsNeutral(t *testing.T) {
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("classifier crashed")
	}
	svc := emotion.NewService(emotion.Config{}).WithCommandRunner(run)

	got, err := svc.Analyze(context.Background(), "seg_0_orig.wav")
	if err == nil {
		t.Fatal("expected error to surface for logging")
	}
	if got != emotion.Neutral() {
		t.Fatalf("expected neutral fallback, got %+v", got)
	}
}
