package runstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"dubber/internal/runstore"
	"dubber/internal/services"
)

func openStore(t *testing.T) *runstore.Store {
	t.Helper()
	store, err := runstore.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateAndGetRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run := runstore.Run{
		ID:         "run-1",
		InputPath:  "/media/movie.mp4",
		TargetLang: "hi",
		WorkDir:    "/tmp/work/run-1",
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != runstore.RunStatusRunning {
		t.Fatalf("new run status: got %q", got.Status)
	}
	if got.InputPath != run.InputPath || got.TargetLang != "hi" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("created_at not recorded")
	}
}

func TestGetRunMissing(t *testing.T) {
	store := openStore(t)

	_, err := store.GetRun(context.Background(), "nope")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFinishRunAndOutputPath(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, runstore.Run{ID: "run-1", InputPath: "in.mp4", TargetLang: "es"}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := store.SetOutputPath(ctx, "run-1", "/out/in_dubbed_es.mp4"); err != nil {
		t.Fatalf("SetOutputPath: %v", err)
	}
	if err := store.FinishRun(ctx, "run-1", runstore.RunStatusFailed, "tts warmup failed"); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != runstore.RunStatusFailed || got.ErrorMessage != "tts warmup failed" {
		t.Fatalf("unexpected run after finish: %+v", got)
	}
	if got.OutputPath != "/out/in_dubbed_es.mp4" {
		t.Fatalf("output path not recorded: %q", got.OutputPath)
	}
}

func TestStageHistoryPreservesOrder(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, runstore.Run{ID: "run-1", InputPath: "in.mp4", TargetLang: "es"}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	stages := []struct{ stage, status string }{
		{"extract", runstore.StageStatusStarted},
		{"extract", runstore.StageStatusDone},
		{"diarize", runstore.StageStatusDegraded},
	}
	for _, s := range stages {
		if err := store.RecordStage(ctx, "run-1", s.stage, s.status, ""); err != nil {
			t.Fatalf("RecordStage(%s): %v", s.stage, err)
		}
	}

	history, err := store.StageHistory(ctx, "run-1")
	if err != nil {
		t.Fatalf("StageHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 transitions, got %d", len(history))
	}
	for i, want := range stages {
		if history[i].Stage != want.stage || history[i].Status != want.status {
			t.Fatalf("transition %d: got %+v, want %+v", i, history[i], want)
		}
	}
}

func TestSegmentOutcomesReplacePriorAttempt(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, runstore.Run{ID: "run-1", InputPath: "in.mp4", TargetLang: "es"}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	first := []runstore.SegmentOutcome{
		{Index: 0, Speaker: "A", Status: "synthesized", Clip: "seg_0.wav"},
		{Index: 1, Speaker: "B", Status: "dropped"},
	}
	if err := store.RecordSegmentOutcomes(ctx, "run-1", first); err != nil {
		t.Fatalf("RecordSegmentOutcomes: %v", err)
	}

	second := []runstore.SegmentOutcome{
		{Index: 0, Speaker: "A", Status: "fallback_original", Clip: "seg_0_orig.wav"},
	}
	if err := store.RecordSegmentOutcomes(ctx, "run-1", second); err != nil {
		t.Fatalf("RecordSegmentOutcomes (replace): %v", err)
	}

	got, err := store.SegmentOutcomes(ctx, "run-1")
	if err != nil {
		t.Fatalf("SegmentOutcomes: %v", err)
	}
	if len(got) != 1 || got[0].Status != "fallback_original" {
		t.Fatalf("expected replaced outcomes, got %+v", got)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, id := range []string{"run-1", "run-2", "run-3"} {
		if err := store.CreateRun(ctx, runstore.Run{ID: id, InputPath: "in.mp4", TargetLang: "es"}); err != nil {
			t.Fatalf("CreateRun(%s): %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
}

func TestReopenExistingLedger(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.db")

	store, err := runstore.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.CreateRun(context.Background(), runstore.Run{ID: "run-1", InputPath: "in.mp4", TargetLang: "es"}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := runstore.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.GetRun(context.Background(), "run-1"); err != nil {
		t.Fatalf("GetRun after reopen: %v", err)
	}
}
