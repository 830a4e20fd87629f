package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"dubber/internal/attribution"
	"dubber/internal/config"
	"dubber/internal/language"
	"dubber/internal/logging"
	"dubber/internal/media/audio"
	"dubber/internal/runstore"
	"dubber/internal/segmentgen"
	"dubber/internal/services"
	"dubber/internal/track"
)

// Stage names, in execution order.
const (
	StageExtract    = "extract"
	StageSeparate   = "separate"
	StageTranscribe = "transcribe"
	StageAttribute  = "attribute"
	StageEmotion    = "emotion"
	StageReferences = "references"
	StageTranslate  = "translate"
	StageSegments   = "segments"
	StageAssemble   = "assemble"
	StageMux        = "mux"
	StageLipSync    = "lipsync"
)

var stageDescriptions = []struct {
	name        string
	description string
}{
	{StageExtract, "Extracting audio"},
	{StageSeparate, "Separating vocals from background"},
	{StageTranscribe, "Transcribing speech"},
	{StageAttribute, "Attributing speakers"},
	{StageEmotion, "Analyzing emotion"},
	{StageReferences, "Building voice references"},
	{StageTranslate, "Translating transcript"},
	{StageSegments, "Synthesizing dubbed segments"},
	{StageAssemble, "Assembling dubbed timeline"},
	{StageMux, "Muxing dubbed audio"},
	{StageLipSync, "Syncing lip motion"},
}

// ProgressFunc receives stage transitions. step is monotonically
// non-decreasing across one run.
type ProgressFunc func(step, total int, description string)

// RunRecorder persists run history. All methods are best-effort from the
// controller's point of view; persistence failures never abort a run.
type RunRecorder interface {
	CreateRun(ctx context.Context, run runstore.Run) error
	FinishRun(ctx context.Context, runID, status, errorMessage string) error
	SetOutputPath(ctx context.Context, runID, outputPath string) error
	RecordStage(ctx context.Context, runID, stage, status, detail string) error
	RecordSegmentOutcomes(ctx context.Context, runID string, outcomes []runstore.SegmentOutcome) error
}

// DurationFunc probes a media file's duration in seconds.
type DurationFunc func(ctx context.Context, path string) (float64, error)

// Request describes one dubbing run.
type Request struct {
	Input      string
	Output     string
	TargetLang string
	// Tone, when set, overrides every segment's classified emotion.
	Tone string
	// KeepMusic controls whether the separated background track is mixed
	// back under the dubbed speech.
	KeepMusic bool
	// LipSync requests the optional lip re-timing pass.
	LipSync bool
}

// Result reports where a completed run left its artifacts.
type Result struct {
	RunID      string
	OutputPath string
	WorkDir    string
	Segments   int
	Speakers   int
}

// Controller drives the linear dubbing stage machine.
type Controller struct {
	cfg      *config.Config
	engines  Engines
	ffmpeg   *audio.FFmpeg
	duration DurationFunc
	store    RunRecorder
	progress ProgressFunc
	logger   *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

func WithStore(store RunRecorder) Option {
	return func(c *Controller) { c.store = store }
}

func WithProgress(progress ProgressFunc) Option {
	return func(c *Controller) { c.progress = progress }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

func WithDurationProbe(probe DurationFunc) Option {
	return func(c *Controller) { c.duration = probe }
}

func NewController(cfg *config.Config, engines Engines, ffmpeg *audio.FFmpeg, opts ...Option) *Controller {
	c := &Controller{
		cfg:     cfg,
		engines: engines,
		ffmpeg:  ffmpeg,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	c.logger = logging.NewComponentLogger(c.logger, "pipeline")
	return c
}

// Run executes every stage for one input video. Fatal stage failures abort
// with an error; degraded stages log and continue per the failure policy.
func (c *Controller) Run(ctx context.Context, req Request) (*Result, error) {
	if err := validateInput(req.Input); err != nil {
		return nil, err
	}
	targetLang, err := language.Normalize(req.TargetLang)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "validate language", fmt.Sprintf("unrecognized target language %q", req.TargetLang), err)
	}
	if !language.IsSupported(targetLang) {
		c.logger.Warn("target language outside the known-supported set, proceeding anyway",
			logging.String("language", targetLang),
		)
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, c.logger)

	workDir := filepath.Join(c.cfg.Paths.WorkDir, runID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "create workspace", workDir, err)
	}

	c.recordRunStart(ctx, runID, req, workDir, targetLang)
	logger.Info("run started",
		logging.String("input", req.Input),
		logging.String("language", targetLang),
	)

	result, runErr := c.execute(ctx, logger, req, runID, targetLang, workDir)
	if runErr != nil {
		c.record(ctx, func() error {
			return c.store.FinishRun(ctx, runID, runstore.RunStatusFailed, runErr.Error())
		})
		logger.Error("run failed", logging.Error(runErr))
		return nil, runErr
	}

	c.record(ctx, func() error {
		return c.store.FinishRun(ctx, runID, runstore.RunStatusCompleted, "")
	})
	logger.Info("run completed", logging.String("output", result.OutputPath))
	return result, nil
}

func (c *Controller) execute(ctx context.Context, logger *slog.Logger, req Request, runID, targetLang, workDir string) (*Result, error) {
	step := 0
	total := len(stageDescriptions)
	advance := func(stage string) context.Context {
		step++
		stageCtx := services.WithStage(ctx, stage)
		if c.progress != nil {
			c.progress(step, total, describeStage(stage))
		}
		c.record(stageCtx, func() error {
			return c.store.RecordStage(stageCtx, runID, stage, runstore.StageStatusStarted, "")
		})
		return stageCtx
	}
	finish := func(stageCtx context.Context, stage, status, detail string) {
		c.record(stageCtx, func() error {
			return c.store.RecordStage(stageCtx, runID, stage, status, detail)
		})
	}

	// Extract. Fatal.
	stageCtx := advance(StageExtract)
	audioPath := filepath.Join(workDir, "audio.wav")
	if err := c.ffmpeg.ExtractAudio(stageCtx, req.Input, audioPath); err != nil {
		finish(stageCtx, StageExtract, runstore.StageStatusFailed, err.Error())
		return nil, services.Wrap(services.ErrExternalTool, StageExtract, "extract audio", "", err)
	}
	sourceDuration := c.probeDuration(stageCtx, logger, req.Input)
	finish(stageCtx, StageExtract, runstore.StageStatusDone, "")

	// Separate. Non-fatal: degrade to the unseparated track with no music.
	stageCtx = advance(StageSeparate)
	vocalsPath, backgroundPath := audioPath, ""
	if vocals, background, err := c.engines.Separator.Separate(stageCtx, audioPath, workDir); err != nil {
		logging.WithContext(stageCtx, c.logger).Warn("source separation failed, using unseparated audio",
			logging.Error(err),
		)
		finish(stageCtx, StageSeparate, runstore.StageStatusDegraded, err.Error())
	} else {
		vocalsPath, backgroundPath = vocals, background
		finish(stageCtx, StageSeparate, runstore.StageStatusDone, "")
	}
	if !req.KeepMusic {
		backgroundPath = ""
	} else if backgroundPath != "" {
		c.persistBackground(logger, req.Input, backgroundPath)
	}

	// Transcribe. Fatal when nothing was heard.
	stageCtx = advance(StageTranscribe)
	transcribed, err := c.engines.Transcribe.Transcribe(stageCtx, vocalsPath, workDir, "")
	if err != nil {
		finish(stageCtx, StageTranscribe, runstore.StageStatusFailed, err.Error())
		return nil, services.Wrap(services.ErrExternalTool, StageTranscribe, "transcribe", "", err)
	}
	if len(transcribed) == 0 {
		finish(stageCtx, StageTranscribe, runstore.StageStatusFailed, "no segments")
		return nil, services.Wrap(services.ErrValidation, StageTranscribe, "transcribe", "no speech segments found, nothing to dub", nil)
	}
	segments := make([]*track.Segment, len(transcribed))
	for i := range transcribed {
		segments[i] = &transcribed[i]
	}
	c.cutOriginalClips(stageCtx, logger, segments, vocalsPath, workDir)
	finish(stageCtx, StageTranscribe, runstore.StageStatusDone, fmt.Sprintf("%d segments", len(segments)))

	// Attribute speakers. Diarization absence degrades to mono-speaker mode.
	stageCtx = advance(StageAttribute)
	turns, err := c.engines.Diarize.Diarize(stageCtx, vocalsPath)
	if err != nil {
		logging.WithContext(stageCtx, c.logger).Warn("diarization failed, degrading to mono-speaker attribution",
			logging.Error(err),
		)
		finish(stageCtx, StageAttribute, runstore.StageStatusDegraded, err.Error())
		turns = nil
	} else {
		finish(stageCtx, StageAttribute, runstore.StageStatusDone, fmt.Sprintf("%d turns", len(turns)))
	}
	attribution.AssignSpeakers(segments, turns, logger)

	// Emotion. Non-fatal per segment, skipped entirely under a tone override.
	stageCtx = advance(StageEmotion)
	c.analyzeEmotion(stageCtx, logger, segments, req.Tone)
	finish(stageCtx, StageEmotion, runstore.StageStatusDone, "")

	// Build references.
	stageCtx = advance(StageReferences)
	references, err := c.engines.References.Build(stageCtx, vocalsPath, segments, workDir)
	if err != nil {
		finish(stageCtx, StageReferences, runstore.StageStatusFailed, err.Error())
		return nil, services.Wrap(services.ErrExternalTool, StageReferences, "build references", "", err)
	}
	finish(stageCtx, StageReferences, runstore.StageStatusDone, fmt.Sprintf("%d speakers", len(references)))

	// Translate. The service degrades internally; a hard error still leaves
	// source text in place.
	stageCtx = advance(StageTranslate)
	if err := c.engines.Translate.TranslateSegments(stageCtx, segments, targetLang); err != nil {
		logging.WithContext(stageCtx, c.logger).Warn("translation failed, keeping source text",
			logging.Error(err),
		)
		for _, seg := range segments {
			if seg.TextTranslated == "" {
				seg.TextTranslated = seg.Text
			}
		}
		finish(stageCtx, StageTranslate, runstore.StageStatusDegraded, err.Error())
	} else {
		finish(stageCtx, StageTranslate, runstore.StageStatusDone, "")
	}

	// Process segments.
	stageCtx = advance(StageSegments)
	clips, outcomes, err := c.engines.Segments.Process(stageCtx, segments, references, targetLang, workDir)
	if err != nil {
		finish(stageCtx, StageSegments, runstore.StageStatusFailed, err.Error())
		return nil, services.Wrap(services.ErrExternalTool, StageSegments, "process segments", "", err)
	}
	c.recordOutcomes(stageCtx, runID, segments, outcomes)
	finish(stageCtx, StageSegments, runstore.StageStatusDone, fmt.Sprintf("%d clips", len(clips)))

	// Assemble. Fatal.
	stageCtx = advance(StageAssemble)
	speechPath, err := c.engines.Assembler.MergeClips(stageCtx, clips, sourceDuration, workDir)
	if err != nil {
		finish(stageCtx, StageAssemble, runstore.StageStatusFailed, err.Error())
		return nil, services.Wrap(services.ErrExternalTool, StageAssemble, "merge clips", "", err)
	}
	mixPath, err := c.engines.Assembler.Mix(stageCtx, speechPath, backgroundPath, workDir)
	if err != nil {
		finish(stageCtx, StageAssemble, runstore.StageStatusFailed, err.Error())
		return nil, services.Wrap(services.ErrExternalTool, StageAssemble, "mix background", "", err)
	}
	finish(stageCtx, StageAssemble, runstore.StageStatusDone, "")

	// Mux. Fatal.
	stageCtx = advance(StageMux)
	outputPath := c.outputPath(req, targetLang)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		finish(stageCtx, StageMux, runstore.StageStatusFailed, err.Error())
		return nil, services.Wrap(services.ErrConfiguration, StageMux, "create output dir", "", err)
	}
	if err := c.engines.Assembler.Mux(stageCtx, req.Input, mixPath, outputPath); err != nil {
		finish(stageCtx, StageMux, runstore.StageStatusFailed, err.Error())
		return nil, services.Wrap(services.ErrExternalTool, StageMux, "mux", "", err)
	}
	c.record(stageCtx, func() error {
		return c.store.SetOutputPath(stageCtx, runID, outputPath)
	})
	finish(stageCtx, StageMux, runstore.StageStatusDone, outputPath)

	// Lip-sync. Non-fatal: keep the pre-lip-sync video. Driven by the
	// speech-only merged track so the music bed cannot confuse the mouth model.
	stageCtx = advance(StageLipSync)
	if req.LipSync && c.cfg.LipSync.Enabled {
		synced := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + "_lipsync" + filepath.Ext(outputPath)
		if _, err := c.engines.LipSync.Sync(stageCtx, outputPath, speechPath, synced); err != nil {
			logging.WithContext(stageCtx, c.logger).Warn("lip sync failed, keeping dubbed video without lip re-timing",
				logging.Error(err),
			)
			finish(stageCtx, StageLipSync, runstore.StageStatusDegraded, err.Error())
		} else {
			outputPath = synced
			c.record(stageCtx, func() error {
				return c.store.SetOutputPath(stageCtx, runID, outputPath)
			})
			finish(stageCtx, StageLipSync, runstore.StageStatusDone, outputPath)
		}
	} else {
		finish(stageCtx, StageLipSync, runstore.StageStatusSkipped, "")
	}

	return &Result{
		RunID:      runID,
		OutputPath: outputPath,
		WorkDir:    workDir,
		Segments:   len(segments),
		Speakers:   len(references),
	}, nil
}

// Cleanup removes every run workspace and the extracted background tracks.
func (c *Controller) Cleanup(ctx context.Context) error {
	for _, dir := range []string{c.cfg.Paths.WorkDir, c.cfg.Paths.MusicDir} {
		if dir == "" {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return services.Wrap(services.ErrConfiguration, "pipeline", "cleanup", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrConfiguration, "pipeline", "cleanup", dir, err)
		}
		c.logger.Info("workspace cleared", logging.String("path", dir))
	}
	return nil
}

// CleanupRun removes a single run's workspace.
func (c *Controller) CleanupRun(runID string) error {
	if runID == "" {
		return services.Wrap(services.ErrValidation, "pipeline", "cleanup run", "run id required", nil)
	}
	dir := filepath.Join(c.cfg.Paths.WorkDir, runID)
	if err := os.RemoveAll(dir); err != nil {
		return services.Wrap(services.ErrConfiguration, "pipeline", "cleanup run", dir, err)
	}
	return nil
}

func (c *Controller) probeDuration(ctx context.Context, logger *slog.Logger, path string) float64 {
	if c.duration == nil {
		return 0
	}
	seconds, err := c.duration(ctx, path)
	if err != nil {
		logger.Warn("could not probe source duration, canvas will follow clip extents",
			logging.Error(err),
		)
		return 0
	}
	return seconds
}

// cutOriginalClips gives every segment its original-language audio clip. A
// failed cut leaves AudioPath empty; the segment can then only be voiced
// synthetically.
func (c *Controller) cutOriginalClips(ctx context.Context, logger *slog.Logger, segments []*track.Segment, vocalsPath, workDir string) {
	for i, seg := range segments {
		dest := filepath.Join(workDir, fmt.Sprintf("seg_%d_orig.wav", i))
		if err := c.ffmpeg.CutSegment(ctx, vocalsPath, seg.Start, seg.End, dest); err != nil {
			logger.Warn("could not cut original clip",
				logging.Int(logging.FieldSegment, i),
				logging.Error(err),
			)
			continue
		}
		seg.AudioPath = dest
	}
}

func (c *Controller) analyzeEmotion(ctx context.Context, logger *slog.Logger, segments []*track.Segment, tone string) {
	if tone != "" {
		for _, seg := range segments {
			seg.Emotion = tone
		}
		logger.Info("tone override active, skipping emotion analysis",
			logging.String("tone", tone),
		)
		return
	}
	for i, seg := range segments {
		if seg.AudioPath == "" {
			continue
		}
		result, err := c.engines.Emotion.Analyze(ctx, seg.AudioPath)
		if err != nil {
			logger.Debug("emotion analysis failed, defaulting to neutral",
				logging.Int(logging.FieldSegment, i),
				logging.Error(err),
			)
		}
		seg.Emotion = result.Emotion
		seg.EnergyLevel = result.EnergyLevel
		seg.PitchLevel = result.PitchLevel
	}
}

// persistBackground copies the separated music stem next to the other
// extracted tracks, named after the source video.
func (c *Controller) persistBackground(logger *slog.Logger, input, backgroundPath string) {
	if c.cfg.Paths.MusicDir == "" {
		return
	}
	if err := os.MkdirAll(c.cfg.Paths.MusicDir, 0o755); err != nil {
		logger.Warn("could not create music dir", logging.Error(err))
		return
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	dest := filepath.Join(c.cfg.Paths.MusicDir, base+"_bgm.wav")
	if err := copyFile(backgroundPath, dest); err != nil {
		logger.Warn("could not persist background track", logging.Error(err))
		return
	}
	logger.Info("background track saved", logging.String("path", dest))
}

func (c *Controller) outputPath(req Request, targetLang string) string {
	if req.Output != "" {
		return req.Output
	}
	base := strings.TrimSuffix(filepath.Base(req.Input), filepath.Ext(req.Input))
	name := fmt.Sprintf("%s_dubbed_%s%s", base, targetLang, filepath.Ext(req.Input))
	return filepath.Join(c.cfg.Paths.OutputDir, name)
}

func (c *Controller) recordRunStart(ctx context.Context, runID string, req Request, workDir, targetLang string) {
	c.record(ctx, func() error {
		return c.store.CreateRun(ctx, runstore.Run{
			ID:         runID,
			InputPath:  req.Input,
			TargetLang: targetLang,
			WorkDir:    workDir,
		})
	})
}

func (c *Controller) recordOutcomes(ctx context.Context, runID string, segments []*track.Segment, outcomes []segmentgen.Outcome) {
	records := make([]runstore.SegmentOutcome, 0, len(outcomes))
	for _, outcome := range outcomes {
		speaker := ""
		if outcome.Index >= 0 && outcome.Index < len(segments) {
			speaker = segments[outcome.Index].Speaker
		}
		records = append(records, runstore.SegmentOutcome{
			Index:   outcome.Index,
			Speaker: speaker,
			Status:  outcome.Status,
			Clip:    outcome.Clip,
		})
	}
	c.record(ctx, func() error {
		return c.store.RecordSegmentOutcomes(ctx, runID, records)
	})
}

func (c *Controller) record(ctx context.Context, op func() error) {
	if c.store == nil {
		return
	}
	if err := op(); err != nil {
		c.logger.Warn("run ledger update failed", logging.Error(err))
	}
}

func describeStage(stage string) string {
	for _, entry := range stageDescriptions {
		if entry.name == stage {
			return entry.description
		}
	}
	return stage
}

func validateInput(path string) error {
	if path == "" {
		return services.Wrap(services.ErrValidation, "pipeline", "validate input", "input video path required", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "pipeline", "validate input", fmt.Sprintf("input video %s not found", path), err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, "pipeline", "validate input", fmt.Sprintf("input %s is a directory", path), nil)
	}
	f, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "pipeline", "validate input", fmt.Sprintf("input video %s not readable", path), err)
	}
	_ = f.Close()
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
