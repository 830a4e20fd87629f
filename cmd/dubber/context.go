package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"dubber/internal/config"
	"dubber/internal/engines/convert"
	"dubber/internal/engines/diarize"
	"dubber/internal/engines/emotion"
	"dubber/internal/engines/lipsync"
	"dubber/internal/engines/separate"
	"dubber/internal/engines/transcribe"
	"dubber/internal/engines/translate"
	"dubber/internal/engines/tts"
	"dubber/internal/logging"
	"dubber/internal/media/audio"
	"dubber/internal/media/ffprobe"
	"dubber/internal/pipeline"
	"dubber/internal/reference"
	"dubber/internal/runstore"
	"dubber/internal/segmentgen"
	"dubber/internal/timeline"
	"dubber/internal/track"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) buildLogger(cfg *config.Config) (*slog.Logger, error) {
	outputs := []string{"stdout"}
	if cfg.Paths.LogDir != "" {
		outputs = append(outputs, filepath.Join(cfg.Paths.LogDir, "dubber.log"))
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
}

func (c *commandContext) openStore(cfg *config.Config) (*runstore.Store, error) {
	return runstore.Open(filepath.Join(cfg.Paths.LogDir, "runs.db"))
}

// runOverrides carries per-invocation engine settings from flags.
type runOverrides struct {
	convertModel string
	convertIndex string
}

func (c *commandContext) buildController(cfg *config.Config, logger *slog.Logger, store *runstore.Store, overrides runOverrides, progress pipeline.ProgressFunc) *pipeline.Controller {
	ffmpeg := audio.New(cfg.Tools.FFmpeg)

	convertCfg := convert.Config{
		Command:   cfg.Convert.Command,
		ModelPath: cfg.Convert.ModelPath,
		IndexPath: cfg.Convert.IndexPath,
	}
	if overrides.convertModel != "" {
		convertCfg.ModelPath = overrides.convertModel
	}
	if overrides.convertIndex != "" {
		convertCfg.IndexPath = overrides.convertIndex
	}

	var converter segmentgen.Converter
	if converterSvc := convert.NewService(convertCfg); converterSvc.Configured() {
		converter = converterSvc
	}

	ttsService := tts.NewService(tts.Config{
		Command: cfg.TTS.Command,
		Model:   cfg.TTS.Model,
	})

	durationProbe := func(ctx context.Context, path string) (float64, error) {
		return ffprobe.Duration(ctx, cfg.Tools.FFprobe, path)
	}

	var translateClient *translate.Client
	if cfg.Translate.Service != "wordbyword" {
		translateClient = translate.NewClient(translate.ClientConfig{
			APIKey:         cfg.Translate.APIKey,
			BaseURL:        cfg.Translate.BaseURL,
			Model:          cfg.Translate.Model,
			TimeoutSeconds: cfg.Translate.TimeoutSeconds,
		})
	}

	var separator pipeline.Separator = passthroughSeparator{}
	if cfg.Separate.Enabled {
		separator = separate.NewService(separate.Config{Model: cfg.Separate.Model})
	}

	var diarizer pipeline.Diarizer = disabledDiarizer{}
	if cfg.Diarize.Enabled {
		diarizer = diarize.NewService(diarize.Config{
			Model:   cfg.Diarize.Model,
			HFToken: cfg.Diarize.HFToken,
		}, logger)
	}

	var analyzer pipeline.EmotionAnalyzer = neutralAnalyzer{}
	if cfg.Emotion.Enabled {
		analyzer = emotion.NewService(emotion.Config{Command: cfg.Emotion.Command})
	}

	engines := pipeline.Engines{
		Separator:  separator,
		Transcribe: transcribe.NewService(transcribe.Config{
			Model:       cfg.Transcribe.Model,
			CUDAEnabled: cfg.Transcribe.CUDAEnabled,
			VADMethod:   cfg.Transcribe.VADMethod,
		}),
		Diarize:    diarizer,
		Emotion:    analyzer,
		References: reference.NewBuilder(ffmpeg, logger),
		Translate:  translate.NewService(translateClient, nil, logger),
		Segments:   segmentgen.NewProcessor(ttsService, converter, ffmpeg, durationProbe, cfg.Alignment.Workers, logger),
		Assembler:  timeline.NewAssembler(ffmpeg, logger),
		LipSync: lipsync.NewService(lipsync.Config{
			Command:    cfg.LipSync.Command,
			Checkpoint: cfg.LipSync.Checkpoint,
		}),
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithDurationProbe(durationProbe),
	}
	if store != nil {
		opts = append(opts, pipeline.WithStore(store))
	}
	if progress != nil {
		opts = append(opts, pipeline.WithProgress(progress))
	}
	return pipeline.NewController(cfg, engines, ffmpeg, opts...)
}

// lockWorkspace takes the workspace lock so two runs cannot share temporary
// files. The returned release func is safe to call once.
func lockWorkspace(cfg *config.Config) (func(), error) {
	if err := os.MkdirAll(cfg.Paths.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	lock := flock.New(filepath.Join(cfg.Paths.WorkDir, "dubber.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another dubber run is already using %s", cfg.Paths.WorkDir)
	}
	return func() { _ = lock.Unlock() }, nil
}

// passthroughSeparator stands in when separation is disabled: the full mix
// doubles as the vocals track and there is no background stem.
type passthroughSeparator struct{}

func (passthroughSeparator) Separate(_ context.Context, audioPath, _ string) (string, string, error) {
	return audioPath, "", nil
}

// disabledDiarizer reports no turns, collapsing attribution to mono-speaker.
type disabledDiarizer struct{}

func (disabledDiarizer) Diarize(context.Context, string) ([]track.Turn, error) {
	return nil, nil
}

// neutralAnalyzer stands in when the classifier is disabled.
type neutralAnalyzer struct{}

func (neutralAnalyzer) Analyze(context.Context, string) (emotion.Result, error) {
	return emotion.Neutral(), nil
}
