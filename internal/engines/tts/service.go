package tts

import (
	"context"
	"os"
	"strings"

	"dubber/internal/engines"
	"dubber/internal/services"
)

// Config captures runtime settings for voice-cloning synthesis.
type Config struct {
	// Command is the synthesis binary to invoke.
	Command string
	// Model optionally selects a specific checkpoint.
	Model string
}

// Request describes one synthesis call.
type Request struct {
	Text           string
	ReferenceAudio string
	Language       string
	Emotion        string
	OutputPath     string
}

// Service drives the voice-cloning engine. The underlying model is a single
// shared accelerator-bound instance: callers must never issue two Synthesize
// calls concurrently.
type Service struct {
	cfg    Config
	run    services.CommandRunner
	handle engines.Handle
}

// NewService creates a synthesis service with the given configuration.
func NewService(cfg Config) *Service {
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = "chatterbox-tts"
	}
	return &Service{cfg: cfg, run: services.RunCommand}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(run services.CommandRunner) *Service {
	if run != nil {
		s.run = run
	}
	return s
}

// Synthesize generates speech for the request, writing the raw clip to
// req.OutputPath. The clip's duration is unconstrained; alignment happens
// downstream.
func (s *Service) Synthesize(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.Text) == "" {
		return services.Wrap(services.ErrValidation, "synthesize", "run", "empty text", nil)
	}
	if _, err := os.Stat(req.ReferenceAudio); err != nil {
		return services.Wrap(services.ErrNotFound, "synthesize", "reference audio", req.ReferenceAudio, err)
	}

	if err := s.handle.Ensure(func() error { return s.warmup(ctx) }); err != nil {
		return services.Wrap(services.ErrExternalTool, "synthesize", "engine init", "", err)
	}

	args := []string{
		"--text", req.Text,
		"--reference", req.ReferenceAudio,
		"--language", req.Language,
		"--output", req.OutputPath,
	}
	if req.Emotion != "" {
		args = append(args, "--emotion", req.Emotion)
	}
	if s.cfg.Model != "" {
		args = append(args, "--model", s.cfg.Model)
	}
	if _, err := s.run(ctx, s.cfg.Command, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "synthesize", "generate", "", err)
	}
	return nil
}

// warmup loads the model once so per-segment calls reuse the resident engine.
func (s *Service) warmup(ctx context.Context) error {
	args := []string{"--warmup"}
	if s.cfg.Model != "" {
		args = append(args, "--model", s.cfg.Model)
	}
	_, err := s.run(ctx, s.cfg.Command, args...)
	return err
}

// EngineState exposes the handle lifecycle for status reporting.
func (s *Service) EngineState() engines.State {
	return s.handle.State()
}
