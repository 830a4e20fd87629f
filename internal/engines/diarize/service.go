package diarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"dubber/internal/engines"
	"dubber/internal/logging"
	"dubber/internal/services"
	"dubber/internal/track"
)

// Config captures runtime settings for speaker diarization.
type Config struct {
	// Model is the pyannote pipeline identifier.
	Model string
	// HFToken authenticates against Hugging Face; diarization is disabled
	// without one.
	HFToken string
}

const (
	defaultModel = "pyannote/speaker-diarization-3.1"
	uvxCommand   = "uvx"
)

// Service identifies speaker turns through the pyannote CLI. A missing token
// or a failed pipeline load degrades to an empty turn list rather than an
// error: downstream attribution falls back to mono-speaker mode.
type Service struct {
	cfg    Config
	run    services.CommandRunner
	handle engines.Handle
	logger *slog.Logger
}

// NewService creates a diarization service with the given configuration.
func NewService(cfg Config, logger *slog.Logger) *Service {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	return &Service{
		cfg:    cfg,
		run:    services.RunCommand,
		logger: logging.NewComponentLogger(logger, "diarize"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(run services.CommandRunner) *Service {
	if run != nil {
		s.run = run
	}
	return s
}

// Enabled reports whether diarization can run at all.
func (s *Service) Enabled() bool {
	return strings.TrimSpace(s.cfg.HFToken) != ""
}

// Diarize returns the speaker turns for an audio file, or an empty slice when
// diarization is unavailable.
func (s *Service) Diarize(ctx context.Context, audioPath string) ([]track.Turn, error) {
	if !s.Enabled() {
		s.logger.Warn("diarization disabled, continuing in mono-speaker mode",
			logging.String(logging.FieldEventType, "diarize_disabled"),
			logging.String("reason", "missing HF token"),
		)
		return nil, nil
	}

	if err := s.handle.Ensure(func() error { return s.checkPipeline(ctx) }); err != nil {
		s.logger.Warn("diarization pipeline unavailable, continuing in mono-speaker mode",
			logging.String(logging.FieldEventType, "diarize_unavailable"),
			logging.Error(err),
		)
		return nil, nil
	}

	output, err := s.run(ctx, uvxCommand,
		"pyannote-audio", "apply",
		"--pipeline", s.cfg.Model,
		"--token", s.cfg.HFToken,
		"--format", "json",
		audioPath,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "diarize", "pyannote", "", err)
	}
	return parseTurns(output)
}

// checkPipeline verifies the pipeline can be loaded before the first apply.
// Model downloads and license acceptance failures surface here once.
func (s *Service) checkPipeline(ctx context.Context) error {
	_, err := s.run(ctx, uvxCommand,
		"pyannote-audio", "check",
		"--pipeline", s.cfg.Model,
		"--token", s.cfg.HFToken,
	)
	return err
}

type payloadTurn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

func parseTurns(data []byte) ([]track.Turn, error) {
	var decoded struct {
		Turns []payloadTurn `json:"turns"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("parse diarization json: %w", err)
	}
	turns := make([]track.Turn, 0, len(decoded.Turns))
	for _, turn := range decoded.Turns {
		if turn.End <= turn.Start || turn.Speaker == "" {
			continue
		}
		turns = append(turns, track.Turn{Start: turn.Start, End: turn.End, Speaker: turn.Speaker})
	}
	return turns, nil
}
