package lipsync

import (
	"context"
	"os"
	"strings"

	"dubber/internal/engines"
	"dubber/internal/services"
)

// Config captures runtime settings for the lip-sync engine.
type Config struct {
	// Command is the lip-sync binary to invoke.
	Command string
	// Checkpoint is the model checkpoint file.
	Checkpoint string
}

// Service re-times lip motion in a video to match a new audio track.
type Service struct {
	cfg    Config
	run    services.CommandRunner
	handle engines.Handle
}

// NewService creates a lip-sync service with the given configuration.
func NewService(cfg Config) *Service {
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = "wav2lip"
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

// Sync produces a lip-synced variant of videoPath matched to audioPath,
// writing it to dest and returning dest. The engine reports success through
// its exit code, but a missing output artifact is still treated as failure.
func (s *Service) Sync(ctx context.Context, videoPath, audioPath, dest string) (string, error) {
	if err := s.handle.Ensure(s.checkCheckpoint); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "lipsync", "checkpoint", s.cfg.Checkpoint, err)
	}

	args := []string{
		"--checkpoint_path", s.cfg.Checkpoint,
		"--face", videoPath,
		"--audio", audioPath,
		"--outfile", dest,
	}
	if _, err := s.run(ctx, s.cfg.Command, args...); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "lipsync", "sync", "", err)
	}

	if _, err := os.Stat(dest); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "lipsync", "verify output", "artifact missing", err)
	}
	return dest, nil
}

func (s *Service) checkCheckpoint() error {
	_, err := os.Stat(s.cfg.Checkpoint)
	return err
}
