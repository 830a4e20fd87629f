package separate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dubber/internal/services"
)

// Config captures runtime settings for source separation.
type Config struct {
	// Model selects the demucs model variant.
	Model string
}

const defaultModel = "htdemucs"

// Service splits an audio track into vocals and accompaniment via demucs.
type Service struct {
	cfg Config
	run services.CommandRunner
}

// NewService creates a separation service with the given configuration.
func NewService(cfg Config) *Service {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
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

// Separate runs two-stem separation on audioPath, writing stems under
// workDir. It returns the vocals path and the accompaniment path. The
// accompaniment path is empty when the model produced none.
func (s *Service) Separate(ctx context.Context, audioPath, workDir string) (string, string, error) {
	if audioPath == "" {
		return "", "", services.Wrap(services.ErrValidation, "separate", "run", "audio path required", nil)
	}
	outDir := filepath.Join(workDir, "stems")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", "", fmt.Errorf("separate: ensure output dir: %w", err)
	}

	_, err := s.run(ctx, "demucs",
		"--two-stems", "vocals",
		"-n", s.cfg.Model,
		"-o", outDir,
		audioPath,
	)
	if err != nil {
		return "", "", services.Wrap(services.ErrExternalTool, "separate", "demucs", "", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	stemDir := filepath.Join(outDir, s.cfg.Model, baseName)

	vocals := filepath.Join(stemDir, "vocals.wav")
	if _, statErr := os.Stat(vocals); statErr != nil {
		return "", "", services.Wrap(services.ErrExternalTool, "separate", "collect stems", "vocals stem missing", statErr)
	}

	background := filepath.Join(stemDir, "no_vocals.wav")
	if _, statErr := os.Stat(background); statErr != nil {
		background = ""
	}
	return vocals, background, nil
}
