package convert

import (
	"context"
	"os"
	"strings"

	"dubber/internal/engines"
	"dubber/internal/services"
)

// Config captures runtime settings for voice conversion.
type Config struct {
	// Command is the conversion binary to invoke.
	Command string
	// ModelPath is the conversion model artifact supplied for the run.
	ModelPath string
	// IndexPath optionally points at a feature index for the model.
	IndexPath string
}

// Service refines synthesized audio through a voice-conversion model. The
// handle is initialized lazily on first use because loading the model is
// expensive and many runs never configure one.
type Service struct {
	cfg    Config
	run    services.CommandRunner
	handle engines.Handle
}

// NewService creates a conversion service. A nil is never returned; callers
// check Configured before use.
func NewService(cfg Config) *Service {
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = "rvc-infer"
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

// Configured reports whether a conversion model was supplied for this run.
func (s *Service) Configured() bool {
	return strings.TrimSpace(s.cfg.ModelPath) != ""
}

// Convert passes a synthesized clip through the conversion model, writing
// the refined audio to dest.
func (s *Service) Convert(ctx context.Context, source, dest string) error {
	if !s.Configured() {
		return services.Wrap(services.ErrConfiguration, "convert", "run", "no conversion model configured", nil)
	}
	if err := s.handle.Ensure(func() error { return s.checkModel() }); err != nil {
		return services.Wrap(services.ErrExternalTool, "convert", "model load", s.cfg.ModelPath, err)
	}

	args := []string{
		"--model", s.cfg.ModelPath,
		"--input", source,
		"--output", dest,
	}
	if s.cfg.IndexPath != "" {
		args = append(args, "--index", s.cfg.IndexPath)
	}
	if _, err := s.run(ctx, s.cfg.Command, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "convert", "infer", "", err)
	}
	return nil
}

func (s *Service) checkModel() error {
	if _, err := os.Stat(s.cfg.ModelPath); err != nil {
		return err
	}
	if s.cfg.IndexPath != "" {
		if _, err := os.Stat(s.cfg.IndexPath); err != nil {
			return err
		}
	}
	return nil
}
