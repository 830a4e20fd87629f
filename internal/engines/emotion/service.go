package emotion

import (
	"context"
	"encoding/json"
	"strings"

	"dubber/internal/services"
)

// Result is the classifier output for one audio clip.
type Result struct {
	Emotion     string  `json:"emotion"`
	Confidence  float64 `json:"confidence"`
	EnergyLevel string  `json:"energy_level"`
	PitchLevel  string  `json:"pitch_level"`
}

// Neutral is the default used when classification is disabled or fails.
func Neutral() Result {
	return Result{Emotion: "neutral", EnergyLevel: "medium", PitchLevel: "medium"}
}

// Config captures runtime settings for the prosody classifier.
type Config struct {
	// Command is the classifier binary to invoke.
	Command string
}

// Service classifies emotion and prosody for short audio clips.
type Service struct {
	cfg Config
	run services.CommandRunner
}

// NewService creates an emotion classification service.
func NewService(cfg Config) *Service {
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = "emotion-classify"
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

// Analyze classifies one clip. Errors are returned for the caller to log;
// per the stage policy the caller substitutes Neutral() and continues.
func (s *Service) Analyze(ctx context.Context, clipPath string) (Result, error) {
	output, err := s.run(ctx, s.cfg.Command, "--json", clipPath)
	if err != nil {
		return Neutral(), services.Wrap(services.ErrExternalTool, "emotion", "classify", "", err)
	}
	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Neutral(), services.Wrap(services.ErrExternalTool, "emotion", "parse output", "", err)
	}
	if strings.TrimSpace(result.Emotion) == "" {
		result.Emotion = "neutral"
	}
	return result, nil
}
