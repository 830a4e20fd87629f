package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dubber/internal/services"
	"dubber/internal/track"
)

// Config captures runtime settings for transcription.
type Config struct {
	// Model is the whisper model to use (e.g. "large-v3").
	Model string
	// CUDAEnabled enables GPU acceleration.
	CUDAEnabled bool
	// VADMethod selects the voice activity detection method.
	VADMethod string
}

const (
	defaultModel = "large-v3"
	uvxCommand   = "uvx"
)

// Service provides speech recognition through the whisperx CLI.
type Service struct {
	cfg Config
	run services.CommandRunner
}

// NewService creates a transcription service with the given configuration.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg, run: services.RunCommand}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(run services.CommandRunner) *Service {
	if run != nil {
		s.run = run
	}
	return s
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return defaultModel
}

// Transcribe runs recognition over a mono WAV file and returns the ordered
// segments. Output files land in outputDir.
func (s *Service) Transcribe(ctx context.Context, source, outputDir, lang string) ([]track.Segment, error) {
	if source == "" {
		return nil, services.Wrap(services.ErrValidation, "transcribe", "run", "source path required", nil)
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	if _, err := s.run(ctx, uvxCommand, s.buildArgs(source, outputDir, lang)...); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", "", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	segments, err := LoadSegments(jsonPath)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcribe", "parse output", jsonPath, err)
	}
	return segments, nil
}

func (s *Service) buildArgs(source, outputDir, lang string) []string {
	args := []string{
		"whisperx",
		source,
		"--model", s.Model(),
		"--output_dir", outputDir,
		"--output_format", "json",
		"--segment_resolution", "sentence",
	}
	if method := strings.TrimSpace(s.cfg.VADMethod); method != "" {
		args = append(args, "--vad_method", method)
	}
	if lang != "" {
		args = append(args, "--language", lang)
	}
	if s.cfg.CUDAEnabled {
		args = append(args, "--device", "cuda")
	} else {
		args = append(args, "--device", "cpu", "--compute_type", "float32")
	}
	return args
}

type payloadSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type payload struct {
	Segments []payloadSegment `json:"segments"`
}

// LoadSegments reads a whisperx JSON output file into transcript segments.
// Zero-length or empty-text entries are discarded.
func LoadSegments(jsonPath string) ([]track.Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var decoded payload
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	segments := make([]track.Segment, 0, len(decoded.Segments))
	for _, seg := range decoded.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" || seg.End <= seg.Start {
			continue
		}
		segments = append(segments, track.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
	}
	return segments, nil
}
