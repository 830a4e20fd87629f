package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	MusicDir  string `toml:"music_dir"`
	LogDir    string `toml:"log_dir"`
}

// Tools names the media binaries the pipeline shells out to.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Transcribe contains speech-recognition settings.
type Transcribe struct {
	Model       string `toml:"model"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
	VADMethod   string `toml:"vad_method"`
}

// Diarize contains speaker-diarization settings. Diarization requires a
// Hugging Face token; without one the pipeline degrades to mono-speaker mode.
type Diarize struct {
	Enabled bool   `toml:"enabled"`
	Model   string `toml:"model"`
	HFToken string `toml:"hf_token"`
}

// Separate contains vocal/background source-separation settings.
type Separate struct {
	Enabled bool   `toml:"enabled"`
	Model   string `toml:"model"`
}

// Emotion contains prosody classifier settings.
type Emotion struct {
	Enabled bool   `toml:"enabled"`
	Command string `toml:"command"`
}

// Translate contains translation service settings. The primary service is an
// OpenAI-compatible chat completion endpoint; a non-contextual word-for-word
// service is always available as fallback.
type Translate struct {
	Service        string `toml:"service"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTS contains voice-cloning synthesis settings.
type TTS struct {
	Command string `toml:"command"`
	Model   string `toml:"model"`
}

// Convert contains default voice-conversion model artifacts. Both can be
// overridden per run from the CLI.
type Convert struct {
	Command   string `toml:"command"`
	ModelPath string `toml:"model_path"`
	IndexPath string `toml:"index_path"`
}

// LipSync contains lip-sync engine settings.
type LipSync struct {
	Enabled    bool   `toml:"enabled"`
	Command    string `toml:"command"`
	Checkpoint string `toml:"checkpoint"`
}

// Alignment contains worker-pool sizing for the time-stretch step. Zero
// means one worker per available CPU.
type Alignment struct {
	Workers int `toml:"workers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the dubbing pipeline.
//
// Configuration sections by subsystem:
//   - Paths: working, output, music, and log directories
//   - Tools: ffmpeg/ffprobe binary names
//   - Transcribe: speech-recognition model settings
//   - Diarize: speaker diarization (requires HF token)
//   - Separate: vocal/background separation
//   - Emotion: prosody classifier
//   - Translate: LLM translation service plus fallback
//   - TTS: voice-cloning synthesis engine
//   - Convert: optional voice-conversion model defaults
//   - LipSync: lip-sync engine
//   - Alignment: time-stretch worker pool sizing
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Tools      Tools      `toml:"tools"`
	Transcribe Transcribe `toml:"transcribe"`
	Diarize    Diarize    `toml:"diarize"`
	Separate   Separate   `toml:"separate"`
	Emotion    Emotion    `toml:"emotion"`
	Translate  Translate  `toml:"translate"`
	TTS        TTS        `toml:"tts"`
	Convert    Convert    `toml:"convert"`
	LipSync    LipSync    `toml:"lipsync"`
	Alignment  Alignment  `toml:"alignment"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dubber/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err = os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the working, output, music, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.MusicDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}
