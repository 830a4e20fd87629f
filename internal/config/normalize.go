package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTools(); err != nil {
		return err
	}
	c.normalizeDiarize()
	c.normalizeTranslate()
	if err := c.normalizeLipSync(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.MusicDir) == "" {
		c.Paths.MusicDir = defaultMusicDir
	}
	if c.Paths.MusicDir, err = expandPath(c.Paths.MusicDir); err != nil {
		return fmt.Errorf("paths.music_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() error {
	if strings.TrimSpace(c.Tools.FFmpeg) == "" {
		c.Tools.FFmpeg = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Tools.FFprobe) == "" {
		c.Tools.FFprobe = defaultFFprobeBinary
	}
	return nil
}

func (c *Config) normalizeDiarize() {
	if c.Diarize.HFToken == "" {
		c.Diarize.HFToken = strings.TrimSpace(os.Getenv("HF_TOKEN"))
	}
	if strings.TrimSpace(c.Diarize.Model) == "" {
		c.Diarize.Model = defaultDiarizeModel
	}
}

func (c *Config) normalizeTranslate() {
	if c.Translate.APIKey == "" {
		c.Translate.APIKey = strings.TrimSpace(os.Getenv("DUBBER_TRANSLATE_API_KEY"))
	}
	if strings.TrimSpace(c.Translate.BaseURL) == "" {
		c.Translate.BaseURL = defaultTranslateBaseURL
	}
	if c.Translate.TimeoutSeconds <= 0 {
		c.Translate.TimeoutSeconds = defaultTranslateTimeout
	}
}

func (c *Config) normalizeLipSync() error {
	var err error
	if c.LipSync.Checkpoint, err = expandPath(c.LipSync.Checkpoint); err != nil {
		return fmt.Errorf("lipsync.checkpoint: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", trimmed, err)
	}
	return abs, nil
}
