package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dubber/internal/config"
)

func TestLoadDefaultsExpandPathsAndReadEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("HF_TOKEN", "hf-test")
	t.Setenv("DUBBER_TRANSLATE_API_KEY", "sk-test")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(tempHome, ".local", "share", "dubber", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Tools.FFmpeg != "ffmpeg" || cfg.Tools.FFprobe != "ffprobe" {
		t.Fatalf("unexpected tool defaults: %+v", cfg.Tools)
	}
	if cfg.Diarize.HFToken != "hf-test" {
		t.Fatalf("expected HF token from env, got %q", cfg.Diarize.HFToken)
	}
	if cfg.Translate.APIKey != "sk-test" {
		t.Fatalf("expected translate key from env, got %q", cfg.Translate.APIKey)
	}
	if !cfg.Diarize.Enabled || !cfg.Separate.Enabled || !cfg.LipSync.Enabled {
		t.Fatal("expected diarize, separate, and lipsync enabled by default")
	}
	if cfg.Alignment.Workers != 0 {
		t.Fatalf("expected alignment workers default 0, got %d", cfg.Alignment.Workers)
	}
}

func TestLoadParsesExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dubber.toml")
	content := strings.Join([]string{
		"[paths]",
		`work_dir = "` + filepath.Join(dir, "work") + `"`,
		`output_dir = "` + filepath.Join(dir, "out") + `"`,
		"[translate]",
		`service = "wordbyword"`,
		"[diarize]",
		"enabled = false",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: exists=%v path=%q", exists, resolved)
	}
	if cfg.Diarize.Enabled {
		t.Fatal("expected diarize disabled")
	}
	if cfg.Translate.Service != "wordbyword" {
		t.Fatalf("unexpected translate service: %q", cfg.Translate.Service)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown translate service", func(c *config.Config) { c.Translate.Service = "yandex" }},
		{"missing translate model", func(c *config.Config) { c.Translate.Model = "" }},
		{"negative alignment workers", func(c *config.Config) { c.Alignment.Workers = -1 }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "yaml" }},
		{"empty work dir", func(c *config.Config) { c.Paths.WorkDir = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error when config exists")
	}
}
