package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dubber/internal/services"
)

func TestRootCommandWiring(t *testing.T) {
	cmd := newRootCommand()

	want := []string{"run", "status", "cleanup", "config"}
	for _, name := range want {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[translate]") {
		t.Fatalf("sample config missing translate section:\n%s", data)
	}
}

func TestConfigValidateWithExplicitFile(t *testing.T) {
	target := writeTestConfig(t)

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", target, "config", "validate"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out.String(), "is valid") {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestRunRequiresLanguageFlag(t *testing.T) {
	target := writeTestConfig(t)

	cmd := newRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--config", target, "run", "movie.mp4"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error when --language is missing")
	}
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	target := filepath.Join(dir, "config.toml")
	cfgBody := strings.Join([]string{
		"[paths]",
		`work_dir = "` + filepath.Join(dir, "work") + `"`,
		`output_dir = "` + filepath.Join(dir, "out") + `"`,
		`music_dir = "` + filepath.Join(dir, "music") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
	}, "\n")
	if err := os.WriteFile(target, []byte(cfgBody), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return target
}

func TestPreflightInputChecksStreams(t *testing.T) {
	probe := func(payload string) services.CommandRunner {
		return func(context.Context, string, ...string) ([]byte, error) {
			return []byte(payload), nil
		}
	}

	both := `{"streams":[{"codec_type":"video"},{"codec_type":"audio"}]}`
	if err := preflightInput(context.Background(), probe(both), "ffprobe", "movie.mp4"); err != nil {
		t.Fatalf("preflight: %v", err)
	}

	noVideo := `{"streams":[{"codec_type":"audio"}]}`
	if err := preflightInput(context.Background(), probe(noVideo), "ffprobe", "movie.mp4"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error without a video stream, got %v", err)
	}

	noAudio := `{"streams":[{"codec_type":"video"}]}`
	if err := preflightInput(context.Background(), probe(noAudio), "ffprobe", "movie.mp4"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error without an audio stream, got %v", err)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("3f2c1a9e-aaaa-bbbb-cccc-000000000000"); got != "3f2c1a9e" {
		t.Fatalf("shortID: got %q", got)
	}
	if got := shortID("plain"); got != "plain" {
		t.Fatalf("shortID passthrough: got %q", got)
	}
}
