package services_test

import (
	"errors"
	"strings"
	"testing"

	"dubber/internal/services"
)

func TestWrapIncludesMarkerAndDetail(t *testing.T) {
	cause := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "transcribe", "whisper", "model load", cause)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	for _, want := range []string{"transcribe", "whisper", "model load", "boom"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestInputError(t *testing.T) {
	cases := []struct {
		marker error
		want   bool
	}{
		{services.ErrValidation, true},
		{services.ErrConfiguration, true},
		{services.ErrNotFound, true},
		{services.ErrExternalTool, false},
		{services.ErrTransient, false},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.marker, "stage", "op", "", nil)
		if got := services.InputError(err); got != tc.want {
			t.Fatalf("InputError(%v) = %v, want %v", tc.marker, got, tc.want)
		}
	}
}
