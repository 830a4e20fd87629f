package language_test

import (
	"testing"

	"dubber/internal/language"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"es", "es"},
		{"ES", "es"},
		{"spa", "es"},
		{"pt-BR", "pt"},
		{"zh-Hans", "zh"},
		{"  fr ", "fr"},
	}
	for _, tc := range cases {
		got, err := language.Normalize(tc.in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "!!", "not a language"} {
		if _, err := language.Normalize(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestIsSupported(t *testing.T) {
	if !language.IsSupported("es") {
		t.Fatal("expected es supported")
	}
	if language.IsSupported("fi") {
		t.Fatal("expected fi unsupported")
	}
}

func TestDisplayName(t *testing.T) {
	if got := language.DisplayName("es"); got != "Spanish" {
		t.Fatalf("DisplayName(es) = %q", got)
	}
}
