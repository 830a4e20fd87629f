package translate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dubber/internal/engines/translate"
	"dubber/internal/track"
)

func segmentsFixture() []*track.Segment {
	return []*track.Segment{
		{Start: 0, End: 2, Text: "Hi"},
		{Start: 2, End: 5, Text: "Bye"},
	}
}

func newLLMServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("missing auth header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":` + content + `},"finish_reason":"stop"}]}`))
	}))
}

func TestTranslateSegmentsContextual(t *testing.T) {
	server := newLLMServer(t, `"[\"Hola\", \"Adios\"]"`)
	defer server.Close()

	client := translate.NewClient(translate.ClientConfig{APIKey: "sk-test", Model: "m", BaseURL: server.URL})
	svc := translate.NewService(client, nil, nil)

	segments := segmentsFixture()
	if err := svc.TranslateSegments(context.Background(), segments, "es"); err != nil {
		t.Fatalf("TranslateSegments: %v", err)
	}
	if segments[0].TextTranslated != "Hola" || segments[1].TextTranslated != "Adios" {
		t.Fatalf("unexpected translations: %q %q", segments[0].TextTranslated, segments[1].TextTranslated)
	}
}

func TestTranslateSegmentsToleratesMarkdownFences(t *testing.T) {
	server := newLLMServer(t, `"`+"```json\\n[\\\"Hola\\\", \\\"Adios\\\"]\\n```"+`"`)
	defer server.Close()

	client := translate.NewClient(translate.ClientConfig{APIKey: "sk-test", Model: "m", BaseURL: server.URL})
	svc := translate.NewService(client, nil, nil)

	segments := segmentsFixture()
	if err := svc.TranslateSegments(context.Background(), segments, "es"); err != nil {
		t.Fatalf("TranslateSegments: %v", err)
	}
	if segments[0].TextTranslated != "Hola" {
		t.Fatalf("unexpected translation: %q", segments[0].TextTranslated)
	}
}

func TestTranslateSegmentsCountMismatchKeepsSourceText(t *testing.T) {
	server := newLLMServer(t, `"[\"Hola\"]"`)
	defer server.Close()

	client := translate.NewClient(translate.ClientConfig{APIKey: "sk-test", Model: "m", BaseURL: server.URL})
	svc := translate.NewService(client, nil, nil)

	segments := segmentsFixture()
	if err := svc.TranslateSegments(context.Background(), segments, "es"); err != nil {
		t.Fatalf("TranslateSegments: %v", err)
	}
	if segments[0].TextTranslated != "Hola" {
		t.Fatalf("unexpected first translation: %q", segments[0].TextTranslated)
	}
	if segments[1].TextTranslated != "Bye" {
		t.Fatalf("expected source text for missing line, got %q", segments[1].TextTranslated)
	}
}

func TestTranslateSegmentsFallsBackWhenPrimaryFails(t *testing.T) {
	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer llm.Close()

	fallbackServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		var translated string
		switch q {
		case "Hi":
			translated = "Hola"
		case "Bye":
			translated = "Adios"
		}
		_, _ = w.Write([]byte(`[[["` + translated + `","` + q + `",null,null]],null,"en"]`))
	}))
	defer fallbackServer.Close()

	client := translate.NewClient(translate.ClientConfig{APIKey: "sk-test", Model: "m", BaseURL: llm.URL})
	fallback := translate.NewWordByWord(fallbackServer.Client()).WithEndpoint(fallbackServer.URL)
	svc := translate.NewService(client, fallback, nil)

	segments := segmentsFixture()
	if err := svc.TranslateSegments(context.Background(), segments, "es"); err != nil {
		t.Fatalf("TranslateSegments: %v", err)
	}
	if segments[0].TextTranslated != "Hola" || segments[1].TextTranslated != "Adios" {
		t.Fatalf("unexpected fallback translations: %q %q", segments[0].TextTranslated, segments[1].TextTranslated)
	}
}

func TestUnconfiguredClientGoesStraightToFallback(t *testing.T) {
	requests := 0
	fallbackServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write([]byte(`[[["Hola","Hi",null,null]],null,"en"]`))
	}))
	defer fallbackServer.Close()

	fallback := translate.NewWordByWord(fallbackServer.Client()).WithEndpoint(fallbackServer.URL)
	svc := translate.NewService(nil, fallback, nil)

	segments := []*track.Segment{{Start: 0, End: 1, Text: "Hi"}}
	if err := svc.TranslateSegments(context.Background(), segments, "es"); err != nil {
		t.Fatalf("TranslateSegments: %v", err)
	}
	if requests != 1 || segments[0].TextTranslated != "Hola" {
		t.Fatalf("expected one fallback request, got %d (text %q)", requests, segments[0].TextTranslated)
	}
}

func TestFallbackFailureKeepsSourceText(t *testing.T) {
	fallbackServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer fallbackServer.Close()

	fallback := translate.NewWordByWord(fallbackServer.Client()).WithEndpoint(fallbackServer.URL)
	svc := translate.NewService(nil, fallback, nil)

	segments := []*track.Segment{{Start: 0, End: 1, Text: "Hi"}}
	if err := svc.TranslateSegments(context.Background(), segments, "es"); err != nil {
		t.Fatalf("TranslateSegments: %v", err)
	}
	if segments[0].TextTranslated != "Hi" {
		t.Fatalf("expected source text kept, got %q", segments[0].TextTranslated)
	}
}

func TestPromptCarriesDurations(t *testing.T) {
	var prompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		prompt = body.Messages[1].Content
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"[\"Hola\", \"Adios\"]"}}]}`))
	}))
	defer server.Close()

	client := translate.NewClient(translate.ClientConfig{APIKey: "sk-test", Model: "m", BaseURL: server.URL})
	svc := translate.NewService(client, nil, nil)
	if err := svc.TranslateSegments(context.Background(), segmentsFixture(), "es"); err != nil {
		t.Fatalf("TranslateSegments: %v", err)
	}
	if !strings.Contains(prompt, "0: [Duration: 2.00s] Hi") {
		t.Fatalf("prompt missing duration annotation: %q", prompt)
	}
}
