package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"dubber/internal/logging"
	"dubber/internal/services"
	"dubber/internal/track"
)

// Service translates the whole transcript in one contextual request through
// the LLM client, degrading to the word-for-word fallback when the primary
// is unconfigured or fails.
type Service struct {
	client   *Client
	fallback *WordByWord
	logger   *slog.Logger
}

// NewService creates the translation service. client may be nil when only
// the fallback should be used.
func NewService(client *Client, fallback *WordByWord, logger *slog.Logger) *Service {
	if fallback == nil {
		fallback = NewWordByWord(nil)
	}
	return &Service{
		client:   client,
		fallback: fallback,
		logger:   logging.NewComponentLogger(logger, "translate"),
	}
}

// TranslateSegments fills TextTranslated on every segment, translating to
// targetLang. The segments are modified in place.
func (s *Service) TranslateSegments(ctx context.Context, segments []*track.Segment, targetLang string) error {
	if len(segments) == 0 {
		return nil
	}
	if s.client == nil || !s.client.Configured() {
		s.logger.Info("no LLM translation service configured, using word-for-word fallback")
		return s.useFallback(ctx, segments, targetLang)
	}

	if err := s.translateContextual(ctx, segments, targetLang); err != nil {
		s.logger.Warn("contextual translation failed, degrading to word-for-word fallback",
			logging.String(logging.FieldEventType, "translate_degraded"),
			logging.Error(err),
		)
		return s.useFallback(ctx, segments, targetLang)
	}
	return nil
}

func (s *Service) translateContextual(ctx context.Context, segments []*track.Segment, targetLang string) error {
	systemPrompt := fmt.Sprintf(
		"You are a professional dubbing translator. Translate the following transcript lines to %s. "+
			"CRITICAL: each translation must be concise enough to speak within the original duration; "+
			"shorten phrasing or drop filler words when the target language runs longer. "+
			"The input format is 'Line ID: [Duration: Xs] Text'. "+
			"Return ONLY a JSON array of strings, one translated line per input line.",
		targetLang,
	)

	var userPrompt strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&userPrompt, "%d: [Duration: %.2fs] %s\n", i, seg.Duration(), seg.Text)
	}

	content, err := s.client.Complete(ctx, systemPrompt, userPrompt.String())
	if err != nil {
		return err
	}

	lines, err := parseTranslatedLines(content)
	if err != nil {
		return err
	}
	if len(lines) != len(segments) {
		s.logger.Warn("translation line count mismatch",
			logging.Int("want", len(segments)),
			logging.Int("got", len(lines)),
		)
	}
	for i, seg := range segments {
		if i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			seg.TextTranslated = strings.TrimSpace(lines[i])
		} else {
			seg.TextTranslated = seg.Text
		}
	}
	return nil
}

func (s *Service) useFallback(ctx context.Context, segments []*track.Segment, targetLang string) error {
	for _, seg := range segments {
		translated, err := s.fallback.Translate(ctx, seg.Text, targetLang)
		if err != nil {
			s.logger.Warn("fallback translation failed for segment, keeping source text",
				logging.Error(err),
			)
			seg.TextTranslated = seg.Text
			continue
		}
		seg.TextTranslated = translated
	}
	return nil
}

// parseTranslatedLines decodes the model's JSON array, tolerating markdown
// code fences around the payload.
func parseTranslatedLines(content string) ([]string, error) {
	cleaned := strings.TrimSpace(content)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}
	var lines []string
	if err := json.Unmarshal([]byte(cleaned), &lines); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "translate", "parse response", "", err)
	}
	return lines, nil
}
