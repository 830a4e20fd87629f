package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const wordByWordEndpoint = "https://translate.googleapis.com/translate_a/single"

// WordByWord is the non-contextual fallback translation service. It issues
// one request per segment and ignores surrounding dialogue, which loses
// register and idiom but keeps the pipeline alive when the LLM is down.
type WordByWord struct {
	httpClient *http.Client
	endpoint   string
}

// NewWordByWord constructs the fallback service.
func NewWordByWord(client *http.Client) *WordByWord {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &WordByWord{httpClient: client, endpoint: wordByWordEndpoint}
}

// WithEndpoint overrides the translation endpoint (for testing).
func (w *WordByWord) WithEndpoint(endpoint string) *WordByWord {
	if endpoint != "" {
		w.endpoint = endpoint
	}
	return w
}

// Translate converts one text fragment to targetLang.
func (w *WordByWord) Translate(ctx context.Context, text, targetLang string) (string, error) {
	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", "auto")
	query.Set("tl", targetLang)
	query.Set("dt", "t")
	query.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("fallback translate: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fallback translate: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("fallback translate: read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fallback translate: http %d", resp.StatusCode)
	}
	return parseWordByWordResponse(payload)
}

// parseWordByWordResponse unpacks the nested array response: the first
// element holds chunk arrays whose first entry is the translated text.
func parseWordByWordResponse(payload []byte) (string, error) {
	var decoded []json.RawMessage
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("fallback translate: decode: %w", err)
	}
	if len(decoded) == 0 {
		return "", fmt.Errorf("fallback translate: empty response")
	}
	var chunks [][]json.RawMessage
	if err := json.Unmarshal(decoded[0], &chunks); err != nil {
		return "", fmt.Errorf("fallback translate: decode chunks: %w", err)
	}
	var builder strings.Builder
	for _, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(chunk[0], &part); err != nil {
			continue
		}
		builder.WriteString(part)
	}
	result := strings.TrimSpace(builder.String())
	if result == "" {
		return "", fmt.Errorf("fallback translate: no translation in response")
	}
	return result, nil
}
