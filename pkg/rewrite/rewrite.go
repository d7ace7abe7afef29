// Package rewrite calls a locally hosted generation model to rework
// titles and article bodies. The model is best-effort: every failure
// path degrades to the original text instead of blocking the pipeline.
package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const headlinePrompt = `أنت محرر أخبار محترف. أعد صياغة العنوان والمقتطف التاليين بأسلوب صحفي واضح دون تغيير الحقائق.

العنوان: %s
المقتطف: %s

أجب بكائن JSON فقط بهذا الشكل، دون أي نص آخر:
{"title": "العنوان المعاد صياغته", "excerpt": "المقتطف المعاد صياغته"}`

const articlePrompt = `أنت محرر أخبار محترف في قسم "%s". أعد كتابة المقال التالي بأسلوب صحفي رصين، مع الحفاظ على جميع الحقائق والأسماء والأرقام كما هي.

العنوان: %s

النص:
%s

أجب بكائن JSON فقط بهذا الشكل، دون أي نص آخر:
{"title": "...", "content": "...", "excerpt": "..."}`

// Headline is the rewritten title/excerpt pair.
type Headline struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
}

// Article is the full journalistic rewrite used by the automation
// pipeline.
type Article struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Excerpt string `json:"excerpt"`
}

// Client talks to a local Ollama-compatible generation endpoint.
type Client struct {
	client  *http.Client
	baseURL string
	model   string
	logger  *zap.Logger
}

// New creates a rewrite client.
func New(baseURL, model string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		logger:  logger,
	}
}

// RewriteHeadline reworks a title and excerpt. A nil result means the
// model was unreachable or unusable; callers proceed with the
// originals. Missing fields in an otherwise usable response fall back
// to the originals individually.
func (c *Client) RewriteHeadline(ctx context.Context, title, excerpt string) *Headline {
	raw, err := c.generate(ctx, fmt.Sprintf(headlinePrompt, title, excerpt))
	if err != nil {
		c.logger.Warn("headline rewrite unavailable", zap.Error(err))
		return nil
	}

	out := &Headline{Title: title, Excerpt: excerpt}
	var parsed Headline
	if err := json.Unmarshal(extractJSON(raw), &parsed); err != nil {
		c.logger.Warn("headline rewrite returned unparseable response", zap.Error(err))
		return out
	}
	if strings.TrimSpace(parsed.Title) != "" {
		out.Title = strings.TrimSpace(parsed.Title)
	}
	if strings.TrimSpace(parsed.Excerpt) != "" {
		out.Excerpt = strings.TrimSpace(parsed.Excerpt)
	}
	return out
}

// RewriteArticle reworks a full article body for publication. Same
// fallback discipline as RewriteHeadline.
func (c *Client) RewriteArticle(ctx context.Context, title, content, category string) *Article {
	raw, err := c.generate(ctx, fmt.Sprintf(articlePrompt, category, title, content))
	if err != nil {
		c.logger.Warn("article rewrite unavailable", zap.Error(err))
		return nil
	}

	out := &Article{Title: title, Content: content}
	var parsed Article
	if err := json.Unmarshal(extractJSON(raw), &parsed); err != nil {
		c.logger.Warn("article rewrite returned unparseable response", zap.Error(err))
		return out
	}
	if strings.TrimSpace(parsed.Title) != "" {
		out.Title = strings.TrimSpace(parsed.Title)
	}
	if strings.TrimSpace(parsed.Content) != "" {
		out.Content = strings.TrimSpace(parsed.Content)
	}
	if strings.TrimSpace(parsed.Excerpt) != "" {
		out.Excerpt = strings.TrimSpace(parsed.Excerpt)
	}
	return out
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"format": "json",
		"stream": false,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model status %d", resp.StatusCode)
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode model response: %w", err)
	}
	if result.Response == "" {
		return "", fmt.Errorf("model returned empty response")
	}
	return result.Response, nil
}

// extractJSON pulls the first balanced JSON object out of free text.
// Models wrap output in markdown fences or commentary often enough
// that parsing the raw response directly is hopeless.
func extractJSON(raw string) []byte {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return []byte(raw)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return []byte(raw[start : i+1])
			}
		}
	}
	return []byte(raw[start:])
}
