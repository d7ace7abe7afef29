// Package scrape fetches live article pages and extracts full bodies,
// using curated per-site selectors where known and a generic
// readability-style extractor everywhere else.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hudhud-news/hudhud/internal/store"
)

// Options tunes the scraper.
type Options struct {
	Timeout          time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
	RequestDelay     time.Duration
	MinContentLength int
	UserAgents       []string
}

// Result reports one item's scrape outcome. Transient and permanent
// failures both land here, never as returned errors.
type Result struct {
	ItemID  int64  `json:"item_id"`
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// QueueResult aggregates a scrape queue pass.
type QueueResult struct {
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
}

// Scraper extracts full article bodies for ingested items.
type Scraper struct {
	store   store.Store
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
	logger  *zap.Logger
	uaIndex atomic.Uint32
}

// New creates a scraper.
func New(st store.Store, opts Options, logger *zap.Logger) *Scraper {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.RequestDelay <= 0 {
		opts.RequestDelay = 3 * time.Second
	}
	if opts.MinContentLength <= 0 {
		opts.MinContentLength = 300
	}
	if len(opts.UserAgents) == 0 {
		opts.UserAgents = []string{"Mozilla/5.0 (X11; Linux x86_64) hudhud/1.0"}
	}
	return &Scraper{
		store:   st,
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(opts.RequestDelay), 1),
		logger:  logger,
	}
}

// ScrapeArticle fetches and extracts one item's full body. The outcome
// is persisted either way: content plus the scraped flag on success,
// the failure reason otherwise, always with a scraped-at stamp.
func (s *Scraper) ScrapeArticle(ctx context.Context, itemID int64) (*Result, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("load item %d: %w", itemID, err)
	}
	if item.SourceURL == "" {
		return nil, fmt.Errorf("item %d has no source URL", itemID)
	}

	result := &Result{ItemID: itemID}

	html, err := s.fetchPage(ctx, item.SourceURL)
	if err != nil {
		return s.recordFailure(ctx, result, fmt.Sprintf("fetch page: %v", err))
	}

	content, err := s.extract(item.SourceURL, html)
	if err != nil {
		return s.recordFailure(ctx, result, err.Error())
	}
	if len([]rune(content)) < s.opts.MinContentLength {
		return s.recordFailure(ctx, result,
			fmt.Sprintf("extracted only %d chars, need %d", len([]rune(content)), s.opts.MinContentLength))
	}

	if err := s.store.SaveScrapedContent(ctx, itemID, content); err != nil {
		return nil, fmt.Errorf("save content: %w", err)
	}

	result.Success = true
	result.Content = content
	s.logger.Info("scraped article",
		zap.Int64("item_id", itemID),
		zap.Int("chars", len([]rune(content))))
	return result, nil
}

// ProcessScrapeQueue scrapes a batch of not-yet-scraped items, most
// recently fetched first, throttled between requests.
func (s *Scraper) ProcessScrapeQueue(ctx context.Context, batchSize int) (*QueueResult, error) {
	items, err := s.store.ScrapeQueue(ctx, batchSize)
	if err != nil {
		return nil, fmt.Errorf("load scrape queue: %w", err)
	}

	out := &QueueResult{}
	for _, item := range items {
		if err := s.limiter.Wait(ctx); err != nil {
			return out, err
		}
		out.Processed++
		res, err := s.ScrapeArticle(ctx, item.ID)
		if err != nil {
			s.logger.Error("scrape queue item", zap.Int64("item_id", item.ID), zap.Error(err))
			continue
		}
		if res.Success {
			out.Successful++
		}
	}

	s.logger.Info("scrape pass complete",
		zap.Int("processed", out.Processed),
		zap.Int("successful", out.Successful))
	return out, nil
}

// RetryFailedScrapes clears the error flag on the oldest failed items
// so they re-enter the queue on the next pass. Deliberate manual
// recovery; some failures are permanent (paywalls, JS-only pages).
func (s *Scraper) RetryFailedScrapes(ctx context.Context, limit int) (int64, error) {
	n, err := s.store.ResetScrapeErrors(ctx, limit)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("requeued failed scrapes", zap.Int64("count", n))
	}
	return n, nil
}

func (s *Scraper) recordFailure(ctx context.Context, result *Result, msg string) (*Result, error) {
	result.Error = msg
	if err := s.store.SaveScrapeError(ctx, result.ItemID, msg); err != nil {
		return nil, fmt.Errorf("save scrape error: %w", err)
	}
	s.logger.Warn("scrape failed", zap.Int64("item_id", result.ItemID), zap.String("reason", msg))
	return result, nil
}

// fetchPage retrieves the page HTML with a rotating user agent and
// bounded retries with exponential backoff. Anti-bot responses and
// network flakiness are expected here.
func (s *Scraper) fetchPage(ctx context.Context, pageURL string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := s.opts.RetryBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		html, err := s.fetchOnce(ctx, pageURL)
		if err == nil {
			return html, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d attempts: %w", s.opts.MaxRetries, lastErr)
}

func (s *Scraper) fetchOnce(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "ar,en;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}
	return string(body), nil
}

func (s *Scraper) nextUserAgent() string {
	idx := s.uaIndex.Add(1)
	return s.opts.UserAgents[int(idx)%len(s.opts.UserAgents)]
}

// extract picks the site-specific rule when the hostname is known and
// its selectors yield enough text, otherwise the generic extractor.
func (s *Scraper) extract(pageURL, html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	if parsed, err := url.Parse(pageURL); err == nil {
		if rule, ok := RuleForHost(parsed.Hostname()); ok {
			if text := ExtractWithRule(doc, rule); len([]rune(text)) >= s.opts.MinContentLength {
				return text, nil
			}
		}
	}

	if text := ExtractGeneric(doc); text != "" {
		return text, nil
	}
	return "", fmt.Errorf("no extractable content found")
}
