// Package feed pulls external RSS/Atom feeds, normalizes entries, runs
// them through the relevance filter and classifier, and persists what
// survives.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/hudhud-news/hudhud/internal/store"
	"github.com/hudhud-news/hudhud/pkg/classify"
	"github.com/hudhud-news/hudhud/pkg/filter"
)

const userAgent = "hudhud/1.0 (+https://github.com/hudhud-news/hudhud)"

// Options tunes the fetcher.
type Options struct {
	Timeout          time.Duration
	InterSourceDelay time.Duration
	ExcerptMaxLen    int
	ErrorThreshold   int
}

// FetchResult reports one source's fetch outcome.
type FetchResult struct {
	SourceID    int64    `json:"source_id"`
	Success     bool     `json:"success"`
	NewArticles int      `json:"new_articles"`
	Merged      int      `json:"merged"`
	Skipped     int      `json:"skipped"`
	Errors      []string `json:"errors,omitempty"`
}

// BatchResult aggregates a full fetch pass over all due sources.
type BatchResult struct {
	Sources     int `json:"sources"`
	Succeeded   int `json:"succeeded"`
	Failed      int `json:"failed"`
	NewArticles int `json:"new_articles"`
}

// Fetcher pulls feeds and turns entries into ingested items.
type Fetcher struct {
	store      store.Store
	engine     *filter.Engine
	classifier *classify.Classifier
	client     *http.Client
	parser     *gofeed.Parser
	opts       Options
	logger     *zap.Logger
}

// New creates a fetcher.
func New(st store.Store, engine *filter.Engine, classifier *classify.Classifier, opts Options, logger *zap.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.InterSourceDelay < 0 {
		opts.InterSourceDelay = 0
	}
	if opts.ExcerptMaxLen <= 0 {
		opts.ExcerptMaxLen = 200
	}
	if opts.ErrorThreshold <= 0 {
		opts.ErrorThreshold = 5
	}
	return &Fetcher{
		store:      st,
		engine:     engine,
		classifier: classifier,
		client:     &http.Client{Timeout: opts.Timeout},
		parser:     gofeed.NewParser(),
		opts:       opts,
		logger:     logger,
	}
}

// FetchFeed fetches one source. Validation failures (unknown source,
// inactive source) return an error; transient fetch failures land in
// the result with the source's error state updated, never as an error.
func (f *Fetcher) FetchFeed(ctx context.Context, sourceID int64) (*FetchResult, error) {
	src, err := f.store.GetSource(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("load source %d: %w", sourceID, err)
	}
	if !src.Active {
		return nil, fmt.Errorf("source %d (%s) is disabled", src.ID, src.Name)
	}
	if src.Status == store.SourceError {
		return nil, fmt.Errorf("source %d (%s) is in error state: %s", src.ID, src.Name, deref(src.LastError))
	}

	result := &FetchResult{SourceID: src.ID}

	parsed, err := f.fetchAndParse(ctx, src.FeedURL)
	if err != nil {
		msg := err.Error()
		result.Errors = append(result.Errors, msg)
		if markErr := f.store.MarkSourceError(ctx, src.ID, msg, f.opts.ErrorThreshold); markErr != nil {
			f.logger.Error("update source error state", zap.Int64("source_id", src.ID), zap.Error(markErr))
		}
		f.logger.Warn("feed fetch failed",
			zap.Int64("source_id", src.ID),
			zap.String("source", src.Name),
			zap.Error(err))
		return result, nil
	}

	base, _ := url.Parse(src.FeedURL)
	for _, entry := range parsed.Items {
		if err := f.ingestEntry(ctx, src, entry, base, result); err != nil {
			result.Errors = append(result.Errors, err.Error())
			f.logger.Warn("ingest entry",
				zap.Int64("source_id", src.ID),
				zap.String("entry", entry.Title),
				zap.Error(err))
		}
	}

	if err := f.store.MarkSourceFetched(ctx, src.ID, time.Now().UTC()); err != nil {
		f.logger.Error("mark source fetched", zap.Int64("source_id", src.ID), zap.Error(err))
	}

	result.Success = true
	f.logger.Info("feed fetched",
		zap.Int64("source_id", src.ID),
		zap.String("source", src.Name),
		zap.Int("entries", len(parsed.Items)),
		zap.Int("new", result.NewArticles),
		zap.Int("merged", result.Merged),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// FetchAllActiveFeeds fetches every active source whose interval has
// elapsed, sequentially with a politeness delay. One source's failure
// never aborts the batch.
func (f *Fetcher) FetchAllActiveFeeds(ctx context.Context) (*BatchResult, error) {
	sources, err := f.store.ListSources(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}

	batch := &BatchResult{}
	now := time.Now().UTC()
	first := true
	for _, src := range sources {
		if src.Status == store.SourceError {
			continue
		}
		if src.LastFetchedAt != nil {
			due := src.LastFetchedAt.Add(time.Duration(src.FetchInterval) * time.Minute)
			if now.Before(due) {
				continue
			}
		}

		if !first {
			select {
			case <-ctx.Done():
				return batch, ctx.Err()
			case <-time.After(f.opts.InterSourceDelay):
			}
		}
		first = false

		batch.Sources++
		res, err := f.FetchFeed(ctx, src.ID)
		if err != nil || !res.Success {
			batch.Failed++
			continue
		}
		batch.Succeeded++
		batch.NewArticles += res.NewArticles
	}

	f.logger.Info("fetch pass complete",
		zap.Int("sources", batch.Sources),
		zap.Int("succeeded", batch.Succeeded),
		zap.Int("failed", batch.Failed),
		zap.Int("new_articles", batch.NewArticles))
	return batch, nil
}

// CleanupOldArticles hard-deletes pending/rejected/expired items older
// than the threshold.
func (f *Fetcher) CleanupOldArticles(ctx context.Context, daysOld int) (int64, error) {
	if daysOld <= 0 {
		daysOld = 7
	}
	before := time.Now().UTC().AddDate(0, 0, -daysOld)
	n, err := f.store.DeleteItemsOlderThan(ctx, before,
		[]store.ItemStatus{store.ItemPending, store.ItemRejected, store.ItemExpired})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		f.logger.Info("cleaned up old items", zap.Int64("deleted", n), zap.Int("days", daysOld))
	}
	return n, nil
}

// ExpireOldArticles soft-transitions approved items older than the
// threshold to expired, preserving publish-eligibility history.
func (f *Fetcher) ExpireOldArticles(ctx context.Context, daysOld int) (int64, error) {
	if daysOld <= 0 {
		daysOld = 30
	}
	before := time.Now().UTC().AddDate(0, 0, -daysOld)
	n, err := f.store.ExpireItemsOlderThan(ctx, before)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		f.logger.Info("expired old items", zap.Int64("expired", n), zap.Int("days", daysOld))
	}
	return n, nil
}

func (f *Fetcher) fetchAndParse(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed status %d", resp.StatusCode)
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return parsed, nil
}

func (f *Fetcher) ingestEntry(ctx context.Context, src *store.FeedSource, entry *gofeed.Item, base *url.URL, result *FetchResult) error {
	guid := entry.GUID
	if guid == "" {
		guid = entry.Link
	}
	if guid == "" {
		result.Skipped++
		return fmt.Errorf("entry %q has no guid or link", entry.Title)
	}

	hash := TitleHash(entry.Title)

	// Persistent dedup gates; feeds are re-fetched constantly and must
	// not duplicate.
	if exists, err := f.store.ItemExistsByGUID(ctx, guid); err != nil {
		return err
	} else if exists {
		result.Skipped++
		return nil
	}
	if exists, err := f.store.ItemExistsByTitleHash(ctx, hash, src.ID); err != nil {
		return err
	} else if exists {
		result.Skipped++
		return nil
	}

	published := time.Now().UTC()
	if entry.PublishedParsed != nil {
		published = entry.PublishedParsed.UTC()
	} else if entry.UpdatedParsed != nil {
		published = entry.UpdatedParsed.UTC()
	}

	body := entry.Description
	if body == "" {
		body = entry.Content
	}
	excerpt := TruncateExcerpt(StripHTML(body), f.opts.ExcerptMaxLen)

	verdict := f.engine.Evaluate(filter.Candidate{
		GUID:        guid,
		Title:       entry.Title,
		Excerpt:     excerpt,
		SourceID:    src.ID,
		AutoApprove: src.AutoApprove,
		PublishedAt: published,
	})

	switch verdict.Action {
	case filter.ActionDrop:
		result.Skipped++
		f.logger.Debug("entry rejected",
			zap.Int64("source_id", src.ID),
			zap.String("title", entry.Title),
			zap.String("reasoning", verdict.Reasoning))
		return nil
	case filter.ActionMerge:
		if err := f.store.IncrementVariantCount(ctx, verdict.MergeWithID); err != nil {
			return fmt.Errorf("record variant of item %d: %w", verdict.MergeWithID, err)
		}
		result.Merged++
		f.logger.Info("entry merged with earlier item",
			zap.Int64("source_id", src.ID),
			zap.Int64("merge_with", verdict.MergeWithID),
			zap.String("title", entry.Title))
		return nil
	}

	item := &store.IngestedItem{
		GUID:        guid,
		Title:       entry.Title,
		TitleHash:   hash,
		Excerpt:     excerpt,
		SourceURL:   entry.Link,
		ImageURL:    ResolveImage(entry, base),
		PublishedAt: published,
		SourceID:    src.ID,
		Status:      store.ItemPending,
	}
	if verdict.Action == filter.ActionPublish {
		item.Status = store.ItemApproved
		now := time.Now().UTC()
		item.ApprovedAt = &now
	}

	if f.classifier != nil {
		category := src.Category
		if f.classifier.IsMixed(category) {
			if cls := f.classifier.Classify(entry.Title, excerpt); cls.Category != "" {
				category = cls.Category
			} else {
				category = ""
			}
		}
		if category != "" && !f.classifier.IsMixed(category) {
			item.Category = &category
		}
	}

	if err := f.store.InsertItem(ctx, item); err != nil {
		return err
	}
	f.engine.Remember(item.ID, verdict.Fingerprint)

	result.NewArticles++
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
