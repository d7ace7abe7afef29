// Package scheduler runs the periodic pipeline jobs: feed fetching,
// content scraping, the automation drain, and retention cleanup.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hudhud-news/hudhud/pkg/automation"
	"github.com/hudhud-news/hudhud/pkg/feed"
	"github.com/hudhud-news/hudhud/pkg/scrape"
)

// Intervals holds the cron specs for each job. Empty specs fall back
// to defaults.
type Intervals struct {
	Fetch    string
	Scrape   string
	Automate string
	Cleanup  string
}

// Options tunes the scheduled jobs.
type Options struct {
	Intervals    Intervals
	JobTimeout   time.Duration
	ScrapeBatch  int
	DrainBatch   int
	CleanupDays  int
	ExpireDays   int
	RetryScrapes int
}

// Scheduler drives the periodic jobs off a single cron runner.
type Scheduler struct {
	fetcher  *feed.Fetcher
	scraper  *scrape.Scraper
	pipeline *automation.Pipeline
	opts     Options
	cron     *cron.Cron
	logger   *zap.Logger
}

// New creates a scheduler.
func New(fetcher *feed.Fetcher, scraper *scrape.Scraper, pipeline *automation.Pipeline, opts Options, logger *zap.Logger) *Scheduler {
	opts.Intervals.Fetch = cronSpec(opts.Intervals.Fetch, "@every 15m")
	opts.Intervals.Scrape = cronSpec(opts.Intervals.Scrape, "@every 5m")
	opts.Intervals.Automate = cronSpec(opts.Intervals.Automate, "@every 10m")
	opts.Intervals.Cleanup = cronSpec(opts.Intervals.Cleanup, "@every 24h")
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 10 * time.Minute
	}
	if opts.ScrapeBatch <= 0 {
		opts.ScrapeBatch = 10
	}
	if opts.DrainBatch <= 0 {
		opts.DrainBatch = 10
	}
	if opts.CleanupDays <= 0 {
		opts.CleanupDays = 60
	}
	if opts.ExpireDays <= 0 {
		opts.ExpireDays = 30
	}
	if opts.RetryScrapes <= 0 {
		opts.RetryScrapes = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		fetcher:  fetcher,
		scraper:  scraper,
		pipeline: pipeline,
		opts:     opts,
		cron:     cron.New(),
		logger:   logger,
	}
}

// cronSpec accepts either a bare duration ("15m") or a full cron
// expression, normalizing durations to @every specs.
func cronSpec(s, fallback string) string {
	if s == "" {
		return fallback
	}
	if _, err := time.ParseDuration(s); err == nil {
		return "@every " + s
	}
	return s
}

// Run registers the jobs, fires an immediate fetch pass, and blocks
// until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	jobs := []struct {
		name string
		spec string
		fn   func(context.Context)
	}{
		{"fetch", s.opts.Intervals.Fetch, s.fetchJob},
		{"scrape", s.opts.Intervals.Scrape, s.scrapeJob},
		{"automate", s.opts.Intervals.Automate, s.automateJob},
		{"cleanup", s.opts.Intervals.Cleanup, s.cleanupJob},
	}

	for _, job := range jobs {
		job := job
		_, err := s.cron.AddFunc(job.spec, func() {
			jobCtx, cancel := context.WithTimeout(ctx, s.opts.JobTimeout)
			defer cancel()
			started := time.Now()
			job.fn(jobCtx)
			s.logger.Debug("job finished",
				zap.String("job", job.name),
				zap.Duration("took", time.Since(started)))
		})
		if err != nil {
			return fmt.Errorf("schedule %s job (%q): %w", job.name, job.spec, err)
		}
		s.logger.Info("job scheduled", zap.String("job", job.name), zap.String("spec", job.spec))
	}

	// Prime the pipeline instead of waiting a full interval.
	initCtx, cancel := context.WithTimeout(ctx, s.opts.JobTimeout)
	s.fetchJob(initCtx)
	cancel()

	s.cron.Start()
	<-ctx.Done()

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		s.logger.Warn("jobs still running at shutdown deadline")
	}
	return ctx.Err()
}

// The fetcher and scraper log their own pass summaries, so the jobs
// only report errors here.
func (s *Scheduler) fetchJob(ctx context.Context) {
	if _, err := s.fetcher.FetchAllActiveFeeds(ctx); err != nil {
		s.logger.Error("fetch job", zap.Error(err))
	}
}

func (s *Scheduler) scrapeJob(ctx context.Context) {
	if _, err := s.scraper.ProcessScrapeQueue(ctx, s.opts.ScrapeBatch); err != nil {
		s.logger.Error("scrape job", zap.Error(err))
		return
	}
	if _, err := s.scraper.RetryFailedScrapes(ctx, s.opts.RetryScrapes); err != nil {
		s.logger.Error("scrape retry reset", zap.Error(err))
	}
}

// automateJob drains approved items into the publication pipeline.
// Auto-approved items enter here; manual approvals via the API start
// immediately and are skipped by the has-entry check.
func (s *Scheduler) automateJob(ctx context.Context) {
	started, err := s.pipeline.ProcessApproved(ctx, s.opts.DrainBatch)
	if err != nil {
		s.logger.Error("automation drain", zap.Error(err))
		return
	}
	if started > 0 {
		s.logger.Info("automation runs started", zap.Int("count", started))
	}
}

func (s *Scheduler) cleanupJob(ctx context.Context) {
	expired, err := s.fetcher.ExpireOldArticles(ctx, s.opts.ExpireDays)
	if err != nil {
		s.logger.Error("expire old items", zap.Error(err))
	} else if expired > 0 {
		s.logger.Info("approved items expired", zap.Int64("count", expired))
	}

	deleted, err := s.fetcher.CleanupOldArticles(ctx, s.opts.CleanupDays)
	if err != nil {
		s.logger.Error("cleanup old items", zap.Error(err))
	} else if deleted > 0 {
		s.logger.Info("old items deleted", zap.Int64("count", deleted))
	}
}
