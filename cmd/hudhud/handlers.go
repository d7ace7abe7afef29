package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/hudhud-news/hudhud/internal/config"
	"github.com/hudhud-news/hudhud/internal/logging"
	"github.com/hudhud-news/hudhud/internal/scheduler"
	"github.com/hudhud-news/hudhud/internal/store"
	"github.com/hudhud-news/hudhud/pkg/automation"
	"github.com/hudhud-news/hudhud/pkg/classify"
	"github.com/hudhud-news/hudhud/pkg/feed"
	"github.com/hudhud-news/hudhud/pkg/filter"
	"github.com/hudhud-news/hudhud/pkg/notify"
	"github.com/hudhud-news/hudhud/pkg/rewrite"
	"github.com/hudhud-news/hudhud/pkg/scrape"
	"github.com/hudhud-news/hudhud/pkg/server"
)

// app holds the wired pipeline components shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *store.SQLiteStore
	engine   *filter.Engine
	fetcher  *feed.Fetcher
	scraper  *scrape.Scraper
	pipeline *automation.Pipeline
}

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	engine, err := filter.NewEngine(filter.Config{
		Keywords:            cfg.Filter.Keywords,
		AcceptThreshold:     cfg.Filter.AcceptThreshold,
		FlagThreshold:       cfg.Filter.FlagThreshold,
		TierAdjustment:      cfg.Filter.TierAdjustment,
		SourceTiers:         cfg.Filter.SourceTiers,
		StalenessWindow:     cfg.Filter.ParseStalenessWindow(),
		FingerprintCapacity: cfg.Filter.FingerprintCapacity,
		SimilarityThreshold: cfg.Filter.SimilarityThreshold,
		BurstLimit:          cfg.Filter.BurstLimit,
		BurstWindow:         cfg.Filter.ParseBurstWindow(),
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build filter engine: %w", err)
	}

	classifier := classify.New(
		cfg.Classifier.Categories,
		cfg.Classifier.MixedCategories,
		cfg.Classifier.MinConfidence,
		cfg.Classifier.TitleWeight,
		cfg.Classifier.ExcerptWeight,
	)

	fetcher := feed.New(db, engine, classifier, feed.Options{
		Timeout:          cfg.Fetcher.ParseTimeout(),
		InterSourceDelay: cfg.Fetcher.ParseInterSourceDelay(),
		ExcerptMaxLen:    cfg.Fetcher.ExcerptMaxLen,
		ErrorThreshold:   cfg.Fetcher.ErrorThreshold,
	}, logger)

	scraper := scrape.New(db, scrape.Options{
		Timeout:          cfg.Scraper.ParseTimeout(),
		MaxRetries:       cfg.Scraper.MaxRetries,
		RetryBackoff:     cfg.Scraper.ParseRetryBackoff(),
		RequestDelay:     cfg.Scraper.ParseRequestDelay(),
		MinContentLength: cfg.Scraper.MinContentLength,
		UserAgents:       cfg.Scraper.UserAgents,
	}, logger)

	var rewriter *rewrite.Client
	if cfg.Rewrite.Enabled {
		rewriter = rewrite.New(cfg.Rewrite.BaseURL, cfg.Rewrite.Model, cfg.Rewrite.ParseTimeout(), logger)
	}

	var announcer *notify.Webhook
	if cfg.Publish.Enabled && cfg.Publish.URL != "" {
		announcer = notify.NewWebhook(cfg.Publish.URL, cfg.Publish.Secret)
	}

	pipeline := automation.New(db, rewriter, announcer, buildAlertManager(cfg), automation.Options{
		MaxRetries:      cfg.Automation.MaxRetries,
		SocialDelay:     cfg.Automation.ParseSocialDelay(),
		DefaultCategory: cfg.Automation.DefaultCategory,
		AuthorID:        cfg.Automation.AuthorID,
		CategoryIDs:     cfg.Automation.CategoryIDs,
		FallbackImages:  cfg.Automation.FallbackImages,
		SiteBaseURL:     cfg.Automation.SiteBaseURL,
	}, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    db,
		engine:   engine,
		fetcher:  fetcher,
		scraper:  scraper,
		pipeline: pipeline,
	}, nil
}

func (a *app) close() {
	a.store.Close()
	a.logger.Sync()
}

func buildAlertManager(cfg *config.Config) *notify.Manager {
	var notifiers []notify.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}

	return notify.NewManager(notifiers)
}

func runFetch(sourceID int64) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()

	if sourceID > 0 {
		result, err := a.fetcher.FetchFeed(ctx, sourceID)
		if err != nil {
			return fmt.Errorf("fetch source %d: %w", sourceID, err)
		}
		fmt.Printf("source %d: %d new, %d merged, %d skipped\n",
			result.SourceID, result.NewArticles, result.Merged, result.Skipped)
		return nil
	}

	result, err := a.fetcher.FetchAllActiveFeeds(ctx)
	if err != nil {
		return fmt.Errorf("fetch feeds: %w", err)
	}
	fmt.Printf("%d sources (%d ok, %d failed), %d new articles\n",
		result.Sources, result.Succeeded, result.Failed, result.NewArticles)
	return nil
}

func runScrape(batch int) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.scraper.ProcessScrapeQueue(context.Background(), batch)
	if err != nil {
		return fmt.Errorf("scrape queue: %w", err)
	}
	fmt.Printf("scraped %d items, %d successful\n", result.Processed, result.Successful)
	return nil
}

func runAutomate(itemID int64, limit int) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()

	if itemID > 0 {
		entry, err := a.pipeline.Start(ctx, itemID)
		if err != nil {
			return fmt.Errorf("automate item %d: %w", itemID, err)
		}
		fmt.Printf("queue entry %d finished with status %s\n", entry.ID, entry.Status)
		if entry.ErrorMessage != nil {
			fmt.Printf("error: %s\n", *entry.ErrorMessage)
		}
		return nil
	}

	started, err := a.pipeline.ProcessApproved(ctx, limit)
	if err != nil {
		return fmt.Errorf("process approved items: %w", err)
	}
	fmt.Printf("started %d automation runs\n", started)
	return nil
}

func runItems(jsonOutput bool, status string, limit int) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	items, err := a.store.ListItems(context.Background(), store.ItemListOpts{
		Status: store.ItemStatus(status),
		Limit:  limit,
	})
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	if len(items) == 0 {
		fmt.Println("no items found (try fetching first: hudhud fetch)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSOURCE\tPUBLISHED\tTITLE")
	for _, item := range items {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
			item.ID, item.Status, item.SourceID,
			item.PublishedAt.Format(time.RFC3339), item.Title)
	}
	return w.Flush()
}

func runCleanup() error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()

	expired, err := a.fetcher.ExpireOldArticles(ctx, a.cfg.Fetcher.ExpireDays)
	if err != nil {
		return fmt.Errorf("expire items: %w", err)
	}
	deleted, err := a.fetcher.CleanupOldArticles(ctx, a.cfg.Fetcher.CleanupDays)
	if err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	fmt.Printf("expired %d items, deleted %d items\n", expired, deleted)
	return nil
}

func runServe(port int) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	if port == 0 {
		port = a.cfg.Server.Port
	}

	srv := server.New(a.store, a.engine, a.fetcher, a.scraper, a.pipeline, port, a.logger)
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	if port == 0 {
		port = a.cfg.Server.Port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(a.fetcher, a.scraper, a.pipeline, scheduler.Options{
		Intervals: scheduler.Intervals{
			Fetch:    a.cfg.Schedule.FetchInterval,
			Scrape:   a.cfg.Schedule.ScrapeInterval,
			Automate: a.cfg.Schedule.AutomateInterval,
			Cleanup:  a.cfg.Schedule.CleanupInterval,
		},
		JobTimeout:  a.cfg.Schedule.ParseJobTimeout(),
		CleanupDays: a.cfg.Fetcher.CleanupDays,
		ExpireDays:  a.cfg.Fetcher.ExpireDays,
	}, a.logger)

	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("scheduler stopped", zap.Error(err))
		}
	}()

	srv := server.New(a.store, a.engine, a.fetcher, a.scraper, a.pipeline, port, a.logger)
	httpSrv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: srv.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	a.logger.Info("daemon started", zap.Int("port", port))
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
