// Package automation drives approved items through the publication
// pipeline: AI rewrite, platform article creation, and handoff to the
// social-distribution integration. Each entry moves through a strict
// status sequence; a stage transition is a single guarded UPDATE, so a
// crashed or concurrent run can never double-execute a stage.
package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hudhud-news/hudhud/internal/store"
	"github.com/hudhud-news/hudhud/pkg/notify"
	"github.com/hudhud-news/hudhud/pkg/rewrite"
)

// ErrNotApproved is returned by Start for items outside the approved
// state.
var ErrNotApproved = errors.New("item is not approved")

// ErrNotFailed is returned by Retry for entries that are not in the
// failed state.
var ErrNotFailed = errors.New("entry is not in failed state")

const wordsPerMinute = 200

// Options tunes the pipeline.
type Options struct {
	MaxRetries      int
	SocialDelay     time.Duration
	DefaultCategory string
	AuthorID        int64
	CategoryIDs     map[string]int64  // slug -> platform category id
	FallbackImages  map[string]string // slug -> image URL
	SiteBaseURL     string
}

// SocialPost is a published article awaiting social distribution.
type SocialPost struct {
	QueueID     int64     `json:"queue_id"`
	ArticleID   int64     `json:"article_id"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Pipeline runs the automation state machine. The rewriter and
// announcer are optional: a nil rewriter publishes original text, a
// nil announcer skips the publish announcement.
type Pipeline struct {
	store     store.Store
	rewriter  *rewrite.Client
	announcer *notify.Webhook
	alerts    *notify.Manager
	opts      Options
	logger    *zap.Logger
}

// New creates a pipeline.
func New(st store.Store, rewriter *rewrite.Client, announcer *notify.Webhook, alerts *notify.Manager, opts Options, logger *zap.Logger) *Pipeline {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.SocialDelay <= 0 {
		opts.SocialDelay = 5 * time.Minute
	}
	if opts.DefaultCategory == "" {
		opts.DefaultCategory = "local"
	}
	if opts.AuthorID == 0 {
		opts.AuthorID = 1
	}
	if alerts == nil {
		alerts = notify.NewManager(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:     st,
		rewriter:  rewriter,
		announcer: announcer,
		alerts:    alerts,
		opts:      opts,
		logger:    logger,
	}
}

// Start queues an approved item and runs it through the pipeline up to
// the social handoff. Returns the entry in its final state. An item
// that already has an active entry yields store.ErrAlreadyQueued.
func (p *Pipeline) Start(ctx context.Context, itemID int64) (*store.AutomationEntry, error) {
	item, err := p.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != store.ItemApproved {
		return nil, fmt.Errorf("item %d has status %s: %w", itemID, item.Status, ErrNotApproved)
	}

	entry, err := p.store.CreateAutomationEntry(ctx, itemID)
	if err != nil {
		return nil, err
	}

	p.logger.Info("automation started",
		zap.Int64("queue_id", entry.ID),
		zap.Int64("item_id", itemID),
		zap.String("title", item.Title))

	p.run(ctx, entry.ID, item)
	return p.store.GetAutomationEntry(ctx, entry.ID)
}

// run executes the stages in order, stopping at the first hard
// failure. Stage errors mark the entry failed; they are not returned
// because the failure is recorded on the entry itself.
func (p *Pipeline) run(ctx context.Context, entryID int64, item *store.IngestedItem) {
	if err := p.rewriteStage(ctx, entryID, item); err != nil {
		p.fail(ctx, entryID, item, "ai_rewrite", err)
		return
	}
	if err := p.publishStage(ctx, entryID, item); err != nil {
		p.fail(ctx, entryID, item, "publish", err)
		return
	}
	if err := p.socialStage(ctx, entryID); err != nil {
		p.fail(ctx, entryID, item, "social_queue", err)
	}
}

// rewriteStage asks the AI service for a journalistic rewrite. A
// rewrite failure is not fatal: the pipeline degrades to publishing
// the original text.
func (p *Pipeline) rewriteStage(ctx context.Context, entryID int64, item *store.IngestedItem) error {
	if err := p.store.TransitionAutomation(ctx, entryID,
		[]store.AutomationStatus{store.AutoPending}, store.AutoAIProcessing, nil); err != nil {
		return fmt.Errorf("enter ai stage: %w", err)
	}

	var title, excerpt, content string
	if p.rewriter != nil {
		if item.Content != nil && *item.Content != "" {
			category := p.opts.DefaultCategory
			if item.Category != nil {
				category = *item.Category
			}
			if a := p.rewriter.RewriteArticle(ctx, item.Title, *item.Content, category); a != nil {
				title, excerpt, content = a.Title, a.Excerpt, a.Content
			}
		} else {
			if h := p.rewriter.RewriteHeadline(ctx, item.Title, item.Excerpt); h != nil {
				title, excerpt = h.Title, h.Excerpt
			}
		}
	}

	set := map[string]any{"rewritten_title": nil}
	if title != "" {
		set["rewritten_title"] = title
		if err := p.store.UpdateItemRewrite(ctx, item.ID, title, excerpt); err != nil {
			return err
		}
		item.RewrittenTitle = &title
		if excerpt != "" {
			item.RewrittenExcerpt = &excerpt
		}
		if content != "" {
			item.Content = &content
		}
	} else {
		p.logger.Warn("rewrite unavailable, publishing original text",
			zap.Int64("queue_id", entryID), zap.Int64("item_id", item.ID))
	}

	if err := p.store.TransitionAutomation(ctx, entryID,
		[]store.AutomationStatus{store.AutoAIProcessing}, store.AutoAICompleted, set); err != nil {
		return fmt.Errorf("complete ai stage: %w", err)
	}
	return nil
}

// publishStage creates the platform article inside one transaction and
// fires the publish announcement without blocking the pipeline.
func (p *Pipeline) publishStage(ctx context.Context, entryID int64, item *store.IngestedItem) error {
	if err := p.store.TransitionAutomation(ctx, entryID,
		[]store.AutomationStatus{store.AutoAICompleted}, store.AutoPublishing, nil); err != nil {
		return fmt.Errorf("enter publish stage: %w", err)
	}

	source, err := p.store.GetSource(ctx, item.SourceID)
	if err != nil {
		return fmt.Errorf("load source %d: %w", item.SourceID, err)
	}

	article, categorySlug := p.buildArticle(item, source)
	if err := p.store.PublishArticle(ctx, entryID, article); err != nil {
		return fmt.Errorf("publish article: %w", err)
	}

	p.logger.Info("article published",
		zap.Int64("queue_id", entryID),
		zap.Int64("article_id", article.ID),
		zap.String("slug", article.Slug))

	p.announce(article, categorySlug)
	return nil
}

// socialStage schedules the entry for social distribution after the
// configured delay.
func (p *Pipeline) socialStage(ctx context.Context, entryID int64) error {
	scheduledAt := time.Now().UTC().Add(p.opts.SocialDelay)
	if err := p.store.TransitionAutomation(ctx, entryID,
		[]store.AutomationStatus{store.AutoPublished}, store.AutoSocialPending,
		map[string]any{"social_scheduled_at": scheduledAt}); err != nil {
		return fmt.Errorf("queue for social: %w", err)
	}
	return nil
}

// buildArticle assembles the platform article from the rewritten text
// where available, falling back to the original feed text.
func (p *Pipeline) buildArticle(item *store.IngestedItem, source *store.FeedSource) (*store.Article, string) {
	title := item.Title
	if item.RewrittenTitle != nil && *item.RewrittenTitle != "" {
		title = *item.RewrittenTitle
	}

	excerpt := item.Excerpt
	if item.RewrittenExcerpt != nil && *item.RewrittenExcerpt != "" {
		excerpt = *item.RewrittenExcerpt
	}

	content := item.Excerpt
	if item.Content != nil && *item.Content != "" {
		content = *item.Content
	}
	content += "\n\n" + attribution(source.Name, item.SourceURL)

	slug := p.categorySlug(item, source)
	categoryID, ok := p.opts.CategoryIDs[slug]
	if !ok {
		categoryID = p.opts.CategoryIDs[p.opts.DefaultCategory]
	}
	if categoryID == 0 {
		categoryID = 1
	}

	var imageURL *string
	if item.ImageURL != nil && *item.ImageURL != "" {
		imageURL = item.ImageURL
	} else if fallback, ok := p.opts.FallbackImages[slug]; ok && fallback != "" {
		imageURL = &fallback
	}

	return &store.Article{
		Title:       title,
		Slug:        slugify(title, item.ID),
		Content:     content,
		Excerpt:     excerpt,
		CategoryID:  categoryID,
		AuthorID:    p.opts.AuthorID,
		Status:      "published",
		ImageURL:    imageURL,
		ReadTime:    readTime(content),
		PublishedAt: time.Now().UTC(),
	}, slug
}

// categorySlug resolves the article category: classifier verdict
// first, then the source's fixed category, then the default.
func (p *Pipeline) categorySlug(item *store.IngestedItem, source *store.FeedSource) string {
	if item.Category != nil && *item.Category != "" {
		return *item.Category
	}
	if source.Category != "" && source.Category != "mixed" {
		return source.Category
	}
	return p.opts.DefaultCategory
}

// announce pushes the publish announcement in the background. Delivery
// failure is logged and never affects the pipeline.
func (p *Pipeline) announce(article *store.Article, categorySlug string) {
	if p.announcer == nil {
		return
	}
	a := &notify.Announcement{
		ArticleID:   article.ID,
		Title:       article.Title,
		Slug:        article.Slug,
		Excerpt:     article.Excerpt,
		Content:     article.Content,
		Category:    categorySlug,
		PublishedAt: article.PublishedAt,
		URL:         p.articleURL(article.Slug),
	}
	if article.ImageURL != nil {
		a.ImageURL = *article.ImageURL
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := p.announcer.Announce(ctx, a); err != nil {
			p.logger.Warn("publish announcement failed",
				zap.Int64("article_id", a.ArticleID), zap.Error(err))
		}
	}()
}

func (p *Pipeline) articleURL(slug string) string {
	base := strings.TrimSuffix(p.opts.SiteBaseURL, "/")
	if base == "" {
		return "/articles/" + slug
	}
	return base + "/articles/" + slug
}

// fail moves the entry to failed, records an operator notification,
// and broadcasts an alert.
func (p *Pipeline) fail(ctx context.Context, entryID int64, item *store.IngestedItem, stage string, cause error) {
	p.logger.Error("automation stage failed",
		zap.Int64("queue_id", entryID),
		zap.String("stage", stage),
		zap.Error(cause))

	nonTerminal := []store.AutomationStatus{
		store.AutoPending, store.AutoAIProcessing, store.AutoAICompleted,
		store.AutoPublishing, store.AutoPublished,
		store.AutoSocialPending, store.AutoSocialPosting,
	}
	if err := p.store.TransitionAutomation(ctx, entryID, nonTerminal, store.AutoFailed,
		map[string]any{"error_message": fmt.Sprintf("%s: %v", stage, cause)}); err != nil {
		p.logger.Error("mark entry failed", zap.Int64("queue_id", entryID), zap.Error(err))
		return
	}

	p.notifyFailure(ctx, entryID, item, stage, cause)
}

func (p *Pipeline) notifyFailure(ctx context.Context, entryID int64, item *store.IngestedItem, stage string, cause error) {
	data, _ := json.Marshal(map[string]any{
		"queue_id": entryID,
		"item_id":  item.ID,
		"stage":    stage,
		"error":    cause.Error(),
	})
	n := &store.Notification{
		ID:        uuid.NewString(),
		Type:      "automation_failed",
		Title:     "فشل النشر التلقائي",
		Message:   fmt.Sprintf("توقفت معالجة «%s» في مرحلة %s", item.Title, stage),
		DataJSON:  string(data),
		CreatedAt: time.Now().UTC(),
	}
	if err := p.store.CreateNotification(ctx, n); err != nil {
		p.logger.Error("create failure notification", zap.Error(err))
	}

	if !p.alerts.HasNotifiers() {
		return
	}
	alert := &notify.Alert{
		Title: "Automation pipeline failure",
		Body:  item.Title,
		Fields: map[string]string{
			"Stage": stage,
			"Error": cause.Error(),
			"Queue": fmt.Sprintf("#%d", entryID),
		},
		ItemURL: item.SourceURL,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := p.alerts.Broadcast(ctx, alert); err != nil {
			p.logger.Warn("operator alert delivery", zap.Error(err))
		}
	}()
}

// PendingSocialPosts returns social_pending entries whose scheduled
// time has passed, joined with their published articles.
func (p *Pipeline) PendingSocialPosts(ctx context.Context) ([]SocialPost, error) {
	entries, err := p.store.PendingSocial(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	posts := make([]SocialPost, 0, len(entries))
	for _, e := range entries {
		if e.ArticleID == nil {
			continue
		}
		article, err := p.store.GetArticle(ctx, *e.ArticleID)
		if err != nil {
			p.logger.Warn("load article for social post",
				zap.Int64("queue_id", e.ID), zap.Error(err))
			continue
		}
		post := SocialPost{
			QueueID:   e.ID,
			ArticleID: article.ID,
			Title:     article.Title,
			Excerpt:   article.Excerpt,
			URL:       p.articleURL(article.Slug),
		}
		if article.ImageURL != nil {
			post.ImageURL = *article.ImageURL
		}
		if e.SocialScheduled != nil {
			post.ScheduledAt = *e.SocialScheduled
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// MarkSocialPosted completes an entry after the social integration
// confirms delivery. Re-confirming an already completed entry is a
// no-op, so delivery callbacks may be retried safely.
func (p *Pipeline) MarkSocialPosted(ctx context.Context, entryID int64, postID string) error {
	err := p.store.TransitionAutomation(ctx, entryID,
		[]store.AutomationStatus{store.AutoSocialPending, store.AutoSocialPosting},
		store.AutoCompleted,
		map[string]any{"social_post_id": postID, "error_message": nil})
	if errors.Is(err, store.ErrInvalidTransition) {
		entry, getErr := p.store.GetAutomationEntry(ctx, entryID)
		if getErr == nil && entry.Status == store.AutoCompleted {
			return nil
		}
	}
	return err
}

// MarkSocialFailed records a failed social delivery. Within the retry
// budget the entry is put back in the social queue; once the budget is
// exhausted the entry fails and operators are notified.
func (p *Pipeline) MarkSocialFailed(ctx context.Context, entryID int64, reason string) error {
	entry, err := p.store.GetAutomationEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.Status.Terminal() {
		return fmt.Errorf("entry %d already %s: %w", entryID, entry.Status, store.ErrInvalidTransition)
	}

	if entry.RetryCount < p.opts.MaxRetries {
		p.logger.Warn("social post failed, requeueing",
			zap.Int64("queue_id", entryID),
			zap.Int("retry", entry.RetryCount+1),
			zap.String("reason", reason))
		return p.store.RequeueSocial(ctx, entryID, reason)
	}

	item, err := p.store.GetItem(ctx, entry.ItemID)
	if err != nil {
		return err
	}
	p.fail(ctx, entryID, item, "social_post", fmt.Errorf("retries exhausted: %s", reason))
	return nil
}

// Retry resets a failed entry back into the pipeline. Entries that
// never published restart from the beginning; published entries only
// redo the social handoff.
func (p *Pipeline) Retry(ctx context.Context, entryID int64) (*store.AutomationEntry, error) {
	entry, err := p.store.GetAutomationEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != store.AutoFailed {
		return nil, fmt.Errorf("entry %d has status %s: %w", entryID, entry.Status, ErrNotFailed)
	}

	reset := map[string]any{"error_message": nil, "retry_count": 0}
	if entry.ArticleID != nil {
		reset["social_scheduled_at"] = time.Now().UTC().Add(p.opts.SocialDelay)
		if err := p.store.TransitionAutomation(ctx, entryID,
			[]store.AutomationStatus{store.AutoFailed}, store.AutoSocialPending, reset); err != nil {
			return nil, err
		}
		return p.store.GetAutomationEntry(ctx, entryID)
	}

	if err := p.store.TransitionAutomation(ctx, entryID,
		[]store.AutomationStatus{store.AutoFailed}, store.AutoPending, reset); err != nil {
		return nil, err
	}

	item, err := p.store.GetItem(ctx, entry.ItemID)
	if err != nil {
		return nil, err
	}
	p.run(ctx, entryID, item)
	return p.store.GetAutomationEntry(ctx, entryID)
}

// Queue lists automation entries with the total matching count.
func (p *Pipeline) Queue(ctx context.Context, opts store.QueueListOpts) ([]store.AutomationEntry, int, error) {
	return p.store.ListAutomation(ctx, opts)
}

// ProcessApproved queues approved items that have never entered the
// pipeline. Run periodically, it picks up both auto-approved items and
// manual approvals made outside this process.
func (p *Pipeline) ProcessApproved(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 10
	}
	items, err := p.store.ListItems(ctx, store.ItemListOpts{Status: store.ItemApproved, Limit: limit})
	if err != nil {
		return 0, err
	}

	started := 0
	for i := range items {
		queued, err := p.store.ItemHasAutomationEntry(ctx, items[i].ID)
		if err != nil {
			return started, err
		}
		if queued {
			continue
		}
		if _, err := p.Start(ctx, items[i].ID); err != nil {
			if errors.Is(err, store.ErrAlreadyQueued) {
				continue
			}
			p.logger.Error("start automation for approved item",
				zap.Int64("item_id", items[i].ID), zap.Error(err))
			continue
		}
		started++
	}
	return started, nil
}

// attribution is the source credit appended to every published
// article.
func attribution(sourceName, sourceURL string) string {
	if sourceURL == "" {
		return "المصدر: " + sourceName
	}
	return fmt.Sprintf("المصدر: %s — %s", sourceName, sourceURL)
}

// slugify builds a URL slug from the title, keeping Arabic letters,
// and appends the item id to guarantee uniqueness.
func slugify(title string, itemID int64) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len([]rune(slug)) > 80 {
		slug = strings.Trim(string([]rune(slug)[:80]), "-")
	}
	if slug == "" {
		return fmt.Sprintf("article-%d", itemID)
	}
	return fmt.Sprintf("%s-%d", slug, itemID)
}

// readTime estimates reading minutes at a standard pace, never below
// one minute.
func readTime(content string) int {
	words := len(strings.Fields(content))
	minutes := words / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}
