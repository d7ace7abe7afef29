package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Sentinel errors surfaced to callers.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyQueued     = errors.New("item already has an active pipeline entry")
	ErrInvalidTransition = errors.New("invalid pipeline transition")
)

// ItemListOpts controls ingested item listing.
type ItemListOpts struct {
	Status   ItemStatus
	SourceID int64
	Limit    int
	Offset   int
}

// QueueListOpts controls automation queue listing.
type QueueListOpts struct {
	Status AutomationStatus
	Limit  int
	Offset int
}

// Store is the persistence interface for the ingestion pipeline.
type Store interface {
	// Feed sources.
	CreateSource(ctx context.Context, s *FeedSource) error
	GetSource(ctx context.Context, id int64) (*FeedSource, error)
	ListSources(ctx context.Context, activeOnly bool) ([]FeedSource, error)
	MarkSourceFetched(ctx context.Context, id int64, at time.Time) error
	MarkSourceError(ctx context.Context, id int64, msg string, errorThreshold int) error

	// Ingested items.
	InsertItem(ctx context.Context, item *IngestedItem) error
	GetItem(ctx context.Context, id int64) (*IngestedItem, error)
	ItemExistsByGUID(ctx context.Context, guid string) (bool, error)
	ItemExistsByTitleHash(ctx context.Context, hash string, sourceID int64) (bool, error)
	ListItems(ctx context.Context, opts ItemListOpts) ([]IngestedItem, error)
	CountItemsByStatus(ctx context.Context) (map[ItemStatus]int, error)
	UpdateItemStatus(ctx context.Context, id int64, status ItemStatus) error
	IncrementVariantCount(ctx context.Context, id int64) error
	SaveScrapedContent(ctx context.Context, id int64, content string) error
	SaveScrapeError(ctx context.Context, id int64, msg string) error
	UpdateItemRewrite(ctx context.Context, id int64, title, excerpt string) error
	ScrapeQueue(ctx context.Context, limit int) ([]IngestedItem, error)
	ResetScrapeErrors(ctx context.Context, limit int) (int64, error)
	DeleteItemsOlderThan(ctx context.Context, before time.Time, statuses []ItemStatus) (int64, error)
	ExpireItemsOlderThan(ctx context.Context, before time.Time) (int64, error)

	// Automation queue.
	CreateAutomationEntry(ctx context.Context, itemID int64) (*AutomationEntry, error)
	ItemHasAutomationEntry(ctx context.Context, itemID int64) (bool, error)
	GetAutomationEntry(ctx context.Context, id int64) (*AutomationEntry, error)
	ListAutomation(ctx context.Context, opts QueueListOpts) ([]AutomationEntry, int, error)
	CountAutomationByStatus(ctx context.Context) (map[AutomationStatus]int, error)
	TransitionAutomation(ctx context.Context, id int64, from []AutomationStatus, to AutomationStatus, set map[string]any) error
	PublishArticle(ctx context.Context, entryID int64, article *Article) error
	RequeueSocial(ctx context.Context, id int64, errMsg string) error
	PendingSocial(ctx context.Context, now time.Time) ([]AutomationEntry, error)

	// Platform articles.
	GetArticle(ctx context.Context, id int64) (*Article, error)

	// Operator notifications.
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, unreadOnly bool, limit int) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- feed sources ---

func (s *SQLiteStore) CreateSource(ctx context.Context, src *FeedSource) error {
	if src.Status == "" {
		src.Status = SourceActive
	}
	if src.FetchInterval <= 0 {
		src.FetchInterval = 30
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_sources (name, feed_url, website_url, category, status, active, auto_approve, fetch_interval, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, src.Name, src.FeedURL, src.WebsiteURL, src.Category, src.Status,
		src.Active, src.AutoApprove, src.FetchInterval, src.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert source %s: %w", src.Name, err)
	}
	src.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) GetSource(ctx context.Context, id int64) (*FeedSource, error) {
	var src FeedSource
	err := s.db.GetContext(ctx, &src, "SELECT * FROM feed_sources WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get source %d: %w", id, err)
	}
	return &src, nil
}

func (s *SQLiteStore) ListSources(ctx context.Context, activeOnly bool) ([]FeedSource, error) {
	query := "SELECT * FROM feed_sources"
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY id"

	var sources []FeedSource
	if err := s.db.SelectContext(ctx, &sources, query); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return sources, nil
}

func (s *SQLiteStore) MarkSourceFetched(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE feed_sources
		SET last_fetched_at = ?, error_count = 0, last_error = NULL, status = ?
		WHERE id = ?
	`, at, SourceActive, id)
	if err != nil {
		return fmt.Errorf("mark source %d fetched: %w", id, err)
	}
	return nil
}

// MarkSourceError increments the consecutive error count and flips the
// source to error status once the operator-configured threshold is hit.
func (s *SQLiteStore) MarkSourceError(ctx context.Context, id int64, msg string, errorThreshold int) error {
	if errorThreshold <= 0 {
		errorThreshold = 5
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE feed_sources
		SET error_count = error_count + 1,
		    last_error = ?,
		    status = CASE WHEN error_count + 1 >= ? THEN ? ELSE status END
		WHERE id = ?
	`, msg, errorThreshold, SourceError, id)
	if err != nil {
		return fmt.Errorf("mark source %d error: %w", id, err)
	}
	return nil
}

// --- ingested items ---

func (s *SQLiteStore) InsertItem(ctx context.Context, item *IngestedItem) error {
	if item.FetchedAt.IsZero() {
		item.FetchedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO ingested_items
			(guid, title, title_hash, excerpt, source_url, image_url, published_at,
			 source_id, category, status, approved_at, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.GUID, item.Title, item.TitleHash, item.Excerpt, item.SourceURL,
		item.ImageURL, item.PublishedAt, item.SourceID, item.Category,
		item.Status, item.ApprovedAt, item.FetchedAt)
	if err != nil {
		return fmt.Errorf("insert item %s: %w", item.GUID, err)
	}
	item.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) GetItem(ctx context.Context, id int64) (*IngestedItem, error) {
	var item IngestedItem
	err := s.db.GetContext(ctx, &item, "SELECT * FROM ingested_items WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	return &item, nil
}

func (s *SQLiteStore) ItemExistsByGUID(ctx context.Context, guid string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM ingested_items WHERE guid = ?", guid)
	if err != nil {
		return false, fmt.Errorf("check guid %s: %w", guid, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) ItemExistsByTitleHash(ctx context.Context, hash string, sourceID int64) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM ingested_items WHERE title_hash = ? AND source_id = ?", hash, sourceID)
	if err != nil {
		return false, fmt.Errorf("check title hash: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListItems(ctx context.Context, opts ItemListOpts) ([]IngestedItem, error) {
	b := sq.Select("*").From("ingested_items")
	if opts.Status != "" {
		b = b.Where(sq.Eq{"status": opts.Status})
	}
	if opts.SourceID > 0 {
		b = b.Where(sq.Eq{"source_id": opts.SourceID})
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	b = b.OrderBy("fetched_at DESC").Limit(uint64(limit)).Offset(uint64(opts.Offset))

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build item query: %w", err)
	}

	var items []IngestedItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (s *SQLiteStore) CountItemsByStatus(ctx context.Context) (map[ItemStatus]int, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT status, COUNT(*) FROM ingested_items GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count items by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[ItemStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[ItemStatus(status)] = n
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) UpdateItemStatus(ctx context.Context, id int64, status ItemStatus) error {
	query := "UPDATE ingested_items SET status = ? WHERE id = ?"
	args := []any{status, id}
	if status == ItemApproved {
		query = "UPDATE ingested_items SET status = ?, approved_at = ? WHERE id = ?"
		args = []any{status, time.Now().UTC(), id}
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update item %d status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) IncrementVariantCount(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE ingested_items SET variant_count = variant_count + 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("increment variant count %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SaveScrapedContent(ctx context.Context, id int64, content string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE ingested_items
		SET content = ?, scraped = 1, scrape_error = NULL, scraped_at = ?
		WHERE id = ?
	`, content, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("save content %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) SaveScrapeError(ctx context.Context, id int64, msg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE ingested_items SET scrape_error = ?, scraped_at = ? WHERE id = ?
	`, msg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("save scrape error %d: %w", id, err)
	}
	return nil
}

// UpdateItemRewrite stores the AI-rewritten title and excerpt alongside
// the originals.
func (s *SQLiteStore) UpdateItemRewrite(ctx context.Context, id int64, title, excerpt string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE ingested_items SET rewritten_title = ?, rewritten_excerpt = ? WHERE id = ?
	`, title, excerpt, id)
	if err != nil {
		return fmt.Errorf("save rewrite %d: %w", id, err)
	}
	return nil
}

// ScrapeQueue returns not-yet-scraped, not-errored items, most recently
// fetched first.
func (s *SQLiteStore) ScrapeQueue(ctx context.Context, limit int) ([]IngestedItem, error) {
	if limit <= 0 {
		limit = 10
	}
	var items []IngestedItem
	err := s.db.SelectContext(ctx, &items, `
		SELECT * FROM ingested_items
		WHERE scraped = 0 AND scrape_error IS NULL AND source_url != ''
		ORDER BY fetched_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("scrape queue: %w", err)
	}
	return items, nil
}

// ResetScrapeErrors clears the error flag on the oldest failed items so
// they re-enter the scrape queue.
func (s *SQLiteStore) ResetScrapeErrors(ctx context.Context, limit int) (int64, error) {
	if limit <= 0 {
		limit = 10
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE ingested_items SET scrape_error = NULL
		WHERE id IN (
			SELECT id FROM ingested_items
			WHERE scraped = 0 AND scrape_error IS NOT NULL
			ORDER BY scraped_at ASC
			LIMIT ?
		)
	`, limit)
	if err != nil {
		return 0, fmt.Errorf("reset scrape errors: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) DeleteItemsOlderThan(ctx context.Context, before time.Time, statuses []ItemStatus) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	b := sq.Delete("ingested_items").
		Where(sq.Lt{"fetched_at": before}).
		Where(sq.Eq{"status": statuses})
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete old items: %w", err)
	}
	return res.RowsAffected()
}

// ExpireItemsOlderThan soft-transitions old approved items to expired,
// preserving the record of what was publish-eligible.
func (s *SQLiteStore) ExpireItemsOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ingested_items SET status = ? WHERE status = ? AND fetched_at < ?
	`, ItemExpired, ItemApproved, before)
	if err != nil {
		return 0, fmt.Errorf("expire old items: %w", err)
	}
	return res.RowsAffected()
}

// --- automation queue ---

func (s *SQLiteStore) CreateAutomationEntry(ctx context.Context, itemID int64) (*AutomationEntry, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO automation_queue (item_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, itemID, AutoPending, now, now)
	if isUniqueViolation(err) {
		return nil, ErrAlreadyQueued
	}
	if err != nil {
		return nil, fmt.Errorf("create queue entry for item %d: %w", itemID, err)
	}

	id, _ := res.LastInsertId()
	return &AutomationEntry{
		ID:        id,
		ItemID:    itemID,
		Status:    AutoPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ItemHasAutomationEntry reports whether any queue entry, active or
// terminal, exists for the item. Used to keep the drain job from
// re-queueing items whose pipeline already ran to completion.
func (s *SQLiteStore) ItemHasAutomationEntry(ctx context.Context, itemID int64) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM automation_queue WHERE item_id = ?", itemID)
	if err != nil {
		return false, fmt.Errorf("count queue entries for item %d: %w", itemID, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) GetAutomationEntry(ctx context.Context, id int64) (*AutomationEntry, error) {
	var e AutomationEntry
	err := s.db.GetContext(ctx, &e, "SELECT * FROM automation_queue WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get queue entry %d: %w", id, err)
	}
	return &e, nil
}

func (s *SQLiteStore) ListAutomation(ctx context.Context, opts QueueListOpts) ([]AutomationEntry, int, error) {
	where := sq.And{}
	if opts.Status != "" {
		where = append(where, sq.Eq{"status": opts.Status})
	}

	countQuery := sq.Select("COUNT(*)").From("automation_queue")
	listQuery := sq.Select("*").From("automation_queue")
	if len(where) > 0 {
		countQuery = countQuery.Where(where)
		listQuery = listQuery.Where(where)
	}

	query, args, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build queue count: %w", err)
	}
	var total int
	if err := s.db.GetContext(ctx, &total, query, args...); err != nil {
		return nil, 0, fmt.Errorf("count queue: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	query, args, err = listQuery.
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(opts.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build queue list: %w", err)
	}

	var entries []AutomationEntry
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list queue: %w", err)
	}
	return entries, total, nil
}

func (s *SQLiteStore) CountAutomationByStatus(ctx context.Context) (map[AutomationStatus]int, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT status, COUNT(*) FROM automation_queue GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count queue by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[AutomationStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[AutomationStatus(status)] = n
	}
	return counts, rows.Err()
}

// TransitionAutomation moves an entry from one of the allowed statuses to
// the target status, applying extra column updates in the same statement.
// The status guard in the WHERE clause makes the stage transition atomic:
// a concurrent transition loses and gets ErrInvalidTransition.
func (s *SQLiteStore) TransitionAutomation(ctx context.Context, id int64, from []AutomationStatus, to AutomationStatus, set map[string]any) error {
	b := sq.Update("automation_queue").
		Set("status", to).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id})
	if len(from) > 0 {
		b = b.Where(sq.Eq{"status": from})
	}
	for col, val := range set {
		b = b.Set(col, val)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build transition: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transition entry %d to %s: %w", id, to, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, getErr := s.GetAutomationEntry(ctx, id); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrInvalidTransition
	}
	return nil
}

// PublishArticle creates the platform article and moves the entry from
// publishing to published in one transaction, so the entry can never
// reference an article that was not stored, or vice versa.
func (s *SQLiteStore) PublishArticle(ctx context.Context, entryID int64, article *Article) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin publish tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO articles (title, slug, content, excerpt, category_id, author_id, status, image_url, read_time, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, article.Title, article.Slug, article.Content, article.Excerpt,
		article.CategoryID, article.AuthorID, article.Status,
		article.ImageURL, article.ReadTime, article.PublishedAt)
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	article.ID, _ = res.LastInsertId()

	res, err = tx.ExecContext(ctx, `
		UPDATE automation_queue
		SET status = ?, article_id = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, AutoPublished, article.ID, time.Now().UTC(), entryID, AutoPublishing)
	if err != nil {
		return fmt.Errorf("mark entry %d published: %w", entryID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidTransition
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit publish tx: %w", err)
	}
	return nil
}

// RequeueSocial puts a social-stage entry back to social_pending with an
// incremented retry count.
func (s *SQLiteStore) RequeueSocial(ctx context.Context, id int64, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE automation_queue
		SET status = ?, retry_count = retry_count + 1, error_message = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`, AutoSocialPending, errMsg, time.Now().UTC(), id, AutoSocialPending, AutoSocialPosting)
	if err != nil {
		return fmt.Errorf("requeue entry %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// PendingSocial returns social_pending entries whose scheduled time has
// arrived.
func (s *SQLiteStore) PendingSocial(ctx context.Context, now time.Time) ([]AutomationEntry, error) {
	var entries []AutomationEntry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT * FROM automation_queue
		WHERE status = ? AND social_scheduled_at IS NOT NULL AND social_scheduled_at <= ?
		ORDER BY social_scheduled_at ASC
	`, AutoSocialPending, now)
	if err != nil {
		return nil, fmt.Errorf("pending social: %w", err)
	}
	return entries, nil
}

// --- platform articles ---

func (s *SQLiteStore) GetArticle(ctx context.Context, id int64) (*Article, error) {
	var a Article
	err := s.db.GetContext(ctx, &a, "SELECT * FROM articles WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article %d: %w", id, err)
	}
	return &a, nil
}

// --- notifications ---

func (s *SQLiteStore) CreateNotification(ctx context.Context, n *Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.DataJSON == "" {
		n.DataJSON = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, type, title, message, data, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.Type, n.Title, n.Message, n.DataJSON, n.Read, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListNotifications(ctx context.Context, unreadOnly bool, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := "SELECT * FROM notifications"
	if unreadOnly {
		query += " WHERE read = 0"
	}
	query += " ORDER BY created_at DESC LIMIT ?"

	var out []Notification
	if err := s.db.SelectContext(ctx, &out, query, limit); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE notifications SET read = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
