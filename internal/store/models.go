package store

import "time"

// SourceStatus is a feed source's operational state.
type SourceStatus string

const (
	SourceActive SourceStatus = "active"
	SourceError  SourceStatus = "error"
)

// FeedSource is a subscribed RSS/Atom feed.
type FeedSource struct {
	ID            int64        `db:"id" json:"id"`
	Name          string       `db:"name" json:"name"`
	FeedURL       string       `db:"feed_url" json:"feed_url"`
	WebsiteURL    string       `db:"website_url" json:"website_url"`
	Category      string       `db:"category" json:"category"`
	Status        SourceStatus `db:"status" json:"status"`
	Active        bool         `db:"active" json:"active"`
	AutoApprove   bool         `db:"auto_approve" json:"auto_approve"`
	FetchInterval int          `db:"fetch_interval" json:"fetch_interval"` // minutes
	LastFetchedAt *time.Time   `db:"last_fetched_at" json:"last_fetched_at,omitempty"`
	ErrorCount    int          `db:"error_count" json:"error_count"`
	LastError     *string      `db:"last_error" json:"last_error,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}

// ItemStatus is an ingested item's moderation state.
type ItemStatus string

const (
	ItemPending  ItemStatus = "pending"
	ItemApproved ItemStatus = "approved"
	ItemRejected ItemStatus = "rejected"
	ItemExpired  ItemStatus = "expired"
)

// IngestedItem is one normalized entry pulled from a feed.
type IngestedItem struct {
	ID               int64      `db:"id" json:"id"`
	GUID             string     `db:"guid" json:"guid"`
	Title            string     `db:"title" json:"title"`
	TitleHash        string     `db:"title_hash" json:"-"`
	Excerpt          string     `db:"excerpt" json:"excerpt"`
	SourceURL        string     `db:"source_url" json:"source_url"`
	ImageURL         *string    `db:"image_url" json:"image_url,omitempty"`
	PublishedAt      time.Time  `db:"published_at" json:"published_at"`
	SourceID         int64      `db:"source_id" json:"source_id"`
	Category         *string    `db:"category" json:"category,omitempty"`
	Status           ItemStatus `db:"status" json:"status"`
	ApprovedAt       *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	Content          *string    `db:"content" json:"content,omitempty"`
	Scraped          bool       `db:"scraped" json:"scraped"`
	ScrapeError      *string    `db:"scrape_error" json:"scrape_error,omitempty"`
	ScrapedAt        *time.Time `db:"scraped_at" json:"scraped_at,omitempty"`
	RewrittenTitle   *string    `db:"rewritten_title" json:"rewritten_title,omitempty"`
	RewrittenExcerpt *string    `db:"rewritten_excerpt" json:"rewritten_excerpt,omitempty"`
	VariantCount     int        `db:"variant_count" json:"variant_count"`
	FetchedAt        time.Time  `db:"fetched_at" json:"fetched_at"`
}

// AutomationStatus is a pipeline entry's state. States are strictly
// ordered; backward motion happens only through explicit retry.
type AutomationStatus string

const (
	AutoPending       AutomationStatus = "pending"
	AutoAIProcessing  AutomationStatus = "ai_processing"
	AutoAICompleted   AutomationStatus = "ai_completed"
	AutoPublishing    AutomationStatus = "publishing"
	AutoPublished     AutomationStatus = "published"
	AutoSocialPending AutomationStatus = "social_pending"
	AutoSocialPosting AutomationStatus = "social_posting"
	AutoCompleted     AutomationStatus = "completed"
	AutoFailed        AutomationStatus = "failed"
)

// Terminal reports whether the status ends the pipeline.
func (s AutomationStatus) Terminal() bool {
	return s == AutoCompleted || s == AutoFailed
}

// AutomationEntry tracks one ingested item moving through the
// rewrite -> publish -> social pipeline.
type AutomationEntry struct {
	ID              int64            `db:"id" json:"id"`
	ItemID          int64            `db:"item_id" json:"item_id"`
	Status          AutomationStatus `db:"status" json:"status"`
	RewrittenTitle  *string          `db:"rewritten_title" json:"rewritten_title,omitempty"`
	ArticleID       *int64           `db:"article_id" json:"article_id,omitempty"`
	SocialScheduled *time.Time       `db:"social_scheduled_at" json:"social_scheduled_at,omitempty"`
	SocialPostID    *string          `db:"social_post_id" json:"social_post_id,omitempty"`
	ErrorMessage    *string          `db:"error_message" json:"error_message,omitempty"`
	RetryCount      int              `db:"retry_count" json:"retry_count"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// Article is the platform article record created when a pipeline entry
// publishes. The CMS proper owns this entity; the pipeline only creates
// and reads it.
type Article struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Slug        string    `db:"slug" json:"slug"`
	Content     string    `db:"content" json:"content"`
	Excerpt     string    `db:"excerpt" json:"excerpt"`
	CategoryID  int64     `db:"category_id" json:"category_id"`
	AuthorID    int64     `db:"author_id" json:"author_id"`
	Status      string    `db:"status" json:"status"`
	ImageURL    *string   `db:"image_url" json:"image_url,omitempty"`
	ReadTime    int       `db:"read_time" json:"read_time"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
}

// Notification is an operator-facing system event.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	Type      string    `db:"type" json:"type"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	DataJSON  string    `db:"data" json:"-"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
