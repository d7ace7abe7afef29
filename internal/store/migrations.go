package store

const schema = `
CREATE TABLE IF NOT EXISTS feed_sources (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    name            TEXT NOT NULL,
    feed_url        TEXT NOT NULL UNIQUE,
    website_url     TEXT NOT NULL DEFAULT '',
    category        TEXT NOT NULL DEFAULT 'mixed',
    status          TEXT NOT NULL DEFAULT 'active',
    active          BOOLEAN NOT NULL DEFAULT 1,
    auto_approve    BOOLEAN NOT NULL DEFAULT 0,
    fetch_interval  INTEGER NOT NULL DEFAULT 30,
    last_fetched_at DATETIME,
    error_count     INTEGER NOT NULL DEFAULT 0,
    last_error      TEXT,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ingested_items (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    guid              TEXT NOT NULL UNIQUE,
    title             TEXT NOT NULL,
    title_hash        TEXT NOT NULL,
    excerpt           TEXT NOT NULL DEFAULT '',
    source_url        TEXT NOT NULL DEFAULT '',
    image_url         TEXT,
    published_at      DATETIME NOT NULL,
    source_id         INTEGER NOT NULL REFERENCES feed_sources(id),
    category          TEXT,
    status            TEXT NOT NULL DEFAULT 'pending',
    approved_at       DATETIME,
    content           TEXT,
    scraped           BOOLEAN NOT NULL DEFAULT 0,
    scrape_error      TEXT,
    scraped_at        DATETIME,
    rewritten_title   TEXT,
    rewritten_excerpt TEXT,
    variant_count     INTEGER NOT NULL DEFAULT 0,
    fetched_at        DATETIME NOT NULL,
    UNIQUE(title_hash, source_id)
);

CREATE INDEX IF NOT EXISTS idx_items_status ON ingested_items(status);
CREATE INDEX IF NOT EXISTS idx_items_source ON ingested_items(source_id);
CREATE INDEX IF NOT EXISTS idx_items_fetched ON ingested_items(fetched_at);
CREATE INDEX IF NOT EXISTS idx_items_scraped ON ingested_items(scraped, scrape_error);

CREATE TABLE IF NOT EXISTS articles (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    title        TEXT NOT NULL,
    slug         TEXT NOT NULL UNIQUE,
    content      TEXT NOT NULL DEFAULT '',
    excerpt      TEXT NOT NULL DEFAULT '',
    category_id  INTEGER NOT NULL,
    author_id    INTEGER NOT NULL,
    status       TEXT NOT NULL DEFAULT 'published',
    image_url    TEXT,
    read_time    INTEGER NOT NULL DEFAULT 1,
    published_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS automation_queue (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id             INTEGER NOT NULL REFERENCES ingested_items(id),
    status              TEXT NOT NULL DEFAULT 'pending',
    rewritten_title     TEXT,
    article_id          INTEGER REFERENCES articles(id),
    social_scheduled_at DATETIME,
    social_post_id      TEXT,
    error_message       TEXT,
    retry_count         INTEGER NOT NULL DEFAULT 0,
    created_at          DATETIME NOT NULL,
    updated_at          DATETIME NOT NULL
);

-- At most one non-terminal pipeline entry per item, enforced even under
-- concurrent starts.
CREATE UNIQUE INDEX IF NOT EXISTS idx_queue_active_item
    ON automation_queue(item_id)
    WHERE status NOT IN ('completed', 'failed');

CREATE INDEX IF NOT EXISTS idx_queue_status ON automation_queue(status);
CREATE INDEX IF NOT EXISTS idx_queue_social ON automation_queue(status, social_scheduled_at);

CREATE TABLE IF NOT EXISTS notifications (
    id         TEXT PRIMARY KEY,
    type       TEXT NOT NULL,
    title      TEXT NOT NULL,
    message    TEXT NOT NULL DEFAULT '',
    data       TEXT NOT NULL DEFAULT '{}',
    read       BOOLEAN NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(read);
`
