package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hudhud-news/hudhud/internal/store"
)

func newScrapeStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	db, err := store.New(filepath.Join(t.TempDir(), "scrape.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertScrapeItem(t *testing.T, db *store.SQLiteStore, sourceURL string) *store.IngestedItem {
	t.Helper()
	ctx := context.Background()
	src := &store.FeedSource{Name: "مصدر", FeedURL: sourceURL + "/feed", Active: true}
	require.NoError(t, db.CreateSource(ctx, src))

	item := &store.IngestedItem{
		GUID:        "guid-" + sourceURL,
		Title:       "عنوان الخبر",
		TitleHash:   "hash-" + sourceURL,
		Excerpt:     "مقتطف",
		SourceURL:   sourceURL,
		PublishedAt: time.Now().UTC(),
		SourceID:    src.ID,
		Status:      store.ItemPending,
	}
	require.NoError(t, db.InsertItem(ctx, item))
	return item
}

func newTestScraper(db *store.SQLiteStore, minLen int) *Scraper {
	return New(db, Options{
		Timeout:          5 * time.Second,
		MaxRetries:       2,
		RetryBackoff:     time.Millisecond,
		RequestDelay:     time.Millisecond,
		MinContentLength: minLen,
	}, zap.NewNop())
}

func articlePage() string {
	return `<html><body>
		<nav><a href="/">الرئيسية</a></nav>
		<article>
			<p>` + articleParagraph + `</p>
			<p>` + articleParagraph + `</p>
		</article>
	</body></html>`
}

func TestScrapeArticleSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage())
	}))
	defer srv.Close()

	db := newScrapeStore(t)
	item := insertScrapeItem(t, db, srv.URL+"/news/1")
	scraper := newTestScraper(db, 50)

	result, err := scraper.ScrapeArticle(context.Background(), item.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Content, "خطة طوارئ")

	got, err := db.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.True(t, got.Scraped)
	require.NotNil(t, got.Content)
	assert.Contains(t, *got.Content, "خطة طوارئ")
	assert.Nil(t, got.ScrapeError)
}

func TestScrapeArticleTooShort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage())
	}))
	defer srv.Close()

	db := newScrapeStore(t)
	item := insertScrapeItem(t, db, srv.URL+"/news/1")
	scraper := newTestScraper(db, 10000)

	result, err := scraper.ScrapeArticle(context.Background(), item.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "need 10000")

	got, err := db.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.False(t, got.Scraped)
	require.NotNil(t, got.ScrapeError)
}

func TestScrapeArticleHTTPFailure(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.NotFound(w, r)
	}))
	defer srv.Close()

	db := newScrapeStore(t)
	item := insertScrapeItem(t, db, srv.URL+"/gone")
	scraper := newTestScraper(db, 50)

	result, err := scraper.ScrapeArticle(context.Background(), item.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "fetch page")
	assert.Equal(t, 2, requests, "bounded retries")
}

func TestScrapeArticleValidation(t *testing.T) {
	db := newScrapeStore(t)
	scraper := newTestScraper(db, 50)

	_, err := scraper.ScrapeArticle(context.Background(), 9999)
	assert.Error(t, err, "unknown item is a caller error")
}

func TestProcessScrapeQueueAndRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "broken") {
			http.Error(w, "nope", http.StatusForbidden)
			return
		}
		fmt.Fprint(w, articlePage())
	}))
	defer srv.Close()

	db := newScrapeStore(t)
	ctx := context.Background()
	good := insertScrapeItem(t, db, srv.URL+"/good")
	bad := insertScrapeItem(t, db, srv.URL+"/broken")
	scraper := newTestScraper(db, 50)

	result, err := scraper.ProcessScrapeQueue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Successful)

	// Failed item left the queue; a second pass finds nothing.
	result, err = scraper.ProcessScrapeQueue(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, result.Processed)

	// Retry clears the error so the item re-enters the queue.
	n, err := scraper.RetryFailedScrapes(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	result, err = scraper.ProcessScrapeQueue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)

	gotGood, err := db.GetItem(ctx, good.ID)
	require.NoError(t, err)
	assert.True(t, gotGood.Scraped)

	gotBad, err := db.GetItem(ctx, bad.ID)
	require.NoError(t, err)
	assert.False(t, gotBad.Scraped)
	require.NotNil(t, gotBad.ScrapeError)
}
