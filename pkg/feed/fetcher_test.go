package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hudhud-news/hudhud/internal/store"
	"github.com/hudhud-news/hudhud/pkg/classify"
	"github.com/hudhud-news/hudhud/pkg/filter"
)

func testFeedXML(t *testing.T) string {
	t.Helper()
	pub := time.Now().UTC().Add(-time.Hour).Format(time.RFC1123Z)
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>أخبار اليمن</title>
  <link>https://example.ye</link>
  <item>
    <title>الحوثي يقصف عدن بصاروخ باليستي</title>
    <link>https://example.ye/news/1</link>
    <guid>https://example.ye/news/1</guid>
    <description>&lt;p&gt;تفاصيل القصف على مدينة عدن جنوبي اليمن&lt;/p&gt;</description>
    <pubDate>%s</pubDate>
  </item>
  <item>
    <title>اشتباكات في محافظة عدن جنوبي اليمن</title>
    <link>https://example.ye/news/2</link>
    <guid>https://example.ye/news/2</guid>
    <description>تقرير ميداني من محافظة عدن</description>
    <pubDate>%s</pubDate>
  </item>
  <item>
    <title>وصفة كيك الشوكولاته السريعه</title>
    <link>https://example.ye/news/3</link>
    <guid>https://example.ye/news/3</guid>
    <description>مكونات الوصفة وطريقة التحضير</description>
    <pubDate>%s</pubDate>
  </item>
</channel>
</rss>`, pub, pub, pub)
}

func newTestFetcher(t *testing.T, autoApprove bool, feedURL string) (*Fetcher, *store.SQLiteStore, *store.FeedSource) {
	t.Helper()

	db, err := store.New(filepath.Join(t.TempDir(), "feed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	engine, err := filter.NewEngine(filter.Config{
		Keywords:        []string{"اليمن", "صنعاء", "عدن", "الحوثي", "محافظة"},
		AcceptThreshold: 30,
		FlagThreshold:   15,
		TierAdjustment:  10,
	})
	require.NoError(t, err)

	classifier := classify.New(map[string][]string{
		"security": {"يقصف", "اشتباكات", "القصف"},
	}, []string{"mixed"}, 0.15, 2.0, 1.0)

	src := &store.FeedSource{
		Name:        "المصدر التجريبي",
		FeedURL:     feedURL,
		Category:    "mixed",
		Active:      true,
		AutoApprove: autoApprove,
	}
	require.NoError(t, db.CreateSource(context.Background(), src))

	fetcher := New(db, engine, classifier, Options{
		Timeout:       5 * time.Second,
		ExcerptMaxLen: 200,
	}, zap.NewNop())
	return fetcher, db, src
}

func TestFetchFeedIngestsAndFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testFeedXML(t))
	}))
	defer srv.Close()

	fetcher, db, src := newTestFetcher(t, true, srv.URL)
	ctx := context.Background()

	result, err := fetcher.FetchFeed(ctx, src.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.NewArticles, "relevant items persisted")
	assert.Equal(t, 1, result.Skipped, "irrelevant item dropped")

	items, err := db.ListItems(ctx, store.ItemListOpts{SourceID: src.ID})
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, store.ItemApproved, item.Status, "auto-approve source")
		assert.NotNil(t, item.ApprovedAt)
		assert.LessOrEqual(t, len([]rune(item.Excerpt)), 200)
		require.NotNil(t, item.Category, "mixed source classified per item")
		assert.Equal(t, "security", *item.Category)
	}

	got, err := db.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastFetchedAt)
}

func TestFetchFeedIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testFeedXML(t))
	}))
	defer srv.Close()

	fetcher, _, src := newTestFetcher(t, true, srv.URL)
	ctx := context.Background()

	first, err := fetcher.FetchFeed(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, first.NewArticles)

	second, err := fetcher.FetchFeed(ctx, src.ID)
	require.NoError(t, err)
	assert.Zero(t, second.NewArticles, "refetching the same feed adds nothing")
	assert.Equal(t, 3, second.Skipped)
}

func TestFetchFeedRecordsMergedVariants(t *testing.T) {
	pub := time.Now().UTC().Add(-time.Hour).Format(time.RFC1123Z)
	// Same story twice with reordered wording: different guid and title
	// hash, near-identical fingerprint.
	xml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>أخبار اليمن</title>
  <link>https://example.ye</link>
  <item>
    <title>الحوثي يقصف عدن بصاروخ باليستي</title>
    <link>https://example.ye/news/1</link>
    <guid>https://example.ye/news/1</guid>
    <pubDate>%s</pubDate>
  </item>
  <item>
    <title>يقصف الحوثي عدن بصاروخ باليستي</title>
    <link>https://other.ye/news/77</link>
    <guid>https://other.ye/news/77</guid>
    <pubDate>%s</pubDate>
  </item>
</channel>
</rss>`, pub, pub)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, xml)
	}))
	defer srv.Close()

	fetcher, db, src := newTestFetcher(t, true, srv.URL)
	ctx := context.Background()

	result, err := fetcher.FetchFeed(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewArticles)
	assert.Equal(t, 1, result.Merged)

	items, err := db.ListItems(ctx, store.ItemListOpts{SourceID: src.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "الحوثي يقصف عدن بصاروخ باليستي", items[0].Title)
	assert.Equal(t, 1, items[0].VariantCount, "merge recorded on the earlier item")
}

func TestFetchFeedManualSourceHoldsItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testFeedXML(t))
	}))
	defer srv.Close()

	fetcher, db, src := newTestFetcher(t, false, srv.URL)
	ctx := context.Background()

	_, err := fetcher.FetchFeed(ctx, src.ID)
	require.NoError(t, err)

	items, err := db.ListItems(ctx, store.ItemListOpts{SourceID: src.ID})
	require.NoError(t, err)
	require.NotEmpty(t, items)
	for _, item := range items {
		assert.Equal(t, store.ItemPending, item.Status, "manual source holds for review")
		assert.Nil(t, item.ApprovedAt)
	}
}

func TestFetchFeedErrorState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	fetcher, db, src := newTestFetcher(t, true, srv.URL)
	ctx := context.Background()

	// Transient failures come back in the result, not as errors.
	result, err := fetcher.FetchFeed(ctx, src.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)

	got, err := db.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ErrorCount)

	// Unknown and disabled sources are caller errors.
	_, err = fetcher.FetchFeed(ctx, 9999)
	assert.Error(t, err)

	require.NoError(t, db.CreateSource(ctx, &store.FeedSource{
		Name: "معطل", FeedURL: srv.URL + "/disabled", Active: false,
	}))
	_, err = fetcher.FetchFeed(ctx, src.ID+1)
	assert.Error(t, err)
}

func TestFetchAllActiveFeedsSkipsNotDue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testFeedXML(t))
	}))
	defer srv.Close()

	fetcher, _, _ := newTestFetcher(t, true, srv.URL)
	ctx := context.Background()

	batch, err := fetcher.FetchAllActiveFeeds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Sources)
	assert.Equal(t, 1, batch.Succeeded)
	assert.Equal(t, 2, batch.NewArticles)

	// Just fetched: the source is inside its interval and gets skipped.
	batch, err = fetcher.FetchAllActiveFeeds(ctx)
	require.NoError(t, err)
	assert.Zero(t, batch.Sources)
}
