package scheduler

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hudhud-news/hudhud/internal/store"
	"github.com/hudhud-news/hudhud/pkg/feed"
	"github.com/hudhud-news/hudhud/pkg/scrape"
)

func TestCronSpec(t *testing.T) {
	assert.Equal(t, "@every 15m", cronSpec("", "@every 15m"))
	assert.Equal(t, "@every 30m", cronSpec("30m", "@every 15m"))
	assert.Equal(t, "@every 1h30m", cronSpec("1h30m", "@every 15m"))
	assert.Equal(t, "0 3 * * *", cronSpec("0 3 * * *", "@every 24h"))
	assert.Equal(t, "@hourly", cronSpec("@hourly", "@every 15m"))
}

func TestJobsLogOnePassSummary(t *testing.T) {
	db, err := store.New(filepath.Join(t.TempDir(), "sched.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	fetcher := feed.New(db, nil, nil, feed.Options{}, logger)
	scraper := scrape.New(db, scrape.Options{}, logger)
	s := New(fetcher, scraper, nil, Options{}, logger)

	ctx := context.Background()

	s.fetchJob(ctx)
	assert.Equal(t, 1, logs.FilterMessage("fetch pass complete").Len(),
		"one summary per fetch pass")

	s.scrapeJob(ctx)
	assert.Equal(t, 1, logs.FilterMessage("scrape pass complete").Len(),
		"one summary per scrape pass")
}
