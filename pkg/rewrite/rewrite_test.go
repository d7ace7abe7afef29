package rewrite

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func modelServer(t *testing.T, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "json", payload["format"])
		assert.Equal(t, false, payload["stream"])

		json.NewEncoder(w).Encode(map[string]string{"response": response})
	}))
}

func TestRewriteHeadline(t *testing.T) {
	srv := modelServer(t, `{"title": "عنوان محسن", "excerpt": "مقتطف محسن"}`)
	defer srv.Close()

	c := New(srv.URL, "test-model", 5*time.Second, zap.NewNop())
	got := c.RewriteHeadline(context.Background(), "العنوان الأصلي", "المقتطف الأصلي")
	require.NotNil(t, got)
	assert.Equal(t, "عنوان محسن", got.Title)
	assert.Equal(t, "مقتطف محسن", got.Excerpt)
}

func TestRewriteHeadlineMessyResponse(t *testing.T) {
	// Models wrap JSON in fences and commentary; the client digs it out.
	srv := modelServer(t, "بالتأكيد، إليك النتيجة:\n```json\n{\"title\": \"عنوان محسن\", \"excerpt\": \"مقتطف محسن\"}\n```")
	defer srv.Close()

	c := New(srv.URL, "test-model", 5*time.Second, zap.NewNop())
	got := c.RewriteHeadline(context.Background(), "الأصلي", "الأصلي")
	require.NotNil(t, got)
	assert.Equal(t, "عنوان محسن", got.Title)
}

func TestRewriteHeadlinePartialResponse(t *testing.T) {
	// Missing fields fall back to the originals individually.
	srv := modelServer(t, `{"title": "عنوان محسن"}`)
	defer srv.Close()

	c := New(srv.URL, "test-model", 5*time.Second, zap.NewNop())
	got := c.RewriteHeadline(context.Background(), "الأصلي", "المقتطف الأصلي")
	require.NotNil(t, got)
	assert.Equal(t, "عنوان محسن", got.Title)
	assert.Equal(t, "المقتطف الأصلي", got.Excerpt)
}

func TestRewriteHeadlineUnreachableModel(t *testing.T) {
	srv := httptest.NewServer(nil)
	srv.Close() // connection refused from here on

	c := New(srv.URL, "test-model", time.Second, zap.NewNop())
	assert.Nil(t, c.RewriteHeadline(context.Background(), "عنوان", "مقتطف"))
}

func TestRewriteHeadlineServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-model", time.Second, zap.NewNop())
	assert.Nil(t, c.RewriteHeadline(context.Background(), "عنوان", "مقتطف"))
}

func TestRewriteArticle(t *testing.T) {
	srv := modelServer(t, `{"title": "عنوان", "content": "نص معاد كتابته بالكامل", "excerpt": "مقتطف"}`)
	defer srv.Close()

	c := New(srv.URL, "test-model", 5*time.Second, zap.NewNop())
	got := c.RewriteArticle(context.Background(), "الأصلي", "النص الأصلي", "politics")
	require.NotNil(t, got)
	assert.Equal(t, "نص معاد كتابته بالكامل", got.Content)
	assert.Equal(t, "مقتطف", got.Excerpt)
}

func TestRewriteArticleGarbageKeepsOriginals(t *testing.T) {
	srv := modelServer(t, "لا يوجد JSON هنا إطلاقا")
	defer srv.Close()

	c := New(srv.URL, "test-model", 5*time.Second, zap.NewNop())
	got := c.RewriteArticle(context.Background(), "العنوان الأصلي", "النص الأصلي", "sports")
	require.NotNil(t, got, "usable transport, unusable payload degrades to originals")
	assert.Equal(t, "العنوان الأصلي", got.Title)
	assert.Equal(t, "النص الأصلي", got.Content)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"nested braces", `text {"a":{"b":2}} trailing`, `{"a":{"b":2}}`},
		{"braces inside strings", `{"a":"x}y{z"}`, `{"a":"x}y{z"}`},
		{"escaped quotes", `{"a":"he said \"hi\""}`, `{"a":"he said \"hi\""}`},
		{"unterminated returns tail", `junk {"a":1`, `{"a":1`},
		{"no object returns input", "plain text", "plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(extractJSON(tt.in)))
		})
	}
}
