package feed

import (
	"net/url"
	"strings"
	"testing"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleHash(t *testing.T) {
	// Orthographic variants of the same headline hash identically.
	assert.Equal(t,
		TitleHash("الأمم المتحدة تحذر من مجاعة في اليمن"),
		TitleHash("الامم المتحده تحذر من مجاعة في اليمن!"))

	assert.NotEqual(t,
		TitleHash("خبر أول"),
		TitleHash("خبر ثان"))
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tags removed", "<p>فيضانات <b>تضرب</b> المحافظة</p>", "فيضانات تضرب المحافظة"},
		{"whitespace collapsed", "<div>خبر\n\t  عاجل</div>", "خبر عاجل"},
		{"plain text unchanged", "نص عادي", "نص عادي"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.in))
		})
	}
}

func TestTruncateExcerpt(t *testing.T) {
	short := "فيضانات تضرب محافظة الحديدة"
	assert.Equal(t, short, TruncateExcerpt(short, 200), "short text passes through")

	long := strings.Repeat("فيضانات تضرب محافظة الحديدة وتخلف أضرارا واسعة ", 10)
	got := TruncateExcerpt(long, 200)
	assert.LessOrEqual(t, len([]rune(got)), 200)
	assert.True(t, strings.HasSuffix(got, "..."), "truncated text ends with ellipsis")
	trimmed := strings.TrimSuffix(got, "...")
	assert.False(t, strings.HasSuffix(trimmed, " "), "no dangling space before ellipsis")
	// Word boundary: the remainder must be a prefix of the original.
	assert.True(t, strings.HasPrefix(long, trimmed))
}

func TestResolveImagePriority(t *testing.T) {
	base, _ := url.Parse("https://example.ye/feed.xml")

	entry := &gofeed.Item{
		Description: `<p>نص <img src="/images/inline.jpg"> إضافي</p>`,
		Enclosures: []*gofeed.Enclosure{
			{URL: "https://cdn.example.ye/enclosure.jpg", Type: "image/jpeg"},
		},
		Extensions: ext.Extensions{
			"media": {
				"content": []ext.Extension{
					{Attrs: map[string]string{"url": "https://cdn.example.ye/media.jpg"}},
				},
			},
		},
	}

	// Enclosure wins over media:content and inline images.
	got := ResolveImage(entry, base)
	require.NotNil(t, got)
	assert.Equal(t, "https://cdn.example.ye/enclosure.jpg", *got)

	// Without an enclosure, media:content wins.
	entry.Enclosures = nil
	got = ResolveImage(entry, base)
	require.NotNil(t, got)
	assert.Equal(t, "https://cdn.example.ye/media.jpg", *got)

	// Inline image is the last resort and gets absolutized.
	entry.Extensions = nil
	got = ResolveImage(entry, base)
	require.NotNil(t, got)
	assert.Equal(t, "https://example.ye/images/inline.jpg", *got)

	// Nothing usable.
	entry.Description = "<p>بدون صور</p>"
	assert.Nil(t, ResolveImage(entry, base))
}

func TestResolveImageRejectsNonHTTP(t *testing.T) {
	entry := &gofeed.Item{
		Enclosures: []*gofeed.Enclosure{
			{URL: "ftp://example.ye/file.jpg", Type: "image/jpeg"},
		},
	}
	assert.Nil(t, ResolveImage(entry, nil))
}
