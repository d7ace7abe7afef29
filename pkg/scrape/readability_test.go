package scrape

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleParagraph = "أعلنت السلطات المحلية في محافظة الحديدة اليوم عن خطة طوارئ جديدة لمواجهة " +
	"الفيضانات المتوقعة خلال موسم الأمطار، وتشمل الخطة إخلاء المناطق المنخفضة وتجهيز مراكز إيواء مؤقتة."

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractGenericPrefersArticleOverNav(t *testing.T) {
	html := `<html><body>
		<nav><a href="/">الرئيسية</a><a href="/news">الأخبار</a><a href="/sports">الرياضة</a></nav>
		<article>
			<p>` + articleParagraph + `</p>
			<p>` + articleParagraph + `</p>
		</article>
		<aside class="related"><p>` + articleParagraph + `</p></aside>
		<footer>جميع الحقوق محفوظة</footer>
	</body></html>`

	text := ExtractGeneric(docFrom(t, html))
	assert.Contains(t, text, "خطة طوارئ جديدة")
	assert.NotContains(t, text, "الرئيسية", "navigation stripped")
	assert.NotContains(t, text, "جميع الحقوق", "footer stripped")
	assert.Equal(t, 2, strings.Count(text, "خطة طوارئ"), "both body paragraphs kept")
}

func TestExtractGenericFallsBackToDivs(t *testing.T) {
	html := `<html><body>
		<div class="wrapper">
			<div class="story-body">
				<p>` + articleParagraph + `</p>
				<p>` + articleParagraph + `</p>
			</div>
		</div>
	</body></html>`

	text := ExtractGeneric(docFrom(t, html))
	assert.Contains(t, text, "مراكز إيواء مؤقتة")
}

func TestExtractGenericEmptyPage(t *testing.T) {
	assert.Empty(t, ExtractGeneric(docFrom(t, "<html><body><p>قصير</p></body></html>")))
}

func TestExtractWithRule(t *testing.T) {
	html := `<html><body>
		<div class="article-body">
			<div class="share">شارك المقال</div>
			<p>` + articleParagraph + `</p>
		</div>
	</body></html>`

	rule := SiteRule{
		ContentSelectors: []string{".article-body"},
		RemoveSelectors:  []string{".share"},
	}
	text := ExtractWithRule(docFrom(t, html), rule)
	assert.Contains(t, text, "خطة طوارئ")
	assert.NotContains(t, text, "شارك المقال")
}

func TestRuleForHost(t *testing.T) {
	_, ok := RuleForHost("www.aljazeera.net")
	assert.True(t, ok, "subdomain matches by suffix")

	_, ok = RuleForHost("aljazeera.net")
	assert.True(t, ok)

	_, ok = RuleForHost("unknown-site.example")
	assert.False(t, ok)
}
