package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelectors lists elements no article body lives in.
const noiseSelectors = "script, style, nav, header, footer, aside, form, iframe, noscript, " +
	".share, .social, .comments, .advertisement, .ads, .ad, .sidebar, .menu, .nav, " +
	".related, .recommended, .newsletter, .breadcrumb"

// candidateSelectors are containers worth scoring, most specific first.
var candidateSelectors = []string{
	"article",
	"main",
	"[role='main']",
	"div[itemprop='articleBody']",
	".post-content",
	".entry-content",
	".article-content",
	".article-body",
	".story-body",
	"#content",
	"div",
}

// ExtractWithRule pulls paragraph text from the first matching
// content selector of a curated site rule.
func ExtractWithRule(doc *goquery.Document, rule SiteRule) string {
	for _, selector := range rule.ContentSelectors {
		container := doc.Find(selector).First()
		if container.Length() == 0 {
			continue
		}
		for _, rm := range rule.RemoveSelectors {
			container.Find(rm).Remove()
		}
		container.Find(noiseSelectors).Remove()
		if text := paragraphText(container); text != "" {
			return text
		}
	}
	return ""
}

// ExtractGeneric is the readability-style fallback for unknown sites:
// strip obvious noise, score candidate containers by paragraph length
// and link density, keep the best.
func ExtractGeneric(doc *goquery.Document) string {
	doc.Find(noiseSelectors).Remove()

	var bestText string
	var bestScore float64
	for _, selector := range candidateSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			text := paragraphText(sel)
			if len(text) < 100 {
				return
			}
			score := scoreContainer(sel, text)
			if score > bestScore {
				bestScore = score
				bestText = text
			}
		})
		// Semantic containers win outright when they carry real text.
		if bestText != "" && selector != "div" {
			break
		}
	}
	return bestText
}

// paragraphText joins the container's paragraph-level text. Falls back
// to the container's own text when it holds no <p> elements.
func paragraphText(sel *goquery.Selection) string {
	var parts []string
	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.Join(strings.Fields(p.Text()), " "); len(text) > 20 {
			parts = append(parts, text)
		}
	})
	if len(parts) > 0 {
		return strings.Join(parts, "\n\n")
	}
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// scoreContainer favors long paragraph text with few links. Link-heavy
// blocks are navigation, not content.
func scoreContainer(sel *goquery.Selection, text string) float64 {
	linkLen := 0
	sel.Find("a").Each(func(_ int, a *goquery.Selection) {
		linkLen += len(strings.TrimSpace(a.Text()))
	})
	density := float64(linkLen) / float64(len(text)+1)
	return float64(len(text)) * (1 - density)
}
