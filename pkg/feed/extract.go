package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/hudhud-news/hudhud/pkg/filter"
)

// TitleHash returns the hex SHA-256 of the normalized title, used for
// the per-source fuzzy dedup gate.
func TitleHash(title string) string {
	h := sha256.Sum256([]byte(filter.Fingerprint(title)))
	return hex.EncodeToString(h[:])
}

// StripHTML returns the text content of an HTML fragment with
// whitespace collapsed.
func StripHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// TruncateExcerpt cuts text to at most maxLen runes, breaking at a word
// boundary and ending in an ellipsis. Rune-based so Arabic text is not
// split mid-character.
func TruncateExcerpt(text string, maxLen int) string {
	if maxLen <= 3 {
		maxLen = 200
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}

	cut := string(runes[:maxLen-3])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ,;:،؛") + "..."
}

// ResolveImage extracts an absolute image URL from a feed entry,
// trying in priority order: enclosure, media:content, media:thumbnail,
// first <img> in the body. Returns nil when nothing usable is found.
func ResolveImage(entry *gofeed.Item, base *url.URL) *string {
	if u := enclosureImage(entry); u != "" {
		return absolutize(u, base)
	}
	if u := mediaExtensionURL(entry, "content"); u != "" {
		return absolutize(u, base)
	}
	if u := mediaExtensionURL(entry, "thumbnail"); u != "" {
		return absolutize(u, base)
	}
	if u := firstInlineImage(entry); u != "" {
		return absolutize(u, base)
	}
	return nil
}

func enclosureImage(entry *gofeed.Item) string {
	for _, enc := range entry.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if enc.Type == "" || strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

func mediaExtensionURL(entry *gofeed.Item, element string) string {
	media, ok := entry.Extensions["media"]
	if !ok {
		return ""
	}
	for _, ext := range media[element] {
		if u := ext.Attrs["url"]; u != "" {
			return u
		}
	}
	return ""
}

func firstInlineImage(entry *gofeed.Item) string {
	for _, fragment := range []string{entry.Description, entry.Content} {
		if fragment == "" {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
		if err != nil {
			continue
		}
		if src, ok := doc.Find("img").First().Attr("src"); ok && src != "" {
			return src
		}
	}
	return ""
}

func absolutize(raw string, base *url.URL) *string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	if base != nil {
		parsed = base.ResolveReference(parsed)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil
	}
	resolved := parsed.String()
	return &resolved
}
