// Package classify maps free text to a category slug with keyword
// scoring. Used for sources that declare a "mixed" category and need
// per-item classification.
package classify

import (
	"strings"

	"github.com/hudhud-news/hudhud/pkg/filter"
)

// Result is the outcome of classifying one item. Category is empty when
// no category's score clears the confidence floor; ambiguous content is
// left unclassified rather than mis-filed.
type Result struct {
	Category   string             `json:"category"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores"`
}

// Classifier scores text against per-category keyword sets.
type Classifier struct {
	categories    map[string][]string // slug -> normalized keywords
	mixed         map[string]struct{}
	minConfidence float64
	titleWeight   float64
	excerptWeight float64
}

// New builds a classifier. Keywords are normalized once up front with
// the same folding the filter uses, so Arabic variants match.
func New(categories map[string][]string, mixedCategories []string, minConfidence, titleWeight, excerptWeight float64) *Classifier {
	if titleWeight <= 0 {
		titleWeight = 2.0
	}
	if excerptWeight <= 0 {
		excerptWeight = 1.0
	}

	normalized := make(map[string][]string, len(categories))
	for slug, keywords := range categories {
		kws := make([]string, 0, len(keywords))
		for _, kw := range keywords {
			if fp := filter.Fingerprint(kw); fp != "" {
				kws = append(kws, fp)
			}
		}
		normalized[slug] = kws
	}

	mixed := make(map[string]struct{}, len(mixedCategories))
	for _, slug := range mixedCategories {
		mixed[strings.ToLower(strings.TrimSpace(slug))] = struct{}{}
	}

	return &Classifier{
		categories:    normalized,
		mixed:         mixed,
		minConfidence: minConfidence,
		titleWeight:   titleWeight,
		excerptWeight: excerptWeight,
	}
}

// Classify scores title and excerpt against every category. Title
// matches weigh more than excerpt matches; the top score is normalized
// to a confidence in [0,1].
func (c *Classifier) Classify(title, excerpt string) Result {
	titleText := " " + filter.Fingerprint(title) + " "
	excerptText := " " + filter.Fingerprint(excerpt) + " "

	result := Result{Scores: make(map[string]float64, len(c.categories))}

	var best string
	var bestConfidence float64
	for slug, keywords := range c.categories {
		if len(keywords) == 0 {
			continue
		}
		var weighted float64
		for _, kw := range keywords {
			padded := " " + kw + " "
			if strings.Contains(titleText, padded) {
				weighted += c.titleWeight
			} else if strings.Contains(excerptText, padded) {
				weighted += c.excerptWeight
			}
		}
		// Normalize against a full-title match of every keyword so the
		// confidence stays in [0,1] regardless of keyword set size.
		confidence := weighted / (c.titleWeight * float64(len(keywords)))
		if confidence > 1 {
			confidence = 1
		}
		result.Scores[slug] = confidence
		if confidence > bestConfidence {
			best, bestConfidence = slug, confidence
		}
	}

	if bestConfidence >= c.minConfidence && bestConfidence > 0 {
		result.Category = best
		result.Confidence = bestConfidence
	}
	return result
}

// IsMixed reports whether a source's declared category needs per-item
// classification.
func (c *Classifier) IsMixed(slug string) bool {
	_, ok := c.mixed[strings.ToLower(strings.TrimSpace(slug))]
	return ok
}
