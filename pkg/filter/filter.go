// Package filter decides the fate of incoming feed items: accept,
// reject, flag for review, or merge with a near-duplicate already seen.
package filter

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudflare/ahocorasick"
)

// Status classifies the filter's verdict on an item.
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusFlagged  Status = "flagged"
	StatusMerged   Status = "merged"
)

// Action is what the caller should do with the item.
type Action string

const (
	ActionPublish Action = "publish"
	ActionMerge   Action = "merge"
	ActionHold    Action = "hold"
	ActionDrop    Action = "drop"
)

// Candidate is a feed item under evaluation.
type Candidate struct {
	GUID        string
	Title       string
	Excerpt     string
	SourceID    int64
	AutoApprove bool
	PublishedAt time.Time
}

// Result is the filter's verdict for one candidate.
type Result struct {
	Status        Status  `json:"status"`
	Score         float64 `json:"score"`
	Tier          int     `json:"tier"`
	Reasoning     string  `json:"reasoning"`
	Action        Action  `json:"action"`
	MergeWithID   int64   `json:"merge_with_id,omitempty"`
	Fingerprint   string  `json:"fingerprint"`
	EntityDensity float64 `json:"entity_density"`
}

// Stats exposes cache and tracker sizes for observability.
type Stats struct {
	Fingerprints   int `json:"fingerprints"`
	TrackedSources int `json:"tracked_sources"`
}

// Config tunes the engine. All thresholds are operator-set.
type Config struct {
	Keywords            []string
	AcceptThreshold     float64       // score at or above accepts (tier 2)
	FlagThreshold       float64       // borderline band lower bound
	TierAdjustment      float64       // threshold shift per tier away from 2
	SourceTiers         map[int64]int // source id -> tier 1..3
	StalenessWindow     time.Duration // oldest plausible published timestamp
	FutureTolerance     time.Duration // newest plausible published timestamp
	FingerprintCapacity int
	SimilarityThreshold float64
	BurstLimit          int
	BurstWindow         time.Duration
}

type fingerprintEntry struct {
	fingerprint string
	tokens      []string
	itemID      int64
	seenAt      time.Time
}

// Engine evaluates candidates. The fingerprint cache and burst tracker
// are the only mutable state; both are bounded and resettable. The
// persistent dedup gate (guid, title hash) lives in the store, not here.
type Engine struct {
	cfg     Config
	matcher *ahocorasick.Matcher

	mu     sync.Mutex
	recent []fingerprintEntry
	bursts map[int64][]time.Time
}

const scoreMax = 100

// NewEngine validates the config and builds the keyword automaton.
func NewEngine(cfg Config) (*Engine, error) {
	if len(cfg.Keywords) == 0 {
		return nil, fmt.Errorf("filter: no relevance keywords configured")
	}
	if cfg.AcceptThreshold <= 0 || cfg.FlagThreshold < 0 || cfg.FlagThreshold > cfg.AcceptThreshold {
		return nil, fmt.Errorf("filter: invalid thresholds accept=%.1f flag=%.1f",
			cfg.AcceptThreshold, cfg.FlagThreshold)
	}
	if cfg.FingerprintCapacity <= 0 {
		cfg.FingerprintCapacity = 500
	}
	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		cfg.SimilarityThreshold = 0.85
	}
	if cfg.BurstLimit <= 0 {
		cfg.BurstLimit = 10
	}
	if cfg.BurstWindow <= 0 {
		cfg.BurstWindow = time.Hour
	}
	if cfg.StalenessWindow <= 0 {
		cfg.StalenessWindow = 72 * time.Hour
	}
	if cfg.FutureTolerance <= 0 {
		cfg.FutureTolerance = 24 * time.Hour
	}

	normalized := make([]string, 0, len(cfg.Keywords))
	for _, kw := range cfg.Keywords {
		if fp := Fingerprint(kw); fp != "" {
			normalized = append(normalized, fp)
		}
	}

	return &Engine{
		cfg:     cfg,
		matcher: ahocorasick.NewStringMatcher(normalized),
		bursts:  make(map[int64][]time.Time),
	}, nil
}

// Evaluate runs the staged filter on one candidate. It never fails on
// malformed input; it degrades to a rejection with reasoning. The burst
// tracker is updated for every non-rejected verdict.
func (e *Engine) Evaluate(c Candidate) Result {
	now := time.Now().UTC()
	tier := e.tierFor(c.SourceID)
	fp := Fingerprint(c.Title)

	// Stage 1: ingestion gate.
	if strings.TrimSpace(c.Title) == "" {
		return rejected(tier, fp, "missing title")
	}
	if strings.TrimSpace(c.GUID) == "" {
		return rejected(tier, fp, "missing unique identifier")
	}
	if !c.PublishedAt.IsZero() {
		if c.PublishedAt.After(now.Add(e.cfg.FutureTolerance)) {
			return rejected(tier, fp, "published timestamp in the future")
		}
		if c.PublishedAt.Before(now.Add(-e.cfg.StalenessWindow)) {
			return rejected(tier, fp, fmt.Sprintf("stale item, older than %s", e.cfg.StalenessWindow))
		}
	}

	// Stage 3: near-duplicate check against the recent fingerprint cache.
	if mergeID, sim, ok := e.findSimilar(fp); ok {
		return Result{
			Status:      StatusMerged,
			Tier:        tier,
			Reasoning:   fmt.Sprintf("near-duplicate of item %d (similarity %.2f)", mergeID, sim),
			Action:      ActionMerge,
			MergeWithID: mergeID,
			Fingerprint: fp,
		}
	}

	// Stage 4: heuristic relevance scoring with tier-adjusted threshold.
	score, density := e.score(c.Title, c.Excerpt)
	acceptAt := e.cfg.AcceptThreshold + e.cfg.TierAdjustment*float64(tier-2)
	flagAt := e.cfg.FlagThreshold + e.cfg.TierAdjustment*float64(tier-2)
	if flagAt < 0 {
		flagAt = 0
	}

	if score < flagAt {
		r := rejected(tier, fp, fmt.Sprintf("relevance %.1f below tier %d floor %.1f", score, tier, flagAt))
		r.Score = score
		r.EntityDensity = density
		return r
	}

	// Stage 5: burst control. Counted before the verdict so a noisy
	// source gets held even when each item scores well.
	burstCount := e.recordBurst(c.SourceID, now)
	if burstCount > e.cfg.BurstLimit {
		return Result{
			Status:        StatusFlagged,
			Score:         score,
			Tier:          tier,
			Reasoning:     fmt.Sprintf("source %d over burst limit (%d in %s)", c.SourceID, burstCount, e.cfg.BurstWindow),
			Action:        ActionHold,
			Fingerprint:   fp,
			EntityDensity: density,
		}
	}

	if score < acceptAt {
		return Result{
			Status:        StatusFlagged,
			Score:         score,
			Tier:          tier,
			Reasoning:     fmt.Sprintf("borderline relevance %.1f (tier %d bar %.1f), held for review", score, tier, acceptAt),
			Action:        ActionHold,
			Fingerprint:   fp,
			EntityDensity: density,
		}
	}

	action := ActionPublish
	reason := fmt.Sprintf("relevance %.1f clears tier %d bar %.1f", score, tier, acceptAt)
	if !c.AutoApprove {
		action = ActionHold
		reason += "; source requires manual approval"
	}
	return Result{
		Status:        StatusAccepted,
		Score:         score,
		Tier:          tier,
		Reasoning:     reason,
		Action:        action,
		Fingerprint:   fp,
		EntityDensity: density,
	}
}

// Remember records a persisted item's fingerprint so later candidates
// can merge against it. The cache is capacity-bounded FIFO.
func (e *Engine) Remember(itemID int64, fingerprint string) {
	if fingerprint == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.recent = append(e.recent, fingerprintEntry{
		fingerprint: fingerprint,
		tokens:      strings.Fields(fingerprint),
		itemID:      itemID,
		seenAt:      time.Now().UTC(),
	})
	if over := len(e.recent) - e.cfg.FingerprintCapacity; over > 0 {
		e.recent = e.recent[over:]
	}
}

// Reset clears the transient fingerprint cache and burst tracker.
// Called periodically so process memory stays bounded.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recent = nil
	e.bursts = make(map[int64][]time.Time)
}

// Stats reports cache and tracker sizes.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Fingerprints:   len(e.recent),
		TrackedSources: len(e.bursts),
	}
}

func (e *Engine) tierFor(sourceID int64) int {
	if tier, ok := e.cfg.SourceTiers[sourceID]; ok && tier >= 1 && tier <= 3 {
		return tier
	}
	return 2
}

func (e *Engine) findSimilar(fp string) (int64, float64, bool) {
	if fp == "" {
		return 0, 0, false
	}
	tokens := strings.Fields(fp)

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.recent) - 1; i >= 0; i-- {
		entry := e.recent[i]
		if sim := similarity(tokens, entry.tokens); sim >= e.cfg.SimilarityThreshold {
			return entry.itemID, sim, true
		}
	}
	return 0, 0, false
}

// score combines keyword hits in title and excerpt into a 0..100
// relevance score, plus an entity-density metric (hits per token).
func (e *Engine) score(title, excerpt string) (float64, float64) {
	titleHits := len(e.matcher.Match([]byte(Fingerprint(title))))
	excerptHits := len(e.matcher.Match([]byte(Fingerprint(excerpt))))

	score := 20*float64(titleHits) + 10*float64(excerptHits)
	if score > scoreMax {
		score = scoreMax
	}

	tokens := len(fingerprintTokens(title)) + len(fingerprintTokens(excerpt))
	density := 0.0
	if tokens > 0 {
		density = float64(titleHits+excerptHits) / float64(tokens)
	}
	return score, density
}

// recordBurst appends an event for the source and returns how many
// events fall inside the window, pruning the rest.
func (e *Engine) recordBurst(sourceID int64, now time.Time) int {
	cutoff := now.Add(-e.cfg.BurstWindow)

	e.mu.Lock()
	defer e.mu.Unlock()

	events := e.bursts[sourceID]
	kept := events[:0]
	for _, t := range events {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	e.bursts[sourceID] = kept
	return len(kept)
}

func rejected(tier int, fp, reason string) Result {
	return Result{
		Status:      StatusRejected,
		Tier:        tier,
		Reasoning:   reason,
		Action:      ActionDrop,
		Fingerprint: fp,
	}
}
