package filter

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := Config{
		Keywords:            []string{"اليمن", "صنعاء", "عدن", "الحوثي", "محافظة"},
		AcceptThreshold:     30,
		FlagThreshold:       15,
		TierAdjustment:      10,
		StalenessWindow:     72 * time.Hour,
		FutureTolerance:     24 * time.Hour,
		FingerprintCapacity: 100,
		SimilarityThreshold: 0.85,
		BurstLimit:          10,
		BurstWindow:         time.Hour,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	return engine
}

func candidate(title string) Candidate {
	return Candidate{
		GUID:        "guid-" + title,
		Title:       title,
		SourceID:    1,
		AutoApprove: true,
		PublishedAt: time.Now().UTC(),
	}
}

func TestNewEngineValidation(t *testing.T) {
	_, err := NewEngine(Config{AcceptThreshold: 30, FlagThreshold: 15})
	assert.Error(t, err, "no keywords")

	_, err = NewEngine(Config{Keywords: []string{"اليمن"}, AcceptThreshold: 10, FlagThreshold: 20})
	assert.Error(t, err, "flag above accept")
}

func TestEvaluateGates(t *testing.T) {
	engine := testEngine(t, nil)
	now := time.Now().UTC()

	tests := []struct {
		name      string
		candidate Candidate
		reason    string
	}{
		{
			"missing title",
			Candidate{GUID: "g1", Title: "   ", PublishedAt: now},
			"missing title",
		},
		{
			"missing guid",
			Candidate{Title: "قصف جديد على صنعاء", PublishedAt: now},
			"missing unique identifier",
		},
		{
			"future timestamp",
			Candidate{GUID: "g2", Title: "قصف جديد على صنعاء", PublishedAt: now.Add(48 * time.Hour)},
			"published timestamp in the future",
		},
		{
			"stale item",
			Candidate{GUID: "g3", Title: "قصف جديد على صنعاء", PublishedAt: now.Add(-100 * time.Hour)},
			"stale item",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.Evaluate(tt.candidate)
			assert.Equal(t, StatusRejected, result.Status)
			assert.Equal(t, ActionDrop, result.Action)
			assert.Contains(t, result.Reasoning, tt.reason)
		})
	}
}

func TestEvaluateScoring(t *testing.T) {
	engine := testEngine(t, nil)

	// Two distinct keywords in the title: 2*20 = 40, clears the bar.
	accepted := engine.Evaluate(candidate("الحوثي يقصف عدن بصاروخ باليستي"))
	assert.Equal(t, StatusAccepted, accepted.Status)
	assert.Equal(t, ActionPublish, accepted.Action)
	assert.Equal(t, 40.0, accepted.Score)
	assert.Equal(t, 2, accepted.Tier)

	// One keyword: 20, inside the borderline band [15, 30).
	flagged := engine.Evaluate(candidate("اجتماع طارئ في صنعاء اليوم"))
	assert.Equal(t, StatusFlagged, flagged.Status)
	assert.Equal(t, ActionHold, flagged.Action)
	assert.Equal(t, 20.0, flagged.Score)

	// No keywords: below the flag floor.
	rejectedResult := engine.Evaluate(candidate("وصفة كيك الشوكولاته السريعه"))
	assert.Equal(t, StatusRejected, rejectedResult.Status)
	assert.Equal(t, ActionDrop, rejectedResult.Action)
	assert.Equal(t, 0.0, rejectedResult.Score)
}

func TestEvaluateDeterministic(t *testing.T) {
	engine := testEngine(t, nil)
	c := candidate("الحوثي يقصف عدن بصاروخ باليستي")

	first := engine.Evaluate(c)
	second := engine.Evaluate(c)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
}

func TestEvaluateTierAdjustment(t *testing.T) {
	engine := testEngine(t, func(cfg *Config) {
		cfg.SourceTiers = map[int64]int{10: 1, 30: 3}
	})

	// One keyword scores 20. Tier 1 lowers the accept bar to 20.
	c := candidate("اجتماع طارئ في صنعاء اليوم")
	c.SourceID = 10
	result := engine.Evaluate(c)
	assert.Equal(t, 1, result.Tier)
	assert.Equal(t, StatusAccepted, result.Status)

	// Tier 3 raises the flag floor to 25, so the same title drops.
	c.GUID = "other-guid"
	c.SourceID = 30
	result = engine.Evaluate(c)
	assert.Equal(t, 3, result.Tier)
	assert.Equal(t, StatusRejected, result.Status)
}

func TestEvaluateManualApprovalHold(t *testing.T) {
	engine := testEngine(t, nil)

	c := candidate("الحوثي يقصف عدن بصاروخ باليستي")
	c.AutoApprove = false
	result := engine.Evaluate(c)
	assert.Equal(t, StatusAccepted, result.Status)
	assert.Equal(t, ActionHold, result.Action, "accepted but held for manual review")
}

func TestEvaluateNearDuplicateMerges(t *testing.T) {
	engine := testEngine(t, nil)

	engine.Remember(7, Fingerprint("الأمم المتحدة تحذر من مجاعة وشيكة في اليمن"))

	// Same story, different orthography and punctuation.
	result := engine.Evaluate(candidate("الامم المتحده تحذر من مجاعة وشيكة في اليمن!"))
	assert.Equal(t, StatusMerged, result.Status)
	assert.Equal(t, ActionMerge, result.Action)
	assert.Equal(t, int64(7), result.MergeWithID)
}

func TestEvaluateBurstControl(t *testing.T) {
	engine := testEngine(t, func(cfg *Config) {
		cfg.BurstLimit = 3
	})

	titles := []string{
		"الحوثي يقصف عدن بصاروخ باليستي",
		"اشتباكات في محافظة عدن جنوبي اليمن",
		"قوات صنعاء تتقدم نحو محافظة مأرب",
		"الحوثي يعلن السيطرة على مواقع في محافظة الجوف",
	}

	var results []Result
	for i, title := range titles {
		c := candidate(title)
		c.GUID = fmt.Sprintf("burst-%d", i)
		results = append(results, engine.Evaluate(c))
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, StatusAccepted, results[i].Status, "item %d inside burst budget", i)
	}
	last := results[3]
	assert.Equal(t, StatusFlagged, last.Status)
	assert.Equal(t, ActionHold, last.Action)
	assert.Contains(t, last.Reasoning, "burst limit")
}

func TestRememberCapacityAndReset(t *testing.T) {
	engine := testEngine(t, func(cfg *Config) {
		cfg.FingerprintCapacity = 3
	})

	for i := 0; i < 5; i++ {
		engine.Remember(int64(i+1), Fingerprint(fmt.Sprintf("عنوان تجريبي رقم %d", i)))
	}
	assert.Equal(t, 3, engine.Stats().Fingerprints, "cache is capacity bounded")

	engine.Reset()
	stats := engine.Stats()
	assert.Zero(t, stats.Fingerprints)
	assert.Zero(t, stats.TrackedSources)
}
