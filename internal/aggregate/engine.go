// Package aggregate derives read-side analytics from live comment and
// reaction rows: reaction summaries with percentage breakdowns, trending
// tags and types, and per-content comment statistics. Summaries read
// committed rows only; in-flight writes surface on the next read.
package aggregate

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/example/engagement-platform/internal/platform/cache"
	"github.com/example/engagement-platform/internal/store"
)

const (
	// statsWindow is the trailing window of commentStatistics tag activity.
	statsWindow = 30 * 24 * time.Hour
	// defaultTrendWindow bounds trending queries when no window is given.
	defaultTrendWindow = 7 * 24 * time.Hour
	defaultTrendLimit  = 10
	maxTrendLimit      = 50
)

// Slice is one bucket of a distribution.
type Slice struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Summary is the full reaction aggregate of one content id. The breakdown
// portion is viewer-independent and cacheable; ViewerReaction is attached
// per request.
type Summary struct {
	ContentID      string                         `json:"content_id"`
	Total          int                            `json:"total"`
	DistinctActors int                            `json:"distinct_actors"`
	MeanIntensity  float64                        `json:"mean_intensity"`
	ByType         map[store.ReactionType]Slice   `json:"by_type"`
	ByIntensity    map[int]Slice                  `json:"by_intensity"`
	ByCohort       map[int]Slice                  `json:"by_cohort"`
	ByCulturalTag  map[string]Slice               `json:"by_cultural_tag"`
	GeneratedAt    time.Time                      `json:"generated_at"`
	ViewerReaction *store.Reaction                `json:"viewer_reaction,omitempty"`
}

// Statistics is the comment aggregate of one content id. Tag and mention
// activity covers the trailing 30 days; totals cover all live comments.
type Statistics struct {
	ContentID     string           `json:"content_id"`
	TotalComments int              `json:"total_comments"`
	TotalReplies  int              `json:"total_replies"`
	MeanSentiment float64          `json:"mean_sentiment"`
	TopHashtags   []store.TagCount `json:"top_hashtags"`
	TopMentions   []store.TagCount `json:"top_mentions"`
	WindowStart   time.Time        `json:"window_start"`
}

// Engine computes aggregates, optionally caching reaction summaries in
// Redis. It implements the SummaryInvalidator hook the write paths call.
type Engine struct {
	reactions store.ReactionStore
	comments  store.CommentStore
	cache     *cache.RedisCache
}

func New(rs store.ReactionStore, cs store.CommentStore, c *cache.RedisCache) *Engine {
	return &Engine{reactions: rs, comments: cs, cache: c}
}

func summaryKey(contentID string) string { return "engagement:summary:" + contentID }

// Invalidate drops the cached summary for a content id.
func (e *Engine) Invalidate(ctx context.Context, contentID string) {
	_ = e.cache.Delete(ctx, summaryKey(contentID))
}

// ReactionSummary builds the reaction aggregate for one content id. The
// viewer-independent breakdown is served read-through from Redis; a cache
// failure falls back to the store.
func (e *Engine) ReactionSummary(ctx context.Context, viewer store.Actor, contentID string) (Summary, error) {
	var s Summary
	hit, err := e.cache.Get(ctx, summaryKey(contentID), &s)
	if err != nil || !hit {
		b, err := e.reactions.Breakdown(ctx, contentID)
		if err != nil {
			return Summary{}, err
		}
		s = summarize(contentID, b)
		_ = e.cache.Set(ctx, summaryKey(contentID), s)
	}

	if viewer.ID != "" {
		if r, err := e.reactions.ForPair(ctx, contentID, viewer.ID); err == nil {
			s.ViewerReaction = &r
		} else if !store.IsNotFound(err) {
			return Summary{}, err
		}
	}
	return s, nil
}

func summarize(contentID string, b store.Breakdown) Summary {
	s := Summary{
		ContentID:      contentID,
		Total:          b.Total,
		DistinctActors: b.DistinctActors,
		MeanIntensity:  mean(b.IntensitySum, b.Total),
		ByType:         make(map[store.ReactionType]Slice, len(b.ByType)),
		ByIntensity:    make(map[int]Slice, len(b.ByIntensity)),
		ByCohort:       make(map[int]Slice, len(b.ByCohort)),
		ByCulturalTag:  make(map[string]Slice, len(b.ByCulturalTag)),
		GeneratedAt:    time.Now().UTC(),
	}
	for k, n := range b.ByType {
		s.ByType[k] = Slice{Count: n, Percentage: pct(n, b.Total)}
	}
	for k, n := range b.ByIntensity {
		s.ByIntensity[k] = Slice{Count: n, Percentage: pct(n, b.Total)}
	}
	for k, n := range b.ByCohort {
		s.ByCohort[k] = Slice{Count: n, Percentage: pct(n, b.Total)}
	}
	for k, n := range b.ByCulturalTag {
		s.ByCulturalTag[k] = Slice{Count: n, Percentage: pct(n, b.Total)}
	}
	return s
}

// IntensityProfile describes how strongly actors react to one content id.
type IntensityProfile struct {
	ContentID     string        `json:"content_id"`
	Total         int           `json:"total"`
	MeanIntensity float64       `json:"mean_intensity"`
	ByIntensity   map[int]Slice `json:"by_intensity"`
	HighShare     float64       `json:"high_share"`
}

// IntensityAnalysis breaks live reactions on a content id down by intensity
// level. HighShare is the percentage of reactions at intensity 4 or above.
func (e *Engine) IntensityAnalysis(ctx context.Context, contentID string) (IntensityProfile, error) {
	b, err := e.reactions.Breakdown(ctx, contentID)
	if err != nil {
		return IntensityProfile{}, err
	}
	p := IntensityProfile{
		ContentID:     contentID,
		Total:         b.Total,
		MeanIntensity: mean(b.IntensitySum, b.Total),
		ByIntensity:   make(map[int]Slice, len(b.ByIntensity)),
	}
	high := 0
	for level, n := range b.ByIntensity {
		p.ByIntensity[level] = Slice{Count: n, Percentage: pct(n, b.Total)}
		if level >= 4 {
			high += n
		}
	}
	p.HighShare = pct(high, b.Total)
	return p, nil
}

// TrendingHashtags ranks hashtags used on live approved comments within
// the window, highest count first, ties broken by most recent use.
func (e *Engine) TrendingHashtags(ctx context.Context, window time.Duration, limit int) ([]store.TagCount, error) {
	counts, err := e.comments.HashtagCounts(ctx, windowStart(window))
	if err != nil {
		return nil, err
	}
	sortTags(counts)
	return clipTags(counts, limit), nil
}

// TrendingReactions ranks reaction types used within the window, optionally
// scoped to one cohort level.
func (e *Engine) TrendingReactions(ctx context.Context, cohort *int, window time.Duration, limit int) ([]store.TypeCount, error) {
	counts, err := e.reactions.TypeCounts(ctx, cohort, windowStart(window))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		if !counts[i].LastSeen.Equal(counts[j].LastSeen) {
			return counts[i].LastSeen.After(counts[j].LastSeen)
		}
		return counts[i].Type < counts[j].Type
	})
	if lim := trendLimit(limit); len(counts) > lim {
		counts = counts[:lim]
	}
	return counts, nil
}

// CommentStatistics aggregates comment totals and the trailing 30 days of
// tag and mention activity for one content id.
func (e *Engine) CommentStatistics(ctx context.Context, contentID string) (Statistics, error) {
	totals, err := e.comments.ContentCounts(ctx, contentID)
	if err != nil {
		return Statistics{}, err
	}
	since := time.Now().UTC().Add(-statsWindow)
	hashtags, mentions, err := e.comments.TagActivity(ctx, contentID, since)
	if err != nil {
		return Statistics{}, err
	}
	sortTags(hashtags)
	sortTags(mentions)

	return Statistics{
		ContentID:     contentID,
		TotalComments: totals.TotalComments,
		TotalReplies:  totals.TotalReplies,
		MeanSentiment: meanf(totals.SentimentSum, totals.SentimentN),
		TopHashtags:   clipTags(hashtags, defaultTrendLimit),
		TopMentions:   clipTags(mentions, defaultTrendLimit),
		WindowStart:   since,
	}, nil
}

func sortTags(tags []store.TagCount) {
	sort.SliceStable(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		if !tags[i].LastSeen.Equal(tags[j].LastSeen) {
			return tags[i].LastSeen.After(tags[j].LastSeen)
		}
		return tags[i].Tag < tags[j].Tag
	})
}

func clipTags(tags []store.TagCount, limit int) []store.TagCount {
	if lim := trendLimit(limit); len(tags) > lim {
		return tags[:lim]
	}
	return tags
}

func trendLimit(limit int) int {
	if limit <= 0 || limit > maxTrendLimit {
		return defaultTrendLimit
	}
	return limit
}

func windowStart(window time.Duration) time.Time {
	if window <= 0 {
		window = defaultTrendWindow
	}
	return time.Now().UTC().Add(-window)
}

// pct is the share of count over total as a percentage rounded to two
// decimal places. An empty denominator yields zero, never NaN.
func pct(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*10000) / 100
}

func mean(sum, n int) float64 {
	if n == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(n)*100) / 100
}

func meanf(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return math.Round(sum/float64(n)*100) / 100
}
