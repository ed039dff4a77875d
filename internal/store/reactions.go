package store

import (
	"context"
	"time"
)

// Breakdown is the raw multi-dimensional aggregate over the live reactions
// of one content id. Percentages and means are derived by the caller.
type Breakdown struct {
	Total          int
	DistinctActors int
	IntensitySum   int
	ByType         map[ReactionType]int
	ByIntensity    map[int]int
	ByCohort       map[int]int
	ByCulturalTag  map[string]int
}

// TypeCount is the frequency of one reaction type with its most recent
// occurrence for trend tie-breaking.
type TypeCount struct {
	Type     ReactionType `json:"type"`
	Count    int          `json:"count"`
	LastSeen time.Time    `json:"last_seen"`
}

// ReactionStore is the persistence contract for reactions.
//
// Upsert is atomic with respect to the (content_id, actor_id) uniqueness
// constraint: concurrent upserts for the same pair serialize to a single
// surviving row. Removal is a hard delete; reactions carry no audit
// requirement.
type ReactionStore interface {
	// Upsert inserts the reaction, or replaces the live row for the same
	// (content_id, actor_id) pair in place (same id, updated type,
	// intensity, tags and timestamp).
	Upsert(ctx context.Context, r Reaction) (Reaction, error)

	// Remove hard-deletes the reaction when actorID owns it, returning the
	// removed row.
	Remove(ctx context.Context, id, actorID string) (Reaction, error)

	Get(ctx context.Context, id string) (Reaction, error)

	// ForPair fetches the live reaction of actorID on contentID.
	ForPair(ctx context.Context, contentID, actorID string) (Reaction, error)

	// ForContent lists reactions on a content id, most recent first.
	ForContent(ctx context.Context, contentID string, p Page) ([]Reaction, int, error)

	// Breakdown aggregates the live reactions of one content id.
	Breakdown(ctx context.Context, contentID string) (Breakdown, error)

	// CountForContent is the live reaction count for a content id, used for
	// like-count repair.
	CountForContent(ctx context.Context, contentID string) (int, error)

	// TypeCounts aggregates reaction-type frequency at or after since,
	// optionally scoped to one cohort level.
	TypeCounts(ctx context.Context, cohort *int, since time.Time) ([]TypeCount, error)
}
