package store

import (
	"context"
	"time"
)

// CommentUpdate carries the author-mutable fields of a comment. Nil fields
// are left untouched.
type CommentUpdate struct {
	Text       *string
	Mentions   *[]string
	Hashtags   *[]string
	MediaRefs  *[]string
	EditReason string
}

// ContentCounts are the raw inputs of commentStatistics for one content id.
type ContentCounts struct {
	TotalComments int
	TotalReplies  int
	SentimentSum  float64
	SentimentN    int
}

// TagCount is the frequency of one hashtag or mention token, with the most
// recent occurrence for trend tie-breaking.
type TagCount struct {
	Tag      string    `json:"tag"`
	Count    int       `json:"count"`
	LastSeen time.Time `json:"last_seen"`
}

// CommentStore is the persistence contract for the comment tree.
//
// Mutations are atomic end-to-end: a comment insert and its parent's reply
// count bump commit together or not at all. Same-row mutations serialize
// (row lock in Postgres, store mutex in memory). List reads apply the
// viewer's visibility and sort by creation time descending, id descending.
// List rows omit edit history and audit; Get hydrates them.
type CommentStore interface {
	// Create inserts a comment. When ParentID is set the parent must exist,
	// be non-deleted and belong to the same content id; the parent's reply
	// count is incremented in the same transaction.
	Create(ctx context.Context, c Comment) (Comment, error)

	// Get fetches a comment by id regardless of visibility (audit read).
	Get(ctx context.Context, id string) (Comment, error)

	// Update applies upd when actorID is the author, marks the comment
	// edited and appends one edit history entry. The returned comment
	// carries the full edit history, same as Get.
	Update(ctx context.Context, id, actorID string, upd CommentUpdate) (Comment, error)

	// SoftDelete marks the comment deleted and decrements the parent's
	// reply count. The parent edge is preserved; descendants stay addressable.
	SoftDelete(ctx context.Context, id, actorID string, moderator bool) error

	// Replies lists the live direct replies of parentID visible to v.
	Replies(ctx context.Context, parentID string, v Actor, p Page) ([]Comment, int, error)

	// ByContent lists the top-level comments of a content id visible to v.
	ByContent(ctx context.Context, contentID string, v Actor, p Page) ([]Comment, int, error)

	// SetModeration transitions the moderation status and appends the audit
	// entry atomically. Transition legality is the caller's concern.
	SetModeration(ctx context.Context, id string, st ModerationStatus, entry AuditEntry) error

	// PendingModeration lists live comments awaiting review (pending or
	// flagged), oldest first.
	PendingModeration(ctx context.Context, p Page) ([]Comment, int, error)

	// RecountReplies repairs the cached reply count from a live count of
	// non-deleted children and returns the repaired value.
	RecountReplies(ctx context.Context, id string) (int, error)

	// SetLikeCount writes a like count observed from live reaction rows.
	SetLikeCount(ctx context.Context, id string, n int) error

	// SearchText lists visible comments whose text contains query,
	// case-insensitively, optionally scoped to a content id.
	SearchText(ctx context.Context, contentID, query string, v Actor, p Page) ([]Comment, int, error)

	// ByHashtag lists visible comments carrying the normalized tag.
	ByHashtag(ctx context.Context, tag string, v Actor, p Page) ([]Comment, int, error)

	// HashtagCounts aggregates hashtag frequency over live approved comments
	// created at or after since.
	HashtagCounts(ctx context.Context, since time.Time) ([]TagCount, error)

	// ContentCounts aggregates comment totals for one content id.
	ContentCounts(ctx context.Context, contentID string) (ContentCounts, error)

	// TagActivity aggregates hashtag and mention frequency for one content
	// id within the trailing window starting at since.
	TagActivity(ctx context.Context, contentID string, since time.Time) (hashtags, mentions []TagCount, err error)
}
