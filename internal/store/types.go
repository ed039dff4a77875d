// Package store is the engagement record store: durable persistence for
// comment and reaction rows with indexed lookup by content, parent, actor
// and time window. Two implementations exist, in-memory (development and
// tests) and Postgres.
package store

import "time"

// VisibilityStatus is the lifecycle flag of a comment.
type VisibilityStatus string

const (
	VisibilityActive  VisibilityStatus = "active"
	VisibilityDeleted VisibilityStatus = "deleted"
)

// ModerationStatus is the moderation lifecycle state of a comment.
type ModerationStatus string

const (
	ModerationPending      ModerationStatus = "pending"
	ModerationApproved     ModerationStatus = "approved"
	ModerationRejected     ModerationStatus = "rejected"
	ModerationFlagged      ModerationStatus = "flagged"
	ModerationAutoApproved ModerationStatus = "auto_approved"
)

// Approved reports whether the status makes a comment publicly visible.
func (s ModerationStatus) Approved() bool {
	return s == ModerationApproved || s == ModerationAutoApproved
}

// EditEntry is one append-only record of a comment edit.
type EditEntry struct {
	At     time.Time `json:"at"`
	Reason string    `json:"reason,omitempty"`
}

// AuditEntry is one append-only record of a moderation action or flag.
type AuditEntry struct {
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// Comment is a single comment row. ParentID == nil means a top-level
// comment; children are always derived by querying rows whose parent_id
// equals this id, never held as an embedded list.
type Comment struct {
	ID        string  `json:"id"`
	ContentID string  `json:"content_id"`
	AuthorID  string  `json:"author_id"`
	ParentID  *string `json:"parent_id,omitempty"`

	Text      string   `json:"text"`
	Mentions  []string `json:"mentions,omitempty"`
	Hashtags  []string `json:"hashtags,omitempty"`
	MediaRefs []string `json:"media_refs,omitempty"`

	// Opaque caller-supplied classification, used only as grouping keys.
	CohortLevel  int      `json:"cohort_level"`
	CulturalTags []string `json:"cultural_tags,omitempty"`

	// Externally supplied sentiment score, if any. Never computed here.
	Sentiment *float64 `json:"sentiment,omitempty"`

	// Derived counters, repaired from live counts, never the source of truth.
	ReplyCount int `json:"reply_count"`
	LikeCount  int `json:"like_count"`

	Visibility VisibilityStatus `json:"visibility"`
	Moderation ModerationStatus `json:"moderation"`

	IsEdited    bool        `json:"is_edited"`
	EditCount   int         `json:"edit_count"`
	EditHistory []EditEntry `json:"edit_history,omitempty"`

	Audit []AuditEntry `json:"audit,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Reaction is a single reaction row. At most one live row exists per
// (content_id, actor_id) pair; re-reacting replaces the row in place.
type Reaction struct {
	ID        string `json:"id"`
	ContentID string `json:"content_id"`
	ActorID   string `json:"actor_id"`

	Type      ReactionType `json:"type"`
	Intensity int          `json:"intensity"`

	CohortLevel  int      `json:"cohort_level"`
	CulturalTags []string `json:"cultural_tags,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Actor identifies the caller of an operation. Moderator grants the
// moderation capability checked by mutation paths and queue reads.
type Actor struct {
	ID        string
	Moderator bool
}

// VisibleTo reports whether the comment appears on content-facing read paths
// for the given viewer. The author and moderators also see their pending or
// flagged comments; deleted comments appear to no one.
func (c Comment) VisibleTo(v Actor) bool {
	if c.Visibility == VisibilityDeleted {
		return false
	}
	if c.Moderation.Approved() {
		return true
	}
	return v.Moderator || (v.ID != "" && v.ID == c.AuthorID)
}

// Page is 1-based offset pagination with a stable most-recent-first sort.
type Page struct {
	Num  int
	Size int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (p Page) Limit() int {
	if p.Size <= 0 || p.Size > maxPageSize {
		return defaultPageSize
	}
	return p.Size
}

func (p Page) Offset() int {
	if p.Num <= 1 {
		return 0
	}
	return (p.Num - 1) * p.Limit()
}
