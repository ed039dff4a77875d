// Package comments implements the threaded comment tree: creation with
// parent bookkeeping, author edits with history, soft deletion and the
// like toggle backed by live reaction rows.
package comments

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/example/engagement-platform/internal/platform/events"
	"github.com/example/engagement-platform/internal/reactions"
	"github.com/example/engagement-platform/internal/store"
)

const maxTextLen = 2000

// ReactionService is the slice of the reaction engine the like toggle
// needs. *reactions.Engine satisfies it.
type ReactionService interface {
	React(ctx context.Context, actor store.Actor, in reactions.Input) (store.Reaction, error)
	ForPair(ctx context.Context, contentID, actorID string) (store.Reaction, error)
	RemovePair(ctx context.Context, actor store.Actor, contentID string) (bool, error)
	LiveCount(ctx context.Context, contentID string) (int, error)
}

// Manager coordinates comment mutations and reads over a CommentStore.
type Manager struct {
	comments  store.CommentStore
	reactions ReactionService
	pub       *events.Publisher
	inval     reactions.SummaryInvalidator

	// prescreen holds new comments in Pending until a moderator reviews
	// them; otherwise comments go live as AutoApproved.
	prescreen bool
}

func NewManager(cs store.CommentStore, rs ReactionService, pub *events.Publisher, prescreen bool) *Manager {
	return &Manager{comments: cs, reactions: rs, pub: pub, prescreen: prescreen}
}

// SetInvalidator wires the aggregate cache invalidation hook.
func (m *Manager) SetInvalidator(inv reactions.SummaryInvalidator) { m.inval = inv }

// Input carries the author-supplied fields of a new comment.
type Input struct {
	ContentID    string
	ParentID     *string
	Text         string
	Mentions     []string
	Hashtags     []string
	MediaRefs    []string
	CohortLevel  int
	CulturalTags []string
	Sentiment    *float64
}

// Create validates and inserts a comment. Replies are validated against the
// parent inside the store transaction so the parent's reply count cannot
// drift from its children.
func (m *Manager) Create(ctx context.Context, actor store.Actor, in Input) (store.Comment, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return store.Comment{}, store.Invalid("text", "comment text is required")
	}
	if utf8.RuneCountInString(text) > maxTextLen {
		return store.Comment{}, store.Invalid("text", "comment text exceeds %d characters", maxTextLen)
	}
	if strings.TrimSpace(in.ContentID) == "" {
		return store.Comment{}, store.Invalid("content_id", "content id is required")
	}
	if in.ParentID != nil && strings.TrimSpace(*in.ParentID) == "" {
		return store.Comment{}, store.Invalid("parent_id", "parent id must not be blank")
	}
	if in.Sentiment != nil && (*in.Sentiment < -1 || *in.Sentiment > 1) {
		return store.Comment{}, store.Invalid("sentiment", "sentiment must be within [-1, 1]")
	}

	moderation := store.ModerationAutoApproved
	if m.prescreen {
		moderation = store.ModerationPending
	}

	c, err := m.comments.Create(ctx, store.Comment{
		ContentID:    in.ContentID,
		AuthorID:     actor.ID,
		ParentID:     in.ParentID,
		Text:         text,
		Mentions:     dedupe(in.Mentions),
		Hashtags:     NormalizeHashtags(in.Hashtags),
		MediaRefs:    dedupe(in.MediaRefs),
		CohortLevel:  in.CohortLevel,
		CulturalTags: dedupe(in.CulturalTags),
		Sentiment:    in.Sentiment,
		Visibility:   VisibilityDefault,
		Moderation:   moderation,
	})
	if err != nil {
		return store.Comment{}, err
	}

	m.invalidate(ctx, c.ContentID)
	props := map[string]any{"comment_id": c.ID, "content_id": c.ContentID}
	if c.ParentID != nil {
		props["parent_id"] = *c.ParentID
	}
	m.pub.Publish(events.SubjectCommentCreated, actor.ID, props)
	return c, nil
}

// VisibilityDefault is the state of every freshly created comment.
const VisibilityDefault = store.VisibilityActive

// Get fetches one comment for a viewer. Deleted comments stay addressable
// so threads can render tombstones for orphaned parents; unapproved
// comments are hidden from everyone but the author and moderators.
func (m *Manager) Get(ctx context.Context, viewer store.Actor, id string) (store.Comment, error) {
	c, err := m.comments.Get(ctx, id)
	if err != nil {
		return store.Comment{}, err
	}
	if c.Visibility != store.VisibilityDeleted && !c.VisibleTo(viewer) {
		return store.Comment{}, store.NotFound("comment %s not found", id)
	}
	return c, nil
}

// Update applies an author edit, recording one edit history entry per call.
func (m *Manager) Update(ctx context.Context, actor store.Actor, id string, upd store.CommentUpdate) (store.Comment, error) {
	if upd.Text != nil {
		text := strings.TrimSpace(*upd.Text)
		if text == "" {
			return store.Comment{}, store.Invalid("text", "comment text is required")
		}
		if utf8.RuneCountInString(text) > maxTextLen {
			return store.Comment{}, store.Invalid("text", "comment text exceeds %d characters", maxTextLen)
		}
		upd.Text = &text
	}
	if upd.Hashtags != nil {
		tags := NormalizeHashtags(*upd.Hashtags)
		upd.Hashtags = &tags
	}

	c, err := m.comments.Update(ctx, id, actor.ID, upd)
	if err != nil {
		return store.Comment{}, err
	}

	m.invalidate(ctx, c.ContentID)
	m.pub.Publish(events.SubjectCommentUpdated, actor.ID, map[string]any{
		"comment_id": c.ID,
		"content_id": c.ContentID,
		"edit_count": c.EditCount,
	})
	return c, nil
}

// Delete soft-deletes a comment on behalf of its author or a moderator.
// Children keep their parent edge and remain readable.
func (m *Manager) Delete(ctx context.Context, actor store.Actor, id string) error {
	c, err := m.comments.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := m.comments.SoftDelete(ctx, id, actor.ID, actor.Moderator); err != nil {
		return err
	}

	m.invalidate(ctx, c.ContentID)
	props := map[string]any{"comment_id": c.ID, "content_id": c.ContentID}
	if c.ParentID != nil {
		props["parent_id"] = *c.ParentID
	}
	m.pub.Publish(events.SubjectCommentDeleted, actor.ID, props)
	return nil
}

// ByContent pages the top-level comments of a content id, newest first.
func (m *Manager) ByContent(ctx context.Context, viewer store.Actor, contentID string, p store.Page) ([]store.Comment, int, error) {
	return m.comments.ByContent(ctx, contentID, viewer, p)
}

// Replies pages the direct replies of a comment, newest first.
func (m *Manager) Replies(ctx context.Context, viewer store.Actor, parentID string, p store.Page) ([]store.Comment, int, error) {
	return m.comments.Replies(ctx, parentID, viewer, p)
}

// Thread is a comment together with one page of its direct replies.
type Thread struct {
	Comment      store.Comment   `json:"comment"`
	Replies      []store.Comment `json:"replies"`
	TotalReplies int             `json:"total_replies"`
}

// Thread fetches a comment and one level of replies. Deeper levels are
// fetched per node through Replies.
func (m *Manager) Thread(ctx context.Context, viewer store.Actor, id string, p store.Page) (Thread, error) {
	c, err := m.Get(ctx, viewer, id)
	if err != nil {
		return Thread{}, err
	}
	replies, total, err := m.comments.Replies(ctx, id, viewer, p)
	if err != nil {
		return Thread{}, err
	}
	return Thread{Comment: c, Replies: replies, TotalReplies: total}, nil
}

// LikeToggle likes the comment when the actor has no live LIKE on it and
// unlikes otherwise. A different live reaction type is replaced by the
// like.
func (m *Manager) LikeToggle(ctx context.Context, actor store.Actor, id string) (liked bool, likeCount int, err error) {
	existing, err := m.reactions.ForPair(ctx, id, actor.ID)
	if err != nil && !store.IsNotFound(err) {
		return false, 0, err
	}
	want := err != nil || existing.Type != store.ReactionLike
	return m.SetLike(ctx, actor, id, want)
}

// SetLike sets or clears the actor's like on a comment. The returned count
// is repaired from live reaction rows rather than adjusted by a delta, so a
// drifted cache self-heals on every call.
func (m *Manager) SetLike(ctx context.Context, actor store.Actor, id string, like bool) (liked bool, likeCount int, err error) {
	c, err := m.comments.Get(ctx, id)
	if err != nil {
		return false, 0, err
	}
	if c.Visibility == store.VisibilityDeleted {
		return false, 0, store.NotFound("comment %s not found", id)
	}

	if like {
		if _, err := m.reactions.React(ctx, actor, reactions.Input{
			ContentID: id,
			Type:      store.ReactionLike,
			Intensity: store.MinIntensity,
		}); err != nil {
			return false, 0, err
		}
		liked = true
	} else {
		if _, err := m.reactions.RemovePair(ctx, actor, id); err != nil {
			return false, 0, err
		}
	}

	likeCount, err = m.reactions.LiveCount(ctx, id)
	if err != nil {
		return false, 0, err
	}
	if err := m.comments.SetLikeCount(ctx, id, likeCount); err != nil {
		return false, 0, err
	}
	m.invalidate(ctx, c.ContentID)
	return liked, likeCount, nil
}

// RecountReplies repairs the cached reply count of a comment from its live
// children. Used by the repair worker after delete events.
func (m *Manager) RecountReplies(ctx context.Context, id string) (int, error) {
	return m.comments.RecountReplies(ctx, id)
}

// RepairLikeCount rewrites the cached like count from live reaction rows.
func (m *Manager) RepairLikeCount(ctx context.Context, id string) (int, error) {
	n, err := m.reactions.LiveCount(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := m.comments.SetLikeCount(ctx, id, n); err != nil {
		return 0, err
	}
	return n, nil
}

func (m *Manager) invalidate(ctx context.Context, contentID string) {
	if m.inval != nil {
		m.inval.Invalidate(ctx, contentID)
	}
}

// NormalizeHashtags lowercases tags, strips a leading '#' and drops blanks
// and duplicates, preserving first-seen order.
func NormalizeHashtags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		t = strings.TrimPrefix(t, "#")
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
