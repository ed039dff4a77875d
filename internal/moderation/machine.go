// Package moderation implements the comment review workflow. Moderation
// status moves along a fixed state machine; every transition is recorded
// in the comment's audit trail.
package moderation

import (
	"context"
	"strings"
	"time"

	"github.com/example/engagement-platform/internal/platform/events"
	"github.com/example/engagement-platform/internal/reactions"
	"github.com/example/engagement-platform/internal/store"
)

// transitions maps each status to the statuses a moderator may move it to.
// AutoApproved is terminal for the review workflow; flagging is a separate
// path open from any live state.
var transitions = map[store.ModerationStatus][]store.ModerationStatus{
	store.ModerationPending: {
		store.ModerationApproved,
		store.ModerationRejected,
		store.ModerationFlagged,
	},
	store.ModerationFlagged: {
		store.ModerationApproved,
		store.ModerationRejected,
	},
}

// CanTransition reports whether a moderator decision may move a comment
// from one status to another.
func CanTransition(from, to store.ModerationStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Machine applies moderation decisions and community flags to comments.
type Machine struct {
	comments store.CommentStore
	pub      *events.Publisher
	inval    reactions.SummaryInvalidator
}

func NewMachine(cs store.CommentStore, pub *events.Publisher) *Machine {
	return &Machine{comments: cs, pub: pub}
}

// SetInvalidator wires the aggregate cache invalidation hook.
func (m *Machine) SetInvalidator(inv reactions.SummaryInvalidator) { m.inval = inv }

// Moderate applies a moderator decision on a pending or flagged comment.
// Illegal transitions fail with a Conflict so racing moderators see that
// the comment was already decided.
func (m *Machine) Moderate(ctx context.Context, actor store.Actor, id string, to store.ModerationStatus, reason string) (store.Comment, error) {
	if !actor.Moderator {
		return store.Comment{}, store.NotAuthorized("moderation requires the moderator role")
	}
	switch to {
	case store.ModerationApproved, store.ModerationRejected, store.ModerationFlagged:
	default:
		return store.Comment{}, store.Invalid("status", "%q is not a moderation decision", to)
	}

	c, err := m.comments.Get(ctx, id)
	if err != nil {
		return store.Comment{}, err
	}
	if c.Visibility == store.VisibilityDeleted {
		return store.Comment{}, store.NotFound("comment %s not found", id)
	}
	if !CanTransition(c.Moderation, to) {
		return store.Comment{}, store.Conflict("comment is %s, cannot move to %s", c.Moderation, to)
	}

	err = m.comments.SetModeration(ctx, id, to, store.AuditEntry{
		Actor:  actor.ID,
		Action: "moderate:" + string(to),
		Reason: strings.TrimSpace(reason),
		At:     time.Now().UTC(),
	})
	if err != nil {
		return store.Comment{}, err
	}

	m.invalidate(ctx, c.ContentID)
	m.pub.Publish(events.SubjectCommentModerated, actor.ID, map[string]any{
		"comment_id": id,
		"content_id": c.ContentID,
		"from":       string(c.Moderation),
		"to":         string(to),
	})
	return m.comments.Get(ctx, id)
}

// Flag reports a comment for review. Any authenticated actor may flag,
// whatever the current status: flagging pulls even an approved comment back
// into the review queue, and repeated flags accumulate in the audit trail.
func (m *Machine) Flag(ctx context.Context, actor store.Actor, id, reason string) (store.Comment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return store.Comment{}, store.Invalid("reason", "a flag requires a reason")
	}

	c, err := m.comments.Get(ctx, id)
	if err != nil {
		return store.Comment{}, err
	}
	if c.Visibility == store.VisibilityDeleted {
		return store.Comment{}, store.NotFound("comment %s not found", id)
	}

	err = m.comments.SetModeration(ctx, id, store.ModerationFlagged, store.AuditEntry{
		Actor:  actor.ID,
		Action: "flag",
		Reason: reason,
		At:     time.Now().UTC(),
	})
	if err != nil {
		return store.Comment{}, err
	}

	m.invalidate(ctx, c.ContentID)
	m.pub.Publish(events.SubjectCommentFlagged, actor.ID, map[string]any{
		"comment_id": id,
		"content_id": c.ContentID,
		"reason":     reason,
	})
	return m.comments.Get(ctx, id)
}

// PendingQueue lists comments awaiting review, oldest first.
func (m *Machine) PendingQueue(ctx context.Context, actor store.Actor, p store.Page) ([]store.Comment, int, error) {
	if !actor.Moderator {
		return nil, 0, store.NotAuthorized("the review queue requires the moderator role")
	}
	return m.comments.PendingModeration(ctx, p)
}

func (m *Machine) invalidate(ctx context.Context, contentID string) {
	if m.inval != nil {
		m.inval.Invalidate(ctx, contentID)
	}
}
