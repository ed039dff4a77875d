package moderation

import (
	"context"
	"testing"

	"github.com/example/engagement-platform/internal/store"
)

var mod = store.Actor{ID: "mod-1", Moderator: true}

func seed(t *testing.T, cs *store.InMemoryCommentStore, status store.ModerationStatus) store.Comment {
	t.Helper()
	c, err := cs.Create(context.Background(), store.Comment{
		ContentID:  "c1",
		AuthorID:   "u1",
		Text:       "needs review",
		Visibility: store.VisibilityActive,
		Moderation: status,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return c
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to store.ModerationStatus
		want     bool
	}{
		{store.ModerationPending, store.ModerationApproved, true},
		{store.ModerationPending, store.ModerationRejected, true},
		{store.ModerationPending, store.ModerationFlagged, true},
		{store.ModerationFlagged, store.ModerationApproved, true},
		{store.ModerationFlagged, store.ModerationRejected, true},
		{store.ModerationFlagged, store.ModerationFlagged, false},
		{store.ModerationApproved, store.ModerationRejected, false},
		{store.ModerationRejected, store.ModerationApproved, false},
		{store.ModerationAutoApproved, store.ModerationApproved, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestModerateRequiresModerator(t *testing.T) {
	cs := store.NewInMemoryCommentStore()
	m := NewMachine(cs, nil)
	c := seed(t, cs, store.ModerationPending)

	_, err := m.Moderate(context.Background(), store.Actor{ID: "u2"}, c.ID, store.ModerationApproved, "")
	if !store.IsNotAuthorized(err) {
		t.Fatalf("plain user moderate: got %v, want not-authorized", err)
	}
	if _, _, err := m.PendingQueue(context.Background(), store.Actor{ID: "u2"}, store.Page{}); !store.IsNotAuthorized(err) {
		t.Fatalf("plain user queue: got %v, want not-authorized", err)
	}
}

func TestModerateApprovesPending(t *testing.T) {
	cs := store.NewInMemoryCommentStore()
	m := NewMachine(cs, nil)
	c := seed(t, cs, store.ModerationPending)

	got, err := m.Moderate(context.Background(), mod, c.ID, store.ModerationApproved, "looks fine")
	if err != nil {
		t.Fatalf("moderate: %v", err)
	}
	if got.Moderation != store.ModerationApproved {
		t.Fatalf("status = %s, want approved", got.Moderation)
	}
	if len(got.Audit) != 1 || got.Audit[0].Action != "moderate:approved" {
		t.Fatalf("audit = %+v, want one moderate:approved entry", got.Audit)
	}
}

func TestModerateDecidedCommentConflicts(t *testing.T) {
	cs := store.NewInMemoryCommentStore()
	m := NewMachine(cs, nil)
	c := seed(t, cs, store.ModerationPending)

	if _, err := m.Moderate(context.Background(), mod, c.ID, store.ModerationRejected, "spam"); err != nil {
		t.Fatalf("first decision: %v", err)
	}
	_, err := m.Moderate(context.Background(), mod, c.ID, store.ModerationApproved, "")
	if !store.IsConflict(err) {
		t.Fatalf("second decision: got %v, want conflict", err)
	}
}

func TestModerateRejectsNonDecisionStatus(t *testing.T) {
	cs := store.NewInMemoryCommentStore()
	m := NewMachine(cs, nil)
	c := seed(t, cs, store.ModerationPending)

	if _, err := m.Moderate(context.Background(), mod, c.ID, store.ModerationPending, ""); !store.IsValidation(err) {
		t.Fatalf("decision=pending: got %v, want validation error", err)
	}
}

func TestFlagPullsApprovedBackIntoReview(t *testing.T) {
	cs := store.NewInMemoryCommentStore()
	m := NewMachine(cs, nil)
	c := seed(t, cs, store.ModerationAutoApproved)
	ctx := context.Background()

	if _, err := m.Flag(ctx, store.Actor{ID: "u3"}, c.ID, ""); !store.IsValidation(err) {
		t.Fatalf("flag without reason: got %v, want validation error", err)
	}

	got, err := m.Flag(ctx, store.Actor{ID: "u3"}, c.ID, "offensive")
	if err != nil {
		t.Fatalf("flag: %v", err)
	}
	if got.Moderation != store.ModerationFlagged {
		t.Fatalf("status = %s, want flagged", got.Moderation)
	}

	// Flags accumulate: a second flag appends to the audit trail.
	again, err := m.Flag(ctx, store.Actor{ID: "u4"}, c.ID, "same thing")
	if err != nil {
		t.Fatalf("re-flag: %v", err)
	}
	if len(again.Audit) != 2 {
		t.Fatalf("audit after re-flag = %d entries, want 2", len(again.Audit))
	}

	queue, total, err := m.PendingQueue(ctx, mod, store.Page{})
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if total != 1 || queue[0].ID != c.ID {
		t.Fatalf("queue = %v (total %d), want the flagged comment", queue, total)
	}

	// A flagged comment can then be cleared by a moderator.
	cleared, err := m.Moderate(ctx, mod, c.ID, store.ModerationApproved, "reviewed")
	if err != nil {
		t.Fatalf("clear flag: %v", err)
	}
	if cleared.Moderation != store.ModerationApproved {
		t.Fatalf("status = %s, want approved", cleared.Moderation)
	}
}

func TestFlagDeletedComment(t *testing.T) {
	cs := store.NewInMemoryCommentStore()
	m := NewMachine(cs, nil)
	c := seed(t, cs, store.ModerationAutoApproved)
	ctx := context.Background()

	if err := cs.SoftDelete(ctx, c.ID, "u1", false); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Flag(ctx, store.Actor{ID: "u3"}, c.ID, "bad"); !store.IsNotFound(err) {
		t.Fatalf("flag deleted: got %v, want not-found", err)
	}
	if _, err := m.Moderate(ctx, mod, c.ID, store.ModerationRejected, "x"); !store.IsNotFound(err) {
		t.Fatalf("moderate deleted: got %v, want not-found", err)
	}
}
