package comments

import (
	"context"
	"reflect"
	"testing"

	"github.com/example/engagement-platform/internal/reactions"
	"github.com/example/engagement-platform/internal/store"
)

func newTestManager(prescreen bool) (*Manager, *store.InMemoryCommentStore) {
	cs := store.NewInMemoryCommentStore()
	eng := reactions.New(store.NewInMemoryReactionStore(), nil)
	return NewManager(cs, eng, nil, prescreen), cs
}

func TestCreateValidation(t *testing.T) {
	m, _ := newTestManager(false)
	actor := store.Actor{ID: "u1"}

	cases := []struct {
		name  string
		in    Input
		field string
	}{
		{"empty text", Input{ContentID: "c1", Text: "   "}, "text"},
		{"missing content", Input{Text: "hello"}, "content_id"},
		{"blank parent", Input{ContentID: "c1", Text: "hello", ParentID: ptr("")}, "parent_id"},
	}
	for _, tc := range cases {
		_, err := m.Create(context.Background(), actor, tc.in)
		if !store.IsValidation(err) {
			t.Fatalf("%s: got %v, want validation error", tc.name, err)
		}
	}

	long := make([]rune, maxTextLen+1)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := m.Create(context.Background(), actor, Input{ContentID: "c1", Text: string(long)}); !store.IsValidation(err) {
		t.Fatalf("overlong text: got %v, want validation error", err)
	}
}

func TestCreateNormalizesHashtags(t *testing.T) {
	m, _ := newTestManager(false)

	c, err := m.Create(context.Background(), store.Actor{ID: "u1"}, Input{
		ContentID: "c1",
		Text:      "great recipe",
		Hashtags:  []string{"#Cooking", "cooking", "  #FAMILY ", ""},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	want := []string{"cooking", "family"}
	if !reflect.DeepEqual(c.Hashtags, want) {
		t.Fatalf("hashtags = %v, want %v", c.Hashtags, want)
	}
	if c.Moderation != store.ModerationAutoApproved {
		t.Fatalf("moderation = %s, want auto_approved", c.Moderation)
	}
}

func TestCreatePrescreenHoldsPending(t *testing.T) {
	m, _ := newTestManager(true)

	c, err := m.Create(context.Background(), store.Actor{ID: "u1"}, Input{ContentID: "c1", Text: "hi"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Moderation != store.ModerationPending {
		t.Fatalf("moderation = %s, want pending", c.Moderation)
	}

	// Pending comments are invisible to other users but not the author.
	if _, err := m.Get(context.Background(), store.Actor{ID: "u2"}, c.ID); !store.IsNotFound(err) {
		t.Fatalf("stranger get: got %v, want not-found", err)
	}
	if _, err := m.Get(context.Background(), store.Actor{ID: "u1"}, c.ID); err != nil {
		t.Fatalf("author get: %v", err)
	}
	if _, err := m.Get(context.Background(), store.Actor{ID: "mod", Moderator: true}, c.ID); err != nil {
		t.Fatalf("moderator get: %v", err)
	}
}

func TestReplyBookkeeping(t *testing.T) {
	m, _ := newTestManager(false)
	ctx := context.Background()
	actor := store.Actor{ID: "u1"}

	root, err := m.Create(ctx, actor, Input{ContentID: "c1", Text: "root"})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	reply, err := m.Create(ctx, actor, Input{ContentID: "c1", Text: "reply", ParentID: &root.ID})
	if err != nil {
		t.Fatalf("create reply: %v", err)
	}

	got, err := m.Get(ctx, actor, root.ID)
	if err != nil {
		t.Fatalf("get root: %v", err)
	}
	if got.ReplyCount != 1 {
		t.Fatalf("reply count = %d, want 1", got.ReplyCount)
	}

	// Replies must target a live parent in the same content.
	if _, err := m.Create(ctx, actor, Input{ContentID: "other", Text: "x", ParentID: &root.ID}); !store.IsNotFound(err) {
		t.Fatalf("cross-content reply: got %v, want not-found", err)
	}
	if _, err := m.Create(ctx, actor, Input{ContentID: "c1", Text: "x", ParentID: ptr("nope")}); !store.IsNotFound(err) {
		t.Fatalf("missing parent: got %v, want not-found", err)
	}

	if err := m.Delete(ctx, actor, reply.ID); err != nil {
		t.Fatalf("delete reply: %v", err)
	}
	got, _ = m.Get(ctx, actor, root.ID)
	if got.ReplyCount != 0 {
		t.Fatalf("reply count after delete = %d, want 0", got.ReplyCount)
	}
}

func TestDeleteKeepsDescendantsAddressable(t *testing.T) {
	m, _ := newTestManager(false)
	ctx := context.Background()
	actor := store.Actor{ID: "u1"}

	root, _ := m.Create(ctx, actor, Input{ContentID: "c1", Text: "root"})
	reply, _ := m.Create(ctx, actor, Input{ContentID: "c1", Text: "reply", ParentID: &root.ID})

	if err := m.Delete(ctx, actor, root.ID); err != nil {
		t.Fatalf("delete root: %v", err)
	}

	// The deleted parent stays fetchable for tombstone rendering.
	got, err := m.Get(ctx, store.Actor{ID: "u2"}, root.ID)
	if err != nil {
		t.Fatalf("get deleted root: %v", err)
	}
	if got.Visibility != store.VisibilityDeleted {
		t.Fatalf("visibility = %s, want deleted", got.Visibility)
	}

	// The reply keeps its parent edge and stays readable.
	child, err := m.Get(ctx, store.Actor{ID: "u2"}, reply.ID)
	if err != nil {
		t.Fatalf("get orphan reply: %v", err)
	}
	if child.ParentID == nil || *child.ParentID != root.ID {
		t.Fatalf("orphan parent edge = %v, want %s", child.ParentID, root.ID)
	}

	// Deleted comments no longer list.
	list, total, err := m.ByContent(ctx, store.Actor{}, "c1", store.Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 0 || len(list) != 0 {
		t.Fatalf("deleted root still listed: total=%d len=%d", total, len(list))
	}
}

func TestUpdateRecordsHistory(t *testing.T) {
	m, _ := newTestManager(false)
	ctx := context.Background()
	actor := store.Actor{ID: "u1"}

	c, _ := m.Create(ctx, actor, Input{ContentID: "c1", Text: "first"})

	if _, err := m.Update(ctx, store.Actor{ID: "u2"}, c.ID, store.CommentUpdate{Text: ptr("hack")}); !store.IsNotAuthorized(err) {
		t.Fatalf("foreign update: got %v, want not-authorized", err)
	}

	for i, text := range []string{"second", "third"} {
		upd, err := m.Update(ctx, actor, c.ID, store.CommentUpdate{Text: &text, EditReason: "typo"})
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		if !upd.IsEdited || upd.EditCount != i+1 {
			t.Fatalf("update %d: edited=%v count=%d", i, upd.IsEdited, upd.EditCount)
		}
	}

	got, _ := m.Get(ctx, actor, c.ID)
	if got.Text != "third" {
		t.Fatalf("text = %q, want third", got.Text)
	}
	if len(got.EditHistory) != 2 {
		t.Fatalf("edit history = %d entries, want 2", len(got.EditHistory))
	}
}

func TestThread(t *testing.T) {
	m, _ := newTestManager(false)
	ctx := context.Background()
	actor := store.Actor{ID: "u1"}

	root, _ := m.Create(ctx, actor, Input{ContentID: "c1", Text: "root"})
	for i := 0; i < 3; i++ {
		if _, err := m.Create(ctx, actor, Input{ContentID: "c1", Text: "r", ParentID: &root.ID}); err != nil {
			t.Fatalf("reply %d: %v", i, err)
		}
	}

	th, err := m.Thread(ctx, store.Actor{}, root.ID, store.Page{Size: 2})
	if err != nil {
		t.Fatalf("thread: %v", err)
	}
	if th.Comment.ID != root.ID {
		t.Fatalf("thread root = %s, want %s", th.Comment.ID, root.ID)
	}
	if len(th.Replies) != 2 || th.TotalReplies != 3 {
		t.Fatalf("replies page = %d of %d, want 2 of 3", len(th.Replies), th.TotalReplies)
	}
}

func TestLikeToggle(t *testing.T) {
	m, _ := newTestManager(false)
	ctx := context.Background()
	author := store.Actor{ID: "u1"}
	fan := store.Actor{ID: "u2"}

	c, _ := m.Create(ctx, author, Input{ContentID: "c1", Text: "hello"})

	liked, n, err := m.LikeToggle(ctx, fan, c.ID)
	if err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if !liked || n != 1 {
		t.Fatalf("toggle on: liked=%v n=%d, want true 1", liked, n)
	}

	liked, n, err = m.LikeToggle(ctx, fan, c.ID)
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if liked || n != 0 {
		t.Fatalf("toggle off: liked=%v n=%d, want false 0", liked, n)
	}

	got, _ := m.Get(ctx, author, c.ID)
	if got.LikeCount != 0 {
		t.Fatalf("stored like count = %d, want 0", got.LikeCount)
	}
}

func TestSetLikeIdempotent(t *testing.T) {
	m, _ := newTestManager(false)
	ctx := context.Background()
	fan := store.Actor{ID: "u2"}

	c, _ := m.Create(ctx, store.Actor{ID: "u1"}, Input{ContentID: "c1", Text: "hello"})

	for i := 0; i < 2; i++ {
		liked, n, err := m.SetLike(ctx, fan, c.ID, true)
		if err != nil {
			t.Fatalf("set like #%d: %v", i+1, err)
		}
		if !liked || n != 1 {
			t.Fatalf("set like #%d: liked=%v n=%d, want true 1", i+1, liked, n)
		}
	}

	for i := 0; i < 2; i++ {
		liked, n, err := m.SetLike(ctx, fan, c.ID, false)
		if err != nil {
			t.Fatalf("clear like #%d: %v", i+1, err)
		}
		if liked || n != 0 {
			t.Fatalf("clear like #%d: liked=%v n=%d, want false 0", i+1, liked, n)
		}
	}
}

func TestLikeToggleReplacesOtherReaction(t *testing.T) {
	cs := store.NewInMemoryCommentStore()
	eng := reactions.New(store.NewInMemoryReactionStore(), nil)
	m := NewManager(cs, eng, nil, false)
	ctx := context.Background()
	fan := store.Actor{ID: "u2"}

	c, _ := m.Create(ctx, store.Actor{ID: "u1"}, Input{ContentID: "c1", Text: "hello"})

	if _, err := eng.React(ctx, fan, reactions.Input{ContentID: c.ID, Type: store.ReactionLove, Intensity: 5}); err != nil {
		t.Fatalf("react: %v", err)
	}

	// Toggling like over a live LOVE replaces it rather than unliking.
	liked, n, err := m.LikeToggle(ctx, fan, c.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !liked || n != 1 {
		t.Fatalf("toggle over love: liked=%v n=%d, want true 1", liked, n)
	}
	r, err := eng.ForPair(ctx, c.ID, fan.ID)
	if err != nil {
		t.Fatalf("for pair: %v", err)
	}
	if r.Type != store.ReactionLike {
		t.Fatalf("reaction type = %s, want LIKE", r.Type)
	}
}

func TestLikeToggleDeletedComment(t *testing.T) {
	m, _ := newTestManager(false)
	ctx := context.Background()
	actor := store.Actor{ID: "u1"}

	c, _ := m.Create(ctx, actor, Input{ContentID: "c1", Text: "bye"})
	if err := m.Delete(ctx, actor, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := m.LikeToggle(ctx, actor, c.ID); !store.IsNotFound(err) {
		t.Fatalf("like deleted: got %v, want not-found", err)
	}
}

func TestNormalizeHashtags(t *testing.T) {
	got := NormalizeHashtags([]string{"#Go", "GO", " #go ", "##tips", "", "  "})
	// Only a single leading '#' is stripped.
	want := []string{"go", "#tips"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("normalize = %v, want %v", got, want)
	}
	if NormalizeHashtags(nil) != nil {
		t.Fatalf("nil in, want nil out")
	}
}

func ptr(s string) *string { return &s }
