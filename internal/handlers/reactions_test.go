package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/engagement-platform/internal/aggregate"
	"github.com/example/engagement-platform/internal/reactions"
	"github.com/example/engagement-platform/internal/store"
)

func TestReactAndReplace(t *testing.T) {
	eng := reactions.New(store.NewInMemoryReactionStore(), nil)
	handler := React(eng)

	do := func(body string) (*httptest.ResponseRecorder, store.Reaction) {
		req := setupReq(http.MethodPut, "/v1/content/content-1/reaction", body,
			map[string]string{"content_id": "content-1"}, user("user-a"))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		var reaction store.Reaction
		if rr.Code == http.StatusOK {
			if err := json.NewDecoder(rr.Body).Decode(&reaction); err != nil {
				t.Fatalf("decode: %v", err)
			}
		}
		return rr, reaction
	}

	rr, first := do(`{"type":"LOVE","intensity":5}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr, second := do(`{"type":"LIKE","intensity":2}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if second.ID != first.ID || second.Type != store.ReactionLike {
		t.Fatalf("expected in-place replacement, got %+v then %+v", first, second)
	}
}

func TestReact_BadInput(t *testing.T) {
	eng := reactions.New(store.NewInMemoryReactionStore(), nil)
	handler := React(eng)

	cases := []struct{ name, body string }{
		{"unknown type", `{"type":"SPARKLE","intensity":3}`},
		{"intensity out of range", `{"type":"LIKE","intensity":9}`},
		{"garbage json", `{`},
	}
	for _, tc := range cases {
		req := setupReq(http.MethodPut, "/v1/content/c1/reaction", tc.body,
			map[string]string{"content_id": "c1"}, user("user-a"))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, rr.Code)
		}
	}
}

func TestRemoveReaction(t *testing.T) {
	eng := reactions.New(store.NewInMemoryReactionStore(), nil)
	if _, err := eng.React(context.Background(), store.Actor{ID: "user-a"},
		reactions.Input{ContentID: "c1", Type: store.ReactionLike, Intensity: 1}); err != nil {
		t.Fatalf("react: %v", err)
	}

	handler := RemoveReaction(eng)
	req := setupReq(http.MethodDelete, "/v1/content/c1/reaction", "",
		map[string]string{"content_id": "c1"}, user("user-a"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}

	// Removing again is a 404: there is no live reaction left.
	req = setupReq(http.MethodDelete, "/v1/content/c1/reaction", "",
		map[string]string{"content_id": "c1"}, user("user-a"))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestGetReactionHandlers(t *testing.T) {
	eng := reactions.New(store.NewInMemoryReactionStore(), nil)
	created, err := eng.React(context.Background(), store.Actor{ID: "user-a"},
		reactions.Input{ContentID: "c1", Type: store.ReactionLove, Intensity: 4})
	if err != nil {
		t.Fatalf("react: %v", err)
	}

	req := setupReq(http.MethodGet, "/v1/reactions/"+created.ID, "",
		map[string]string{"reaction_id": created.ID}, nil)
	rr := httptest.NewRecorder()
	GetReaction(eng).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("get by id: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var got store.Reaction
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != created.ID || got.Type != store.ReactionLove {
		t.Fatalf("got %+v, want %+v", got, created)
	}

	req = setupReq(http.MethodGet, "/v1/content/c1/reaction", "",
		map[string]string{"content_id": "c1"}, user("user-a"))
	rr = httptest.NewRecorder()
	GetOwnReaction(eng).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("own reaction: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	// A caller with no live reaction gets a 404, not an empty object.
	req = setupReq(http.MethodGet, "/v1/content/c1/reaction", "",
		map[string]string{"content_id": "c1"}, user("user-b"))
	rr = httptest.NewRecorder()
	GetOwnReaction(eng).ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("own reaction absent: expected 404, got %d", rr.Code)
	}
}

func TestIntensityAnalysisHandler(t *testing.T) {
	rs := store.NewInMemoryReactionStore()
	eng := reactions.New(rs, nil)
	agg := aggregate.New(rs, store.NewInMemoryCommentStore(), nil)

	ctx := context.Background()
	for i, u := range []string{"u1", "u2"} {
		if _, err := eng.React(ctx, store.Actor{ID: u},
			reactions.Input{ContentID: "c1", Type: store.ReactionLike, Intensity: 1 + i*4}); err != nil {
			t.Fatalf("react: %v", err)
		}
	}

	req := setupReq(http.MethodGet, "/v1/content/c1/reactions/intensity", "",
		map[string]string{"content_id": "c1"}, nil)
	rr := httptest.NewRecorder()
	IntensityAnalysis(agg).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var p aggregate.IntensityProfile
	if err := json.NewDecoder(rr.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Total != 2 || p.MeanIntensity != 3 || p.HighShare != 50 {
		t.Fatalf("profile = %+v, want total 2 mean 3 high 50", p)
	}
}

func TestReactionSummaryHandler(t *testing.T) {
	rs := store.NewInMemoryReactionStore()
	eng := reactions.New(rs, nil)
	agg := aggregate.New(rs, store.NewInMemoryCommentStore(), nil)

	ctx := context.Background()
	for _, u := range []string{"u1", "u2", "u3"} {
		if _, err := eng.React(ctx, store.Actor{ID: u},
			reactions.Input{ContentID: "c1", Type: store.ReactionLike, Intensity: 3}); err != nil {
			t.Fatalf("react: %v", err)
		}
	}

	handler := ReactionSummary(agg)
	req := setupReq(http.MethodGet, "/v1/content/c1/reactions/summary", "",
		map[string]string{"content_id": "c1"}, user("u1"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var s aggregate.Summary
	if err := json.NewDecoder(rr.Body).Decode(&s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Total != 3 {
		t.Fatalf("total = %d, want 3", s.Total)
	}
	if got := s.ByType[store.ReactionLike].Percentage; got != 100 {
		t.Fatalf("LIKE pct = %v, want 100", got)
	}
	if s.ViewerReaction == nil || s.ViewerReaction.ActorID != "u1" {
		t.Fatalf("viewer reaction = %+v, want u1's", s.ViewerReaction)
	}
}
