package handlers

import (
	"net/http"

	"github.com/example/engagement-platform/internal/comments"
	"github.com/example/engagement-platform/internal/moderation"
	"github.com/example/engagement-platform/internal/platform/api"
	"github.com/example/engagement-platform/internal/store"
)

type moderateRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type flagRequest struct {
	Reason string `json:"reason"`
}

// ModerateComment handles POST /v1/moderation/comments/{comment_id}
func ModerateComment(m *moderation.Machine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		id, ok := urlParam(w, r, "comment_id")
		if !ok {
			return
		}
		var req moderateRequest
		if !decode(w, r, &req) {
			return
		}

		c, err := m.Moderate(r.Context(), actor, id, store.ModerationStatus(req.Status), req.Reason)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, c)
	}
}

// FlagComment handles POST /v1/comments/{comment_id}/flag
func FlagComment(m *moderation.Machine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		id, ok := urlParam(w, r, "comment_id")
		if !ok {
			return
		}
		var req flagRequest
		if !decode(w, r, &req) {
			return
		}

		c, err := m.Flag(r.Context(), actor, id, req.Reason)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, c)
	}
}

type recountResponse struct {
	ReplyCount int `json:"reply_count"`
	LikeCount  int `json:"like_count"`
}

// RecountComment handles POST /v1/moderation/comments/{comment_id}/recount.
// It rewrites the comment's cached reply and like counters from live rows,
// the same repair the event consumer performs.
func RecountComment(m *comments.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlParam(w, r, "comment_id")
		if !ok {
			return
		}
		replies, err := m.RecountReplies(r.Context(), id)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		likes, err := m.RepairLikeCount(r.Context(), id)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, recountResponse{ReplyCount: replies, LikeCount: likes})
	}
}

// ModerationQueue handles GET /v1/moderation/queue
func ModerationQueue(m *moderation.Machine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		p := pageParams(r)
		items, total, err := m.PendingQueue(r.Context(), actor, p)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writePage(w, items, total, p)
	}
}
