package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/engagement-platform/internal/comments"
	"github.com/example/engagement-platform/internal/platform/api"
	"github.com/example/engagement-platform/internal/store"
)

const maxBodyBytes = 1 << 20

type createCommentRequest struct {
	ContentID    string   `json:"content_id"`
	ParentID     *string  `json:"parent_id,omitempty"`
	Text         string   `json:"text"`
	Mentions     []string `json:"mentions,omitempty"`
	Hashtags     []string `json:"hashtags,omitempty"`
	MediaRefs    []string `json:"media_refs,omitempty"`
	CohortLevel  int      `json:"cohort_level,omitempty"`
	CulturalTags []string `json:"cultural_tags,omitempty"`
	Sentiment    *float64 `json:"sentiment,omitempty"`
}

type updateCommentRequest struct {
	Text       *string   `json:"text,omitempty"`
	Mentions   *[]string `json:"mentions,omitempty"`
	Hashtags   *[]string `json:"hashtags,omitempty"`
	MediaRefs  *[]string `json:"media_refs,omitempty"`
	EditReason string    `json:"edit_reason,omitempty"`
}

func decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dest); err != nil {
		api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
		return false
	}
	return true
}

func urlParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := strings.TrimSpace(chi.URLParam(r, name))
	if v == "" {
		api.BadRequest(w, "MISSING_ID", name+" is required", "", nil)
		return "", false
	}
	return v, true
}

// CreateComment handles POST /v1/comments
func CreateComment(m *comments.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		var req createCommentRequest
		if !decode(w, r, &req) {
			return
		}

		c, err := m.Create(r.Context(), actor, comments.Input{
			ContentID:    req.ContentID,
			ParentID:     req.ParentID,
			Text:         req.Text,
			Mentions:     req.Mentions,
			Hashtags:     req.Hashtags,
			MediaRefs:    req.MediaRefs,
			CohortLevel:  req.CohortLevel,
			CulturalTags: req.CulturalTags,
			Sentiment:    req.Sentiment,
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, c)
	}
}

// GetComment handles GET /v1/comments/{comment_id}
func GetComment(m *comments.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlParam(w, r, "comment_id")
		if !ok {
			return
		}
		c, err := m.Get(r.Context(), requestActor(r), id)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, c)
	}
}

// UpdateComment handles PATCH /v1/comments/{comment_id}
func UpdateComment(m *comments.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		id, ok := urlParam(w, r, "comment_id")
		if !ok {
			return
		}
		var req updateCommentRequest
		if !decode(w, r, &req) {
			return
		}

		c, err := m.Update(r.Context(), actor, id, store.CommentUpdate{
			Text:       req.Text,
			Mentions:   req.Mentions,
			Hashtags:   req.Hashtags,
			MediaRefs:  req.MediaRefs,
			EditReason: req.EditReason,
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, c)
	}
}

// DeleteComment handles DELETE /v1/comments/{comment_id}
func DeleteComment(m *comments.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		id, ok := urlParam(w, r, "comment_id")
		if !ok {
			return
		}
		if err := m.Delete(r.Context(), actor, id); err != nil {
			writeDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListComments handles GET /v1/content/{content_id}/comments
func ListComments(m *comments.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentID, ok := urlParam(w, r, "content_id")
		if !ok {
			return
		}
		p := pageParams(r)
		items, total, err := m.ByContent(r.Context(), requestActor(r), contentID, p)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writePage(w, items, total, p)
	}
}

// GetThread handles GET /v1/comments/{comment_id}/thread
func GetThread(m *comments.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlParam(w, r, "comment_id")
		if !ok {
			return
		}
		th, err := m.Thread(r.Context(), requestActor(r), id, pageParams(r))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, th)
	}
}

// ListReplies handles GET /v1/comments/{comment_id}/replies
func ListReplies(m *comments.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlParam(w, r, "comment_id")
		if !ok {
			return
		}
		p := pageParams(r)
		items, total, err := m.Replies(r.Context(), requestActor(r), id, p)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writePage(w, items, total, p)
	}
}

type likeToggleResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

type likeRequest struct {
	Like *bool `json:"like"`
}

// ToggleLike handles POST /v1/comments/{comment_id}/like. Without a body
// the like flips; with {"like": true|false} it is set idempotently.
func ToggleLike(m *comments.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		id, ok := urlParam(w, r, "comment_id")
		if !ok {
			return
		}
		var req likeRequest
		if r.ContentLength > 0 && !decode(w, r, &req) {
			return
		}
		var (
			liked bool
			n     int
			err   error
		)
		if req.Like != nil {
			liked, n, err = m.SetLike(r.Context(), actor, id, *req.Like)
		} else {
			liked, n, err = m.LikeToggle(r.Context(), actor, id)
		}
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, likeToggleResponse{Liked: liked, LikeCount: n})
	}
}
