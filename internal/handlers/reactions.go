package handlers

import (
	"net/http"

	"github.com/example/engagement-platform/internal/platform/api"
	"github.com/example/engagement-platform/internal/reactions"
	"github.com/example/engagement-platform/internal/store"
)

type reactRequest struct {
	Type         string   `json:"type"`
	Intensity    int      `json:"intensity"`
	CohortLevel  int      `json:"cohort_level,omitempty"`
	CulturalTags []string `json:"cultural_tags,omitempty"`
}

// React handles PUT /v1/content/{content_id}/reaction
func React(e *reactions.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		contentID, ok := urlParam(w, r, "content_id")
		if !ok {
			return
		}
		var req reactRequest
		if !decode(w, r, &req) {
			return
		}

		reaction, err := e.React(r.Context(), actor, reactions.Input{
			ContentID:    contentID,
			Type:         store.ReactionType(req.Type),
			Intensity:    req.Intensity,
			CohortLevel:  req.CohortLevel,
			CulturalTags: req.CulturalTags,
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, reaction)
	}
}

// RemoveReaction handles DELETE /v1/content/{content_id}/reaction
func RemoveReaction(e *reactions.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		contentID, ok := urlParam(w, r, "content_id")
		if !ok {
			return
		}

		removed, err := e.RemovePair(r.Context(), actor, contentID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		if !removed {
			writeDomainError(w, r, store.NotFound("no reaction on content %s", contentID))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GetReaction handles GET /v1/reactions/{reaction_id}
func GetReaction(e *reactions.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlParam(w, r, "reaction_id")
		if !ok {
			return
		}
		reaction, err := e.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, reaction)
	}
}

// GetOwnReaction handles GET /v1/content/{content_id}/reaction and returns
// the caller's live reaction on the content, if any.
func GetOwnReaction(e *reactions.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		contentID, ok := urlParam(w, r, "content_id")
		if !ok {
			return
		}
		reaction, err := e.ForPair(r.Context(), contentID, actor.ID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, reaction)
	}
}

// ListReactions handles GET /v1/content/{content_id}/reactions
func ListReactions(e *reactions.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentID, ok := urlParam(w, r, "content_id")
		if !ok {
			return
		}
		p := pageParams(r)
		items, total, err := e.ForContent(r.Context(), contentID, p)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writePage(w, items, total, p)
	}
}
