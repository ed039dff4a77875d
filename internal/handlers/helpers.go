// Package handlers exposes the engagement HTTP API: comment CRUD and
// threads, moderation, reactions, aggregates and discovery. Each handler
// is a constructor over the component it serves, in the shape chi mounts
// directly.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/engagement-platform/internal/platform/api"
	"github.com/example/engagement-platform/internal/platform/auth"
	"github.com/example/engagement-platform/internal/platform/httpserver"
	"github.com/example/engagement-platform/internal/store"
)

// requestActor maps the authenticated identity into the domain actor. An
// unauthenticated request yields the anonymous viewer.
func requestActor(r *http.Request) store.Actor {
	a, ok := auth.ActorFromContext(r.Context())
	if !ok {
		return store.Actor{}
	}
	return store.Actor{ID: a.ID, Moderator: a.Moderator}
}

func requireActor(w http.ResponseWriter, r *http.Request) (store.Actor, bool) {
	actor := requestActor(r)
	if actor.ID == "" {
		api.Unauthorized(w, "UNAUTHORIZED", "authentication required", httpserver.RequestIDFromContext(r.Context()))
		return store.Actor{}, false
	}
	return actor, true
}

// pageParams reads ?page= and ?page_size=; the store clamps out-of-range
// values.
func pageParams(r *http.Request) store.Page {
	q := r.URL.Query()
	p := store.Page{}
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		p.Num = n
	}
	if n, err := strconv.Atoi(q.Get("page_size")); err == nil {
		p.Size = n
	}
	return p
}

// pageResponse is the envelope of every list read.
type pageResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
}

func writePage(w http.ResponseWriter, items any, total int, p store.Page) {
	page := p.Num
	if page < 1 {
		page = 1
	}
	api.WriteJSON(w, http.StatusOK, pageResponse{Items: items, Total: total, Page: page})
}

// writeDomainError renders a typed domain failure on the API error
// envelope. Untyped errors are never leaked to clients.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	rid := httpserver.RequestIDFromContext(r.Context())

	var de *store.Error
	if !errors.As(err, &de) {
		api.Internal(w, rid)
		return
	}

	code := strings.ToUpper(string(de.Kind))
	switch de.Kind {
	case store.KindNotFound:
		api.NotFound(w, code, de.Message, rid)
	case store.KindNotAuthorized:
		api.Forbidden(w, code, de.Message, rid)
	case store.KindValidation:
		var details map[string]any
		if de.Field != "" {
			details = map[string]any{"field": de.Field}
		}
		api.BadRequest(w, code, de.Message, rid, details)
	case store.KindConflict:
		api.Conflict(w, code, de.Message, rid, nil)
	case store.KindUnavailable:
		api.Unavailable(w, code, de.Message, rid)
	default:
		api.Internal(w, rid)
	}
}
