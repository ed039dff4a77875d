package handlers

import (
	"net/http"
	"strings"

	"github.com/example/engagement-platform/internal/search"
)

// SearchComments handles GET /v1/search/comments?q=...&content_id=...
func SearchComments(idx *search.Index) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		p := pageParams(r)
		items, total, err := idx.ByText(r.Context(), requestActor(r),
			strings.TrimSpace(q.Get("content_id")), q.Get("q"), p)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writePage(w, items, total, p)
	}
}

// SearchByHashtag handles GET /v1/search/hashtags/{tag}
func SearchByHashtag(idx *search.Index) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tag, ok := urlParam(w, r, "tag")
		if !ok {
			return
		}
		p := pageParams(r)
		items, total, err := idx.ByHashtag(r.Context(), requestActor(r), tag, p)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writePage(w, items, total, p)
	}
}
