// Package search exposes comment discovery over the store's text and
// hashtag indexes. Results honor the viewer's visibility and page
// most-recent-first like every other list read.
package search

import (
	"context"
	"strings"

	"github.com/example/engagement-platform/internal/comments"
	"github.com/example/engagement-platform/internal/store"
)

type Index struct {
	comments store.CommentStore
}

func NewIndex(cs store.CommentStore) *Index {
	return &Index{comments: cs}
}

// ByText finds visible comments containing the query, case-insensitively,
// optionally scoped to one content id.
func (i *Index) ByText(ctx context.Context, viewer store.Actor, contentID, query string, p store.Page) ([]store.Comment, int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, store.Invalid("q", "a search query is required")
	}
	return i.comments.SearchText(ctx, contentID, query, viewer, p)
}

// ByHashtag finds visible comments carrying the tag. The tag is normalized
// the same way comment hashtags are on write, so "#Go" finds "go".
func (i *Index) ByHashtag(ctx context.Context, viewer store.Actor, tag string, p store.Page) ([]store.Comment, int, error) {
	norm := comments.NormalizeHashtags([]string{tag})
	if len(norm) == 0 {
		return nil, 0, store.Invalid("tag", "a hashtag is required")
	}
	return i.comments.ByHashtag(ctx, norm[0], viewer, p)
}
