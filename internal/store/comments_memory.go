package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryCommentStore is a mutex-guarded implementation for development and
// tests. The single lock gives every operation the same atomicity the
// Postgres implementation gets from transactions.
type InMemoryCommentStore struct {
	mu       sync.RWMutex
	comments map[string]Comment
}

func NewInMemoryCommentStore() *InMemoryCommentStore {
	return &InMemoryCommentStore{comments: make(map[string]Comment)}
}

func cloneComment(c Comment) Comment {
	out := c
	out.Mentions = append([]string(nil), c.Mentions...)
	out.Hashtags = append([]string(nil), c.Hashtags...)
	out.MediaRefs = append([]string(nil), c.MediaRefs...)
	out.CulturalTags = append([]string(nil), c.CulturalTags...)
	out.EditHistory = append([]EditEntry(nil), c.EditHistory...)
	out.Audit = append([]AuditEntry(nil), c.Audit...)
	if c.Sentiment != nil {
		s := *c.Sentiment
		out.Sentiment = &s
	}
	if c.ParentID != nil {
		p := *c.ParentID
		out.ParentID = &p
	}
	return out
}

func sortRecent(cs []Comment) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.After(cs[j].CreatedAt)
		}
		return cs[i].ID > cs[j].ID
	})
}

func paginate(cs []Comment, p Page) ([]Comment, int) {
	total := len(cs)
	off := p.Offset()
	if off >= total {
		return []Comment{}, total
	}
	end := off + p.Limit()
	if end > total {
		end = total
	}
	out := make([]Comment, 0, end-off)
	for _, c := range cs[off:end] {
		out = append(out, cloneComment(c))
	}
	return out, total
}

func (s *InMemoryCommentStore) Create(_ context.Context, c Comment) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ParentID != nil {
		parent, ok := s.comments[*c.ParentID]
		if !ok || parent.Visibility == VisibilityDeleted || parent.ContentID != c.ContentID {
			return Comment{}, NotFound("parent comment not found")
		}
		parent.ReplyCount++
		s.comments[parent.ID] = parent
	}

	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	c.Visibility = VisibilityActive
	c.ReplyCount = 0
	c.LikeCount = 0
	c.IsEdited = false
	c.EditCount = 0
	c.EditHistory = nil
	c.Audit = nil
	s.comments[c.ID] = cloneComment(c)
	return cloneComment(c), nil
}

func (s *InMemoryCommentStore) Get(_ context.Context, id string) (Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return Comment{}, NotFound("comment not found")
	}
	return cloneComment(c), nil
}

func (s *InMemoryCommentStore) Update(_ context.Context, id, actorID string, upd CommentUpdate) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok || c.Visibility == VisibilityDeleted {
		return Comment{}, NotFound("comment not found")
	}
	if c.AuthorID != actorID {
		return Comment{}, NotAuthorized("only the author may edit a comment")
	}

	if upd.Text != nil {
		c.Text = *upd.Text
	}
	if upd.Mentions != nil {
		c.Mentions = append([]string(nil), *upd.Mentions...)
	}
	if upd.Hashtags != nil {
		c.Hashtags = append([]string(nil), *upd.Hashtags...)
	}
	if upd.MediaRefs != nil {
		c.MediaRefs = append([]string(nil), *upd.MediaRefs...)
	}

	now := time.Now().UTC()
	c.IsEdited = true
	c.EditCount++
	c.EditHistory = append(c.EditHistory, EditEntry{At: now, Reason: upd.EditReason})
	c.UpdatedAt = &now
	s.comments[id] = cloneComment(c)
	return cloneComment(c), nil
}

func (s *InMemoryCommentStore) SoftDelete(_ context.Context, id, actorID string, moderator bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok || c.Visibility == VisibilityDeleted {
		return NotFound("comment not found")
	}
	if c.AuthorID != actorID && !moderator {
		return NotAuthorized("only the author or a moderator may delete a comment")
	}

	now := time.Now().UTC()
	c.Visibility = VisibilityDeleted
	c.DeletedAt = &now
	s.comments[id] = c

	if c.ParentID != nil {
		if parent, ok := s.comments[*c.ParentID]; ok && parent.ReplyCount > 0 {
			parent.ReplyCount--
			s.comments[parent.ID] = parent
		}
	}
	return nil
}

func (s *InMemoryCommentStore) Replies(_ context.Context, parentID string, v Actor, p Page) ([]Comment, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.comments[parentID]; !ok {
		return nil, 0, NotFound("comment not found")
	}

	var out []Comment
	for _, c := range s.comments {
		if c.ParentID != nil && *c.ParentID == parentID && c.VisibleTo(v) {
			out = append(out, c)
		}
	}
	sortRecent(out)
	page, total := paginate(out, p)
	return page, total, nil
}

func (s *InMemoryCommentStore) ByContent(_ context.Context, contentID string, v Actor, p Page) ([]Comment, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Comment
	for _, c := range s.comments {
		if c.ContentID == contentID && c.ParentID == nil && c.VisibleTo(v) {
			out = append(out, c)
		}
	}
	sortRecent(out)
	page, total := paginate(out, p)
	return page, total, nil
}

func (s *InMemoryCommentStore) SetModeration(_ context.Context, id string, st ModerationStatus, entry AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok || c.Visibility == VisibilityDeleted {
		return NotFound("comment not found")
	}
	c.Moderation = st
	c.Audit = append(c.Audit, entry)
	s.comments[id] = cloneComment(c)
	return nil
}

func (s *InMemoryCommentStore) PendingModeration(_ context.Context, p Page) ([]Comment, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Comment
	for _, c := range s.comments {
		if c.Visibility == VisibilityActive &&
			(c.Moderation == ModerationPending || c.Moderation == ModerationFlagged) {
			out = append(out, c)
		}
	}
	// Review queue runs oldest first.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	total := len(out)
	off := p.Offset()
	if off >= total {
		return []Comment{}, total, nil
	}
	end := off + p.Limit()
	if end > total {
		end = total
	}
	page := make([]Comment, 0, end-off)
	for _, c := range out[off:end] {
		page = append(page, cloneComment(c))
	}
	return page, total, nil
}

func (s *InMemoryCommentStore) RecountReplies(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return 0, NotFound("comment not found")
	}
	n := 0
	for _, child := range s.comments {
		if child.ParentID != nil && *child.ParentID == id && child.Visibility == VisibilityActive {
			n++
		}
	}
	c.ReplyCount = n
	s.comments[id] = c
	return n, nil
}

func (s *InMemoryCommentStore) SetLikeCount(_ context.Context, id string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return NotFound("comment not found")
	}
	c.LikeCount = n
	s.comments[id] = c
	return nil
}

func (s *InMemoryCommentStore) SearchText(_ context.Context, contentID, query string, v Actor, p Page) ([]Comment, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	var out []Comment
	for _, c := range s.comments {
		if contentID != "" && c.ContentID != contentID {
			continue
		}
		if c.VisibleTo(v) && strings.Contains(strings.ToLower(c.Text), q) {
			out = append(out, c)
		}
	}
	sortRecent(out)
	page, total := paginate(out, p)
	return page, total, nil
}

func (s *InMemoryCommentStore) ByHashtag(_ context.Context, tag string, v Actor, p Page) ([]Comment, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Comment
	for _, c := range s.comments {
		if !c.VisibleTo(v) {
			continue
		}
		for _, h := range c.Hashtags {
			if h == tag {
				out = append(out, c)
				break
			}
		}
	}
	sortRecent(out)
	page, total := paginate(out, p)
	return page, total, nil
}

func (s *InMemoryCommentStore) HashtagCounts(_ context.Context, since time.Time) ([]TagCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]*TagCount)
	for _, c := range s.comments {
		if c.Visibility != VisibilityActive || !c.Moderation.Approved() || c.CreatedAt.Before(since) {
			continue
		}
		for _, h := range c.Hashtags {
			tc := counts[h]
			if tc == nil {
				tc = &TagCount{Tag: h}
				counts[h] = tc
			}
			tc.Count++
			if c.CreatedAt.After(tc.LastSeen) {
				tc.LastSeen = c.CreatedAt
			}
		}
	}
	out := make([]TagCount, 0, len(counts))
	for _, tc := range counts {
		out = append(out, *tc)
	}
	return out, nil
}

func (s *InMemoryCommentStore) ContentCounts(_ context.Context, contentID string) (ContentCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cc ContentCounts
	for _, c := range s.comments {
		if c.ContentID != contentID || c.Visibility != VisibilityActive || !c.Moderation.Approved() {
			continue
		}
		cc.TotalComments++
		if c.ParentID != nil {
			cc.TotalReplies++
		}
		if c.Sentiment != nil {
			cc.SentimentSum += *c.Sentiment
			cc.SentimentN++
		}
	}
	return cc, nil
}

func (s *InMemoryCommentStore) TagActivity(_ context.Context, contentID string, since time.Time) ([]TagCount, []TagCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hashtags := make(map[string]*TagCount)
	mentions := make(map[string]*TagCount)
	bump := func(m map[string]*TagCount, tag string, at time.Time) {
		tc := m[tag]
		if tc == nil {
			tc = &TagCount{Tag: tag}
			m[tag] = tc
		}
		tc.Count++
		if at.After(tc.LastSeen) {
			tc.LastSeen = at
		}
	}

	for _, c := range s.comments {
		if c.ContentID != contentID || c.Visibility != VisibilityActive ||
			!c.Moderation.Approved() || c.CreatedAt.Before(since) {
			continue
		}
		for _, h := range c.Hashtags {
			bump(hashtags, h, c.CreatedAt)
		}
		for _, m := range c.Mentions {
			bump(mentions, m, c.CreatedAt)
		}
	}

	flatten := func(m map[string]*TagCount) []TagCount {
		out := make([]TagCount, 0, len(m))
		for _, tc := range m {
			out = append(out, *tc)
		}
		return out
	}
	return flatten(hashtags), flatten(mentions), nil
}
