package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryReactionStore is a mutex-guarded implementation for development
// and tests. The lock serializes concurrent upserts for the same pair, so
// at most one live row ever exists per (content_id, actor_id).
type InMemoryReactionStore struct {
	mu        sync.RWMutex
	reactions map[string]Reaction
	pairs     map[string]string // content_id|actor_id -> reaction id
}

func NewInMemoryReactionStore() *InMemoryReactionStore {
	return &InMemoryReactionStore{
		reactions: make(map[string]Reaction),
		pairs:     make(map[string]string),
	}
}

func pairKey(contentID, actorID string) string {
	return contentID + "|" + actorID
}

func cloneReaction(r Reaction) Reaction {
	out := r
	out.CulturalTags = append([]string(nil), r.CulturalTags...)
	return out
}

func (s *InMemoryReactionStore) Upsert(_ context.Context, r Reaction) (Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(r.ContentID, r.ActorID)
	now := time.Now().UTC()

	if id, ok := s.pairs[key]; ok {
		existing := s.reactions[id]
		existing.Type = r.Type
		existing.Intensity = r.Intensity
		existing.CohortLevel = r.CohortLevel
		existing.CulturalTags = append([]string(nil), r.CulturalTags...)
		existing.UpdatedAt = &now
		s.reactions[id] = existing
		return cloneReaction(existing), nil
	}

	r.ID = uuid.NewString()
	r.CreatedAt = now
	r.UpdatedAt = nil
	s.reactions[r.ID] = cloneReaction(r)
	s.pairs[key] = r.ID
	return cloneReaction(r), nil
}

func (s *InMemoryReactionStore) Remove(_ context.Context, id, actorID string) (Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reactions[id]
	if !ok {
		return Reaction{}, NotFound("reaction not found")
	}
	if r.ActorID != actorID {
		return Reaction{}, NotAuthorized("only the owner may remove a reaction")
	}
	delete(s.reactions, id)
	delete(s.pairs, pairKey(r.ContentID, r.ActorID))
	return cloneReaction(r), nil
}

func (s *InMemoryReactionStore) Get(_ context.Context, id string) (Reaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reactions[id]
	if !ok {
		return Reaction{}, NotFound("reaction not found")
	}
	return cloneReaction(r), nil
}

func (s *InMemoryReactionStore) ForPair(_ context.Context, contentID, actorID string) (Reaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.pairs[pairKey(contentID, actorID)]
	if !ok {
		return Reaction{}, NotFound("reaction not found")
	}
	return cloneReaction(s.reactions[id]), nil
}

func (s *InMemoryReactionStore) ForContent(_ context.Context, contentID string, p Page) ([]Reaction, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Reaction
	for _, r := range s.reactions {
		if r.ContentID == contentID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	total := len(out)
	off := p.Offset()
	if off >= total {
		return []Reaction{}, total, nil
	}
	end := off + p.Limit()
	if end > total {
		end = total
	}
	page := make([]Reaction, 0, end-off)
	for _, r := range out[off:end] {
		page = append(page, cloneReaction(r))
	}
	return page, total, nil
}

func (s *InMemoryReactionStore) Breakdown(_ context.Context, contentID string) (Breakdown, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b := Breakdown{
		ByType:        make(map[ReactionType]int),
		ByIntensity:   make(map[int]int),
		ByCohort:      make(map[int]int),
		ByCulturalTag: make(map[string]int),
	}
	actors := make(map[string]struct{})
	for _, r := range s.reactions {
		if r.ContentID != contentID {
			continue
		}
		b.Total++
		b.IntensitySum += r.Intensity
		b.ByType[r.Type]++
		b.ByIntensity[r.Intensity]++
		b.ByCohort[r.CohortLevel]++
		for _, t := range r.CulturalTags {
			b.ByCulturalTag[t]++
		}
		actors[r.ActorID] = struct{}{}
	}
	b.DistinctActors = len(actors)
	return b, nil
}

func (s *InMemoryReactionStore) CountForContent(_ context.Context, contentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.reactions {
		if r.ContentID == contentID {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryReactionStore) TypeCounts(_ context.Context, cohort *int, since time.Time) ([]TypeCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[ReactionType]*TypeCount)
	for _, r := range s.reactions {
		at := r.CreatedAt
		if r.UpdatedAt != nil {
			at = *r.UpdatedAt
		}
		if at.Before(since) {
			continue
		}
		if cohort != nil && r.CohortLevel != *cohort {
			continue
		}
		tc := counts[r.Type]
		if tc == nil {
			tc = &TypeCount{Type: r.Type}
			counts[r.Type] = tc
		}
		tc.Count++
		if at.After(tc.LastSeen) {
			tc.LastSeen = at
		}
	}
	out := make([]TypeCount, 0, len(counts))
	for _, tc := range counts {
		out = append(out, *tc)
	}
	return out, nil
}
