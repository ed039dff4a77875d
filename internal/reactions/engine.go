// Package reactions enforces the one-live-reaction-per-actor-per-content
// invariant: reacting again replaces the existing row in place instead of
// stacking a duplicate.
package reactions

import (
	"context"
	"strings"

	"github.com/example/engagement-platform/internal/platform/events"
	"github.com/example/engagement-platform/internal/store"
)

// SummaryInvalidator drops any cached aggregate for a content id after a
// write. A nil invalidator is a no-op.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context, contentID string)
}

// Engine applies insert-or-replace semantics over the reaction store.
type Engine struct {
	reactions store.ReactionStore
	pub       *events.Publisher
	inval     SummaryInvalidator
}

func New(rs store.ReactionStore, pub *events.Publisher) *Engine {
	return &Engine{reactions: rs, pub: pub}
}

// SetInvalidator wires the aggregate cache invalidation hook.
func (e *Engine) SetInvalidator(inv SummaryInvalidator) { e.inval = inv }

// Input is a validated-shape reaction payload; React enforces the field
// constraints before it touches the store.
type Input struct {
	ContentID    string
	Type         store.ReactionType
	Intensity    int
	CohortLevel  int
	CulturalTags []string
}

// React upserts the actor's reaction on a content id. A pre-existing live
// reaction for the same (contentID, actor) pair is replaced in place; the
// store's uniqueness constraint serializes concurrent calls to a single
// surviving row.
func (e *Engine) React(ctx context.Context, actor store.Actor, in Input) (store.Reaction, error) {
	if strings.TrimSpace(in.ContentID) == "" {
		return store.Reaction{}, store.Invalid("content_id", "content id is required")
	}
	if !in.Type.Valid() {
		return store.Reaction{}, store.Invalid("type", "unrecognized reaction type %q", in.Type)
	}
	if in.Intensity < store.MinIntensity || in.Intensity > store.MaxIntensity {
		return store.Reaction{}, store.Invalid("intensity", "intensity must be between %d and %d",
			store.MinIntensity, store.MaxIntensity)
	}

	r, err := e.reactions.Upsert(ctx, store.Reaction{
		ContentID:    in.ContentID,
		ActorID:      actor.ID,
		Type:         in.Type,
		Intensity:    in.Intensity,
		CohortLevel:  in.CohortLevel,
		CulturalTags: dedupe(in.CulturalTags),
	})
	if err != nil {
		return store.Reaction{}, err
	}

	e.invalidate(ctx, r.ContentID)
	e.pub.Publish(events.SubjectReactionUpserted, actor.ID, map[string]any{
		"reaction_id": r.ID,
		"content_id":  r.ContentID,
		"type":        string(r.Type),
		"intensity":   r.Intensity,
	})
	return r, nil
}

// Remove hard-deletes the actor's reaction.
func (e *Engine) Remove(ctx context.Context, actor store.Actor, reactionID string) error {
	r, err := e.reactions.Remove(ctx, reactionID, actor.ID)
	if err != nil {
		return err
	}
	e.invalidate(ctx, r.ContentID)
	e.pub.Publish(events.SubjectReactionRemoved, actor.ID, map[string]any{
		"reaction_id": r.ID,
		"content_id":  r.ContentID,
	})
	return nil
}

// RemovePair removes the actor's live reaction on a content id, if any.
// Reports whether a reaction existed.
func (e *Engine) RemovePair(ctx context.Context, actor store.Actor, contentID string) (bool, error) {
	r, err := e.reactions.ForPair(ctx, contentID, actor.ID)
	if store.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := e.Remove(ctx, actor, r.ID); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) Get(ctx context.Context, id string) (store.Reaction, error) {
	return e.reactions.Get(ctx, id)
}

func (e *Engine) ForPair(ctx context.Context, contentID, actorID string) (store.Reaction, error) {
	return e.reactions.ForPair(ctx, contentID, actorID)
}

func (e *Engine) ForContent(ctx context.Context, contentID string, p store.Page) ([]store.Reaction, int, error) {
	return e.reactions.ForContent(ctx, contentID, p)
}

// LiveCount is the current number of live reactions on a content id, used
// by the comment manager for like-count repair.
func (e *Engine) LiveCount(ctx context.Context, contentID string) (int, error) {
	return e.reactions.CountForContent(ctx, contentID)
}

func (e *Engine) invalidate(ctx context.Context, contentID string) {
	if e.inval != nil {
		e.inval.Invalidate(ctx, contentID)
	}
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
