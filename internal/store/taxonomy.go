package store

// ReactionType is the closed reaction taxonomy. Every type carries a
// category tag used for filtering and breakdowns.
type ReactionType string

const (
	ReactionLike  ReactionType = "LIKE"
	ReactionLove  ReactionType = "LOVE"
	ReactionLaugh ReactionType = "LAUGH"
	ReactionWow   ReactionType = "WOW"
	ReactionSad   ReactionType = "SAD"
	ReactionAngry ReactionType = "ANGRY"

	ReactionHug      ReactionType = "HUG"
	ReactionProud    ReactionType = "PROUD"
	ReactionGrateful ReactionType = "GRATEFUL"

	ReactionRespect   ReactionType = "RESPECT"
	ReactionNostalgic ReactionType = "NOSTALGIC"

	ReactionCelebrate ReactionType = "CELEBRATE"
	ReactionBlessing  ReactionType = "BLESSING"
)

type ReactionCategory string

const (
	CategoryCore         ReactionCategory = "core"
	CategoryFamily       ReactionCategory = "family"
	CategoryGenerational ReactionCategory = "generational"
	CategoryCultural     ReactionCategory = "cultural"
)

var reactionCategories = map[ReactionType]ReactionCategory{
	ReactionLike:      CategoryCore,
	ReactionLove:      CategoryCore,
	ReactionLaugh:     CategoryCore,
	ReactionWow:       CategoryCore,
	ReactionSad:       CategoryCore,
	ReactionAngry:     CategoryCore,
	ReactionHug:       CategoryFamily,
	ReactionProud:     CategoryFamily,
	ReactionGrateful:  CategoryFamily,
	ReactionRespect:   CategoryGenerational,
	ReactionNostalgic: CategoryGenerational,
	ReactionCelebrate: CategoryCultural,
	ReactionBlessing:  CategoryCultural,
}

// Valid reports whether t belongs to the recognized taxonomy.
func (t ReactionType) Valid() bool {
	_, ok := reactionCategories[t]
	return ok
}

// Category returns the category tag for t, or "" for unknown types.
func (t ReactionType) Category() ReactionCategory {
	return reactionCategories[t]
}

// Intensity bounds for a reaction.
const (
	MinIntensity = 1
	MaxIntensity = 5
)
