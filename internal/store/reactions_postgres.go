package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresReactionStore persists reactions in Postgres. The
// (content_id, actor_id) unique constraint makes the upsert a single atomic
// statement: concurrent writers for the same pair serialize on the index.
type PostgresReactionStore struct {
	pool *pgxpool.Pool
}

// NewPostgresReactionStore creates a store backed by Postgres.
func NewPostgresReactionStore(pool *pgxpool.Pool) *PostgresReactionStore {
	return &PostgresReactionStore{pool: pool}
}

const reactionCols = `id, content_id, actor_id, type, intensity, cohort_level, cultural_tags, created_at, updated_at`

func scanReaction(row rowScanner) (Reaction, error) {
	var r Reaction
	err := row.Scan(&r.ID, &r.ContentID, &r.ActorID, &r.Type, &r.Intensity,
		&r.CohortLevel, &r.CulturalTags, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (s *PostgresReactionStore) Upsert(ctx context.Context, r Reaction) (Reaction, error) {
	const q = `INSERT INTO reactions
		(id, content_id, actor_id, type, intensity, cohort_level, cultural_tags)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (content_id, actor_id) DO UPDATE SET
			type = EXCLUDED.type,
			intensity = EXCLUDED.intensity,
			cohort_level = EXCLUDED.cohort_level,
			cultural_tags = EXCLUDED.cultural_tags,
			updated_at = now()
		RETURNING ` + reactionCols
	row := s.pool.QueryRow(ctx, q, uuid.NewString(), r.ContentID, r.ActorID,
		r.Type, r.Intensity, r.CohortLevel, r.CulturalTags)
	out, err := scanReaction(row)
	if err != nil {
		return Reaction{}, pgerr(err)
	}
	return out, nil
}

func (s *PostgresReactionStore) Remove(ctx context.Context, id, actorID string) (Reaction, error) {
	row := s.pool.QueryRow(ctx,
		`DELETE FROM reactions WHERE id = $1 AND actor_id = $2 RETURNING `+reactionCols,
		id, actorID)
	out, err := scanReaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a missing row from someone else's row.
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM reactions WHERE id = $1)`, id).Scan(&exists); err != nil {
			return Reaction{}, pgerr(err)
		}
		if exists {
			return Reaction{}, NotAuthorized("only the owner may remove a reaction")
		}
		return Reaction{}, NotFound("reaction not found")
	}
	if err != nil {
		return Reaction{}, pgerr(err)
	}
	return out, nil
}

func (s *PostgresReactionStore) Get(ctx context.Context, id string) (Reaction, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+reactionCols+` FROM reactions WHERE id = $1`, id)
	out, err := scanReaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Reaction{}, NotFound("reaction not found")
	}
	if err != nil {
		return Reaction{}, pgerr(err)
	}
	return out, nil
}

func (s *PostgresReactionStore) ForPair(ctx context.Context, contentID, actorID string) (Reaction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+reactionCols+` FROM reactions WHERE content_id = $1 AND actor_id = $2`,
		contentID, actorID)
	out, err := scanReaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Reaction{}, NotFound("reaction not found")
	}
	if err != nil {
		return Reaction{}, pgerr(err)
	}
	return out, nil
}

func (s *PostgresReactionStore) ForContent(ctx context.Context, contentID string, p Page) ([]Reaction, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reactions WHERE content_id = $1`, contentID).Scan(&total); err != nil {
		return nil, 0, pgerr(err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+reactionCols+` FROM reactions WHERE content_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		contentID, p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, pgerr(err)
	}
	defer rows.Close()

	out := []Reaction{}
	for rows.Next() {
		r, err := scanReaction(rows)
		if err != nil {
			return nil, 0, pgerr(err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, pgerr(err)
	}
	return out, total, nil
}

func (s *PostgresReactionStore) Breakdown(ctx context.Context, contentID string) (Breakdown, error) {
	b := Breakdown{
		ByType:        make(map[ReactionType]int),
		ByIntensity:   make(map[int]int),
		ByCohort:      make(map[int]int),
		ByCulturalTag: make(map[string]int),
	}

	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT actor_id), COALESCE(SUM(intensity), 0)
		 FROM reactions WHERE content_id = $1`, contentID).
		Scan(&b.Total, &b.DistinctActors, &b.IntensitySum); err != nil {
		return Breakdown{}, pgerr(err)
	}
	if b.Total == 0 {
		return b, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT type, COUNT(*) FROM reactions WHERE content_id = $1 GROUP BY type`, contentID)
	if err != nil {
		return Breakdown{}, pgerr(err)
	}
	for rows.Next() {
		var t ReactionType
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			rows.Close()
			return Breakdown{}, pgerr(err)
		}
		b.ByType[t] = n
	}
	rows.Close()

	rows, err = s.pool.Query(ctx,
		`SELECT intensity, COUNT(*) FROM reactions WHERE content_id = $1 GROUP BY intensity`, contentID)
	if err != nil {
		return Breakdown{}, pgerr(err)
	}
	for rows.Next() {
		var i, n int
		if err := rows.Scan(&i, &n); err != nil {
			rows.Close()
			return Breakdown{}, pgerr(err)
		}
		b.ByIntensity[i] = n
	}
	rows.Close()

	rows, err = s.pool.Query(ctx,
		`SELECT cohort_level, COUNT(*) FROM reactions WHERE content_id = $1 GROUP BY cohort_level`, contentID)
	if err != nil {
		return Breakdown{}, pgerr(err)
	}
	for rows.Next() {
		var c, n int
		if err := rows.Scan(&c, &n); err != nil {
			rows.Close()
			return Breakdown{}, pgerr(err)
		}
		b.ByCohort[c] = n
	}
	rows.Close()

	rows, err = s.pool.Query(ctx,
		`SELECT tag, COUNT(*) FROM reactions, unnest(cultural_tags) AS tag
		 WHERE content_id = $1 GROUP BY tag`, contentID)
	if err != nil {
		return Breakdown{}, pgerr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var tag string
		var n int
		if err := rows.Scan(&tag, &n); err != nil {
			return Breakdown{}, pgerr(err)
		}
		b.ByCulturalTag[tag] = n
	}
	if err := rows.Err(); err != nil {
		return Breakdown{}, pgerr(err)
	}
	return b, nil
}

func (s *PostgresReactionStore) CountForContent(ctx context.Context, contentID string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reactions WHERE content_id = $1`, contentID).Scan(&n); err != nil {
		return 0, pgerr(err)
	}
	return n, nil
}

func (s *PostgresReactionStore) TypeCounts(ctx context.Context, cohort *int, since time.Time) ([]TypeCount, error) {
	const q = `SELECT type, COUNT(*), MAX(COALESCE(updated_at, created_at))
		FROM reactions
		WHERE COALESCE(updated_at, created_at) >= $1
		  AND ($2::int IS NULL OR cohort_level = $2)
		GROUP BY type`
	rows, err := s.pool.Query(ctx, q, since, cohort)
	if err != nil {
		return nil, pgerr(err)
	}
	defer rows.Close()

	out := []TypeCount{}
	for rows.Next() {
		var tc TypeCount
		if err := rows.Scan(&tc.Type, &tc.Count, &tc.LastSeen); err != nil {
			return nil, pgerr(err)
		}
		out = append(out, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, pgerr(err)
	}
	return out, nil
}
