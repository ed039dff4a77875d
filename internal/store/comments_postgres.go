package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCommentStore persists comments in Postgres. Tree mutations run in
// a transaction with the parent row locked, so the reply counter and the
// child set always commit together.
type PostgresCommentStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCommentStore creates a store backed by Postgres.
func NewPostgresCommentStore(pool *pgxpool.Pool) *PostgresCommentStore {
	return &PostgresCommentStore{pool: pool}
}

const commentCols = `id, content_id, author_id, parent_id, body, mentions, hashtags, media_refs,
	cohort_level, cultural_tags, sentiment, reply_count, like_count, visibility, moderation,
	is_edited, edit_count, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComment(row rowScanner) (Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.ContentID, &c.AuthorID, &c.ParentID, &c.Text,
		&c.Mentions, &c.Hashtags, &c.MediaRefs, &c.CohortLevel, &c.CulturalTags,
		&c.Sentiment, &c.ReplyCount, &c.LikeCount, &c.Visibility, &c.Moderation,
		&c.IsEdited, &c.EditCount, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	return c, err
}

func (s *PostgresCommentStore) scanComments(ctx context.Context, q string, args ...any) ([]Comment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, pgerr(err)
	}
	defer rows.Close()

	out := []Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, pgerr(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, pgerr(err)
	}
	return out, nil
}

func (s *PostgresCommentStore) Create(ctx context.Context, c Comment) (Comment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Comment{}, Unavailable(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if c.ParentID != nil {
		var parentContent string
		var deletedAt *time.Time
		err := tx.QueryRow(ctx,
			`SELECT content_id, deleted_at FROM comments WHERE id = $1 FOR UPDATE`,
			*c.ParentID).Scan(&parentContent, &deletedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return Comment{}, NotFound("parent comment not found")
		}
		if err != nil {
			return Comment{}, pgerr(err)
		}
		if deletedAt != nil || parentContent != c.ContentID {
			return Comment{}, NotFound("parent comment not found")
		}
		if _, err := tx.Exec(ctx,
			`UPDATE comments SET reply_count = reply_count + 1 WHERE id = $1`,
			*c.ParentID); err != nil {
			return Comment{}, pgerr(err)
		}
	}

	const q = `INSERT INTO comments
		(id, content_id, author_id, parent_id, body, mentions, hashtags, media_refs,
		 cohort_level, cultural_tags, sentiment, moderation)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING ` + commentCols
	row := tx.QueryRow(ctx, q, uuid.NewString(), c.ContentID, c.AuthorID, c.ParentID,
		c.Text, c.Mentions, c.Hashtags, c.MediaRefs, c.CohortLevel, c.CulturalTags,
		c.Sentiment, c.Moderation)
	out, err := scanComment(row)
	if err != nil {
		return Comment{}, pgerr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Comment{}, Unavailable(err)
	}
	return out, nil
}

func (s *PostgresCommentStore) Get(ctx context.Context, id string) (Comment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+commentCols+` FROM comments WHERE id = $1`, id)
	c, err := scanComment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, NotFound("comment not found")
	}
	if err != nil {
		return Comment{}, pgerr(err)
	}
	if err := s.hydrate(ctx, &c); err != nil {
		return Comment{}, err
	}
	return c, nil
}

// hydrate attaches the edit history and audit trail, which list reads omit.
func (s *PostgresCommentStore) hydrate(ctx context.Context, c *Comment) error {
	rows, err := s.pool.Query(ctx,
		`SELECT created_at, reason FROM comment_edits WHERE comment_id = $1 ORDER BY seq`, c.ID)
	if err != nil {
		return pgerr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var e EditEntry
		if err := rows.Scan(&e.At, &e.Reason); err != nil {
			return pgerr(err)
		}
		c.EditHistory = append(c.EditHistory, e)
	}
	if err := rows.Err(); err != nil {
		return pgerr(err)
	}

	rows, err = s.pool.Query(ctx,
		`SELECT actor_id, action, reason, created_at FROM comment_audit WHERE comment_id = $1 ORDER BY seq`, c.ID)
	if err != nil {
		return pgerr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var a AuditEntry
		if err := rows.Scan(&a.Actor, &a.Action, &a.Reason, &a.At); err != nil {
			return pgerr(err)
		}
		c.Audit = append(c.Audit, a)
	}
	return pgerrOrNil(rows.Err())
}

func pgerrOrNil(err error) error {
	if err == nil {
		return nil
	}
	return pgerr(err)
}

func (s *PostgresCommentStore) Update(ctx context.Context, id, actorID string, upd CommentUpdate) (Comment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Comment{}, Unavailable(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+commentCols+` FROM comments WHERE id = $1 FOR UPDATE`, id)
	cur, err := scanComment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, NotFound("comment not found")
	}
	if err != nil {
		return Comment{}, pgerr(err)
	}
	if cur.DeletedAt != nil {
		return Comment{}, NotFound("comment not found")
	}
	if cur.AuthorID != actorID {
		return Comment{}, NotAuthorized("only the author may edit a comment")
	}

	if upd.Text != nil {
		cur.Text = *upd.Text
	}
	if upd.Mentions != nil {
		cur.Mentions = *upd.Mentions
	}
	if upd.Hashtags != nil {
		cur.Hashtags = *upd.Hashtags
	}
	if upd.MediaRefs != nil {
		cur.MediaRefs = *upd.MediaRefs
	}

	row = tx.QueryRow(ctx, `UPDATE comments SET
			body = $2, mentions = $3, hashtags = $4, media_refs = $5,
			is_edited = TRUE, edit_count = edit_count + 1, updated_at = now()
		WHERE id = $1
		RETURNING `+commentCols,
		id, cur.Text, cur.Mentions, cur.Hashtags, cur.MediaRefs)
	out, err := scanComment(row)
	if err != nil {
		return Comment{}, pgerr(err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO comment_edits (comment_id, reason, created_at) VALUES ($1, $2, now())`,
		id, upd.EditReason); err != nil {
		return Comment{}, pgerr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Comment{}, Unavailable(err)
	}
	// The returned comment carries its history, same as Get.
	if err := s.hydrate(ctx, &out); err != nil {
		return Comment{}, err
	}
	return out, nil
}

func (s *PostgresCommentStore) SoftDelete(ctx context.Context, id, actorID string, moderator bool) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Unavailable(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var authorID string
	var parentID *string
	var deletedAt *time.Time
	err = tx.QueryRow(ctx,
		`SELECT author_id, parent_id, deleted_at FROM comments WHERE id = $1 FOR UPDATE`,
		id).Scan(&authorID, &parentID, &deletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound("comment not found")
	}
	if err != nil {
		return pgerr(err)
	}
	if deletedAt != nil {
		return NotFound("comment not found")
	}
	if authorID != actorID && !moderator {
		return NotAuthorized("only the author or a moderator may delete a comment")
	}

	if _, err := tx.Exec(ctx,
		`UPDATE comments SET visibility = 'deleted', deleted_at = now() WHERE id = $1`, id); err != nil {
		return pgerr(err)
	}
	if parentID != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE comments SET reply_count = GREATEST(reply_count - 1, 0) WHERE id = $1`,
			*parentID); err != nil {
			return pgerr(err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Unavailable(err)
	}
	return nil
}

func (s *PostgresCommentStore) Replies(ctx context.Context, parentID string, v Actor, p Page) ([]Comment, int, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM comments WHERE id = $1)`, parentID).Scan(&exists); err != nil {
		return nil, 0, pgerr(err)
	}
	if !exists {
		return nil, 0, NotFound("comment not found")
	}

	const where = `parent_id = $1 AND deleted_at IS NULL
		AND (moderation IN ('approved','auto_approved') OR author_id = $2 OR $3)`
	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM comments WHERE `+where,
		parentID, v.ID, v.Moderator).Scan(&total); err != nil {
		return nil, 0, pgerr(err)
	}
	out, err := s.scanComments(ctx,
		`SELECT `+commentCols+` FROM comments WHERE `+where+`
		 ORDER BY created_at DESC, id DESC LIMIT $4 OFFSET $5`,
		parentID, v.ID, v.Moderator, p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PostgresCommentStore) ByContent(ctx context.Context, contentID string, v Actor, p Page) ([]Comment, int, error) {
	const where = `content_id = $1 AND parent_id IS NULL AND deleted_at IS NULL
		AND (moderation IN ('approved','auto_approved') OR author_id = $2 OR $3)`
	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM comments WHERE `+where,
		contentID, v.ID, v.Moderator).Scan(&total); err != nil {
		return nil, 0, pgerr(err)
	}
	out, err := s.scanComments(ctx,
		`SELECT `+commentCols+` FROM comments WHERE `+where+`
		 ORDER BY created_at DESC, id DESC LIMIT $4 OFFSET $5`,
		contentID, v.ID, v.Moderator, p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PostgresCommentStore) SetModeration(ctx context.Context, id string, st ModerationStatus, entry AuditEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Unavailable(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE comments SET moderation = $2 WHERE id = $1 AND deleted_at IS NULL`, id, st)
	if err != nil {
		return pgerr(err)
	}
	if tag.RowsAffected() == 0 {
		return NotFound("comment not found")
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO comment_audit (comment_id, actor_id, action, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, entry.Actor, entry.Action, entry.Reason, entry.At); err != nil {
		return pgerr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Unavailable(err)
	}
	return nil
}

func (s *PostgresCommentStore) PendingModeration(ctx context.Context, p Page) ([]Comment, int, error) {
	const where = `deleted_at IS NULL AND moderation IN ('pending','flagged')`
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE `+where).Scan(&total); err != nil {
		return nil, 0, pgerr(err)
	}
	out, err := s.scanComments(ctx,
		`SELECT `+commentCols+` FROM comments WHERE `+where+`
		 ORDER BY created_at ASC, id ASC LIMIT $1 OFFSET $2`,
		p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PostgresCommentStore) RecountReplies(ctx context.Context, id string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`UPDATE comments SET reply_count =
			(SELECT COUNT(*) FROM comments c WHERE c.parent_id = $1 AND c.deleted_at IS NULL)
		 WHERE id = $1
		 RETURNING reply_count`, id).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, NotFound("comment not found")
	}
	if err != nil {
		return 0, pgerr(err)
	}
	return n, nil
}

func (s *PostgresCommentStore) SetLikeCount(ctx context.Context, id string, n int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE comments SET like_count = $2 WHERE id = $1`, id, n)
	if err != nil {
		return pgerr(err)
	}
	if tag.RowsAffected() == 0 {
		return NotFound("comment not found")
	}
	return nil
}

func (s *PostgresCommentStore) SearchText(ctx context.Context, contentID, query string, v Actor, p Page) ([]Comment, int, error) {
	const where = `($1 = '' OR content_id = $1) AND body ILIKE $2 AND deleted_at IS NULL
		AND (moderation IN ('approved','auto_approved') OR author_id = $3 OR $4)`
	pattern := "%" + escapeLike(query) + "%"
	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM comments WHERE `+where,
		contentID, pattern, v.ID, v.Moderator).Scan(&total); err != nil {
		return nil, 0, pgerr(err)
	}
	out, err := s.scanComments(ctx,
		`SELECT `+commentCols+` FROM comments WHERE `+where+`
		 ORDER BY created_at DESC, id DESC LIMIT $5 OFFSET $6`,
		contentID, pattern, v.ID, v.Moderator, p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PostgresCommentStore) ByHashtag(ctx context.Context, tag string, v Actor, p Page) ([]Comment, int, error) {
	const where = `$1 = ANY(hashtags) AND deleted_at IS NULL
		AND (moderation IN ('approved','auto_approved') OR author_id = $2 OR $3)`
	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM comments WHERE `+where,
		tag, v.ID, v.Moderator).Scan(&total); err != nil {
		return nil, 0, pgerr(err)
	}
	out, err := s.scanComments(ctx,
		`SELECT `+commentCols+` FROM comments WHERE `+where+`
		 ORDER BY created_at DESC, id DESC LIMIT $4 OFFSET $5`,
		tag, v.ID, v.Moderator, p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PostgresCommentStore) HashtagCounts(ctx context.Context, since time.Time) ([]TagCount, error) {
	const q = `SELECT tag, COUNT(*), MAX(created_at)
		FROM comments, unnest(hashtags) AS tag
		WHERE deleted_at IS NULL AND moderation IN ('approved','auto_approved')
		  AND created_at >= $1
		GROUP BY tag`
	return s.scanTagCounts(ctx, q, since)
}

func (s *PostgresCommentStore) scanTagCounts(ctx context.Context, q string, args ...any) ([]TagCount, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, pgerr(err)
	}
	defer rows.Close()

	out := []TagCount{}
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count, &tc.LastSeen); err != nil {
			return nil, pgerr(err)
		}
		out = append(out, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, pgerr(err)
	}
	return out, nil
}

func (s *PostgresCommentStore) ContentCounts(ctx context.Context, contentID string) (ContentCounts, error) {
	const q = `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE parent_id IS NOT NULL),
		COALESCE(SUM(sentiment), 0),
		COUNT(sentiment)
	FROM comments
	WHERE content_id = $1 AND deleted_at IS NULL AND moderation IN ('approved','auto_approved')`
	var cc ContentCounts
	if err := s.pool.QueryRow(ctx, q, contentID).Scan(
		&cc.TotalComments, &cc.TotalReplies, &cc.SentimentSum, &cc.SentimentN); err != nil {
		return ContentCounts{}, pgerr(err)
	}
	return cc, nil
}

func (s *PostgresCommentStore) TagActivity(ctx context.Context, contentID string, since time.Time) ([]TagCount, []TagCount, error) {
	hashtags, err := s.scanTagCounts(ctx,
		`SELECT tag, COUNT(*), MAX(created_at) FROM comments, unnest(hashtags) AS tag
		 WHERE content_id = $1 AND deleted_at IS NULL
		   AND moderation IN ('approved','auto_approved') AND created_at >= $2
		 GROUP BY tag`, contentID, since)
	if err != nil {
		return nil, nil, err
	}
	mentions, err := s.scanTagCounts(ctx,
		`SELECT tag, COUNT(*), MAX(created_at) FROM comments, unnest(mentions) AS tag
		 WHERE content_id = $1 AND deleted_at IS NULL
		   AND moderation IN ('approved','auto_approved') AND created_at >= $2
		 GROUP BY tag`, contentID, since)
	if err != nil {
		return nil, nil, err
	}
	return hashtags, mentions, nil
}
