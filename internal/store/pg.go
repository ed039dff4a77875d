package store

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgerr maps driver failures onto the store error taxonomy. Anything not
// recognized is reported as the store being unavailable.
func pgerr(err error) error {
	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		switch pge.Code {
		case "23505": // unique_violation
			return Conflict("duplicate record")
		case "23503": // foreign_key_violation
			return NotFound("referenced record not found")
		}
	}
	return Unavailable(err)
}

// escapeLike escapes LIKE metacharacters in a user-supplied search term.
func escapeLike(q string) string {
	q = strings.ReplaceAll(q, `\`, `\\`)
	q = strings.ReplaceAll(q, `%`, `\%`)
	q = strings.ReplaceAll(q, `_`, `\_`)
	return q
}
