package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// isUniqueViolation matches the partial unique index on active holds and
// the tickets uniqueness backstop. The constraint, not the advisory guard
// checks, is what decides a race.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isExclusionViolation matches the stop-range exclusion constraint on
// tickets (no two non-cancelled tickets for one trip/seat with
// overlapping stretches).
func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}
