package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/pollchat/internal/apperror"
	"github.com/sakif/pollchat/internal/model"
	"github.com/sakif/pollchat/internal/repository"
)

// compile-time check that *DB implements repository.VoteRepository
var _ repository.VoteRepository = (*DB)(nil)

// List returns every poll option with its current count, in seed order
// (rowid order matches the order the options were inserted at startup).
func (db *DB) List(ctx context.Context) ([]model.VoteOption, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT option, count FROM votes ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing vote options: %w", err)
	}
	defer rows.Close()

	var options []model.VoteOption
	for rows.Next() {
		var o model.VoteOption
		if err := rows.Scan(&o.Option, &o.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning vote row: %w", err)
		}
		options = append(options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating vote rows: %w", err)
	}

	return options, nil
}

// Increment atomically adds one vote to the option and returns the new count.
//
// The whole increment is a single UPDATE statement, so there is no
// read-modify-write window: two connections voting for the same option at the
// same moment both land, serialized by the database's row lock.
//
// Returns apperror.ErrNotFound for options outside the seeded set — the
// caller turns that into a silent no-op with no broadcast.
func (db *DB) Increment(ctx context.Context, option string) (int, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE votes SET count = count + 1 WHERE option = ?`, option)
	if err != nil {
		return 0, fmt.Errorf("sqlite: incrementing vote %q: %w", option, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return 0, apperror.NotFound("vote option", option)
	}

	var count int
	err = db.conn.QueryRowContext(ctx,
		`SELECT count FROM votes WHERE option = ?`, option,
	).Scan(&count)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, apperror.NotFound("vote option", option)
		}
		return 0, fmt.Errorf("sqlite: reading count for %q: %w", option, err)
	}

	return count, nil
}
