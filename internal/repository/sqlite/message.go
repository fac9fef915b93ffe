package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/pollchat/internal/model"
	"github.com/sakif/pollchat/internal/repository"
)

// compile-time check that *DB implements repository.MessageRepository
var _ repository.MessageRepository = (*DB)(nil)

// Insert appends a new chat message and sets msg.ID to the generated
// auto-increment id. Returning the id from the insert result (rather than a
// follow-up query) means the caller always broadcasts the id the database
// actually assigned.
func (db *DB) Insert(ctx context.Context, msg *model.ChatMessage) error {
	msg.CreatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO messages (author_id, text, created_at) VALUES (?, ?, ?)`,
		msg.AuthorID,
		msg.Text,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading inserted message id: %w", err)
	}
	msg.ID = id

	return nil
}

// Update rewrites a message's text, but only when both the id and the author
// match — the ownership gate lives in the WHERE clause, so check and mutation
// are one atomic statement. Returns true iff a row was changed.
func (db *DB) Update(ctx context.Context, id int64, authorID, text string) (bool, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE messages SET text = ? WHERE id = ? AND author_id = ?`,
		text, id, authorID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: updating message %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return affected > 0, nil
}

// Delete removes a message, gated on ownership the same way as Update.
// Returns true iff a row was removed.
func (db *DB) Delete(ctx context.Context, id int64, authorID string) (bool, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM messages WHERE id = ? AND author_id = ?`,
		id, authorID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: deleting message %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListWithAuthor returns the full transcript joined with each author's
// username, ordered by id ascending so history replays in insertion order.
func (db *DB) ListWithAuthor(ctx context.Context) ([]model.ChatEntry, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT messages.id, users.username, messages.text
		 FROM messages
		 JOIN users ON messages.author_id = users.id
		 ORDER BY messages.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing messages: %w", err)
	}
	defer rows.Close()

	entries := make([]model.ChatEntry, 0, 64)
	for rows.Next() {
		var e model.ChatEntry
		if err := rows.Scan(&e.ID, &e.User, &e.Text); err != nil {
			return nil, fmt.Errorf("sqlite: scanning message row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating message rows: %w", err)
	}

	return entries, nil
}
