package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sakif/pollchat/internal/apperror"
	"github.com/sakif/pollchat/internal/model"
	"github.com/sakif/pollchat/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Create inserts a new user, generating a UUID for its primary key.
//
// Username uniqueness is enforced twice: an explicit lookup first (so the
// common case returns a clean Conflict error), and the UNIQUE constraint as
// the backstop for two registrations racing on the same name.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	var exists int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ?`, user.Username,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("sqlite: checking username %q: %w", user.Username, err)
	}
	if exists > 0 {
		return apperror.Conflict("username", user.Username)
	}

	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, mobile, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.Mobile,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		// Two registrations can pass the lookup above at the same time; the
		// loser hits the UNIQUE constraint here.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("username", user.Username)
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	return nil
}

// GetByUsername retrieves a user by their unique username.
// Returns apperror.ErrNotFound if no such user exists.
func (db *DB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx,
		`SELECT id, username, email, mobile, password_hash, created_at
		 FROM users WHERE username = ?`, username)
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no such user exists.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx,
		`SELECT id, username, email, mobile, password_hash, created_at
		 FROM users WHERE id = ?`, id)
}

func (db *DB) getUser(ctx context.Context, query, key string) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx, query, key).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.Mobile,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("sqlite: getting user %q: %w", key, err)
	}
	return &u, nil
}
