// Package repository defines the storage interfaces the rest of the
// application programs against. The sqlite subpackage is the concrete
// implementation; services only ever see these interfaces, which keeps them
// trivial to fake in tests.
package repository

import (
	"context"

	"github.com/sakif/pollchat/internal/model"
)

// UserRepository persists registered accounts.
//
// Users are write-once: Create is the only mutation. A duplicate username
// surfaces as apperror.ErrConflict so callers can distinguish it from a
// storage failure.
type UserRepository interface {
	// Create inserts the user, generating its ID. The caller's struct is
	// modified in place with the generated ID and CreatedAt.
	Create(ctx context.Context, user *model.User) error
	// GetByUsername returns apperror.ErrNotFound if no such user exists.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// GetByID returns apperror.ErrNotFound if no such user exists.
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// VoteRepository persists the poll tally.
type VoteRepository interface {
	// List returns every option with its current count, in seed order.
	List(ctx context.Context) ([]model.VoteOption, error)
	// Increment atomically adds one to the option's count and returns the new
	// value. Unknown options return apperror.ErrNotFound. The increment is a
	// single conditional UPDATE, so concurrent votes on the same option never
	// lose updates.
	Increment(ctx context.Context, option string) (int, error)
}

// MessageRepository persists the chat transcript.
//
// Update and Delete are ownership-gated: they touch a row only when both the
// id and the author match, and report via their bool return whether a row was
// actually changed. A false result with a nil error means "wrong owner or no
// such message" — the caller treats that as a silent no-op.
type MessageRepository interface {
	// Insert appends the message and sets msg.ID to the generated
	// auto-increment id before returning.
	Insert(ctx context.Context, msg *model.ChatMessage) error
	Update(ctx context.Context, id int64, authorID, text string) (bool, error)
	Delete(ctx context.Context, id int64, authorID string) (bool, error)
	// ListWithAuthor returns every message joined with its author's username,
	// ordered by id ascending (insertion order).
	ListWithAuthor(ctx context.Context) ([]model.ChatEntry, error)
}
