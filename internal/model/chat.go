package model

import "time"

// ChatMessage is a persisted chat message.
//
// The ID is the database's auto-incrementing integer key; the repository
// returns it explicitly after insert. AuthorID links to users.id — edits and
// deletes are only permitted when the requesting session's user matches it.
type ChatMessage struct {
	ID        int64     `json:"id"       db:"id"`
	AuthorID  string    `json:"authorId" db:"author_id"`
	Text      string    `json:"text"     db:"text"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ChatEntry is a message joined with its author's username — the shape sent
// over the wire in chatHistory and newChatMessage events.
type ChatEntry struct {
	ID   int64  `json:"id"`
	User string `json:"user"`
	Text string `json:"text"`
}
