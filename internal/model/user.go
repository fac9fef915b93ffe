// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — plain values with no behaviour
// attached beyond what the storage and service layers give them.
package model

import "time"

// User represents a registered account.
//
// The ID is a UUID generated at registration time. Users are immutable after
// registration — there are no update or delete paths, so the struct carries
// no UpdatedAt field.
//
// PasswordHash holds the bcrypt output (salt and cost embedded in the string).
// It is tagged `json:"-"` so it can never leak through an API response, no
// matter which handler serializes the struct.
type User struct {
	ID           string    `json:"id"       db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email"    db:"email"`
	Mobile       string    `json:"mobile"   db:"mobile"`
	PasswordHash string    `json:"-"        db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
