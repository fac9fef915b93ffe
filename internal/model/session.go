package model

// Session is the authenticated identity bound to a single live realtime
// connection. It exists only in memory: created when a connection completes
// the login event, discarded on disconnect, never persisted.
//
// A user may hold several sessions at once (one per open connection); each
// connection holds at most one.
type Session struct {
	ConnID   string
	UserID   string
	Username string
}
