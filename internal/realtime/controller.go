package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/sakif/pollchat/internal/apperror"
	"github.com/sakif/pollchat/internal/model"
	"github.com/sakif/pollchat/internal/repository"
	"github.com/sakif/pollchat/internal/session"
)

// Broadcaster is the slice of the hub the controller needs: fan an event out
// to every connection. Tests substitute a recording fake.
type Broadcaster interface {
	Broadcast(name string, data any)
}

// Conn is one connected client as the controller sees it. *Client implements
// it; tests substitute a recording fake.
type Conn interface {
	ID() string
	Send(name string, data any)
}

// Controller is the serialization point between inbound commands and the
// store: it validates each command against the session registry, applies the
// mutation, re-reads canonical state where the protocol calls for a snapshot,
// and tells the hub what to broadcast.
//
// Each connection's commands arrive here sequentially from its own read pump,
// and every mutation is a single atomic statement in the store — together
// that yields per-connection causal ordering without any global lock.
//
// Storage errors inside a handler are logged and swallowed: the connection
// stays open and the command is simply lost, which the client can tolerate
// because every poll update is a full snapshot.
type Controller struct {
	hub      Broadcaster
	sessions *session.Registry
	users    repository.UserRepository
	votes    repository.VoteRepository
	messages repository.MessageRepository
	logger   *slog.Logger
}

// NewController wires the controller to its collaborators.
func NewController(
	hub Broadcaster,
	sessions *session.Registry,
	users repository.UserRepository,
	votes repository.VoteRepository,
	messages repository.MessageRepository,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		hub:      hub,
		sessions: sessions,
		users:    users,
		votes:    votes,
		messages: messages,
		logger:   logger,
	}
}

// HandleConnect unicasts the current vote tally and the full chat history to
// a newly connected client. The caller must invoke this BEFORE registering
// the client with the hub, so both snapshots are queued ahead of any
// subsequent broadcast.
func (ctl *Controller) HandleConnect(ctx context.Context, c Conn) {
	tally, err := ctl.pollSnapshot(ctx)
	if err != nil {
		ctl.logger.Error("failed to read poll snapshot",
			slog.String("connID", c.ID()),
			slog.String("error", err.Error()),
		)
	} else {
		c.Send(EventUpdatePoll, tally)
	}

	history, err := ctl.messages.ListWithAuthor(ctx)
	if err != nil {
		ctl.logger.Error("failed to read chat history",
			slog.String("connID", c.ID()),
			slog.String("error", err.Error()),
		)
		return
	}
	c.Send(EventChatHistory, history)
}

// HandleDisconnect drops the connection's session. No broadcast — other
// clients are not told about departures.
func (ctl *Controller) HandleDisconnect(c Conn) {
	ctl.sessions.Unbind(c.ID())
}

// Dispatch routes one inbound command to its handler. Unknown event names are
// ignored (logged at debug), matching the protocol's silent-no-op posture.
func (ctl *Controller) Dispatch(ctx context.Context, c Conn, evt *Event) {
	switch evt.Name {
	case EventLogin:
		ctl.handleLogin(ctx, c, evt.Data)
	case EventVote:
		ctl.handleVote(ctx, c, evt.Data)
	case EventChatMessage:
		ctl.handleChatMessage(ctx, c, evt.Data)
	case EventEditChatMessage:
		ctl.handleEditChatMessage(ctx, c, evt.Data)
	case EventDeleteChatMessage:
		ctl.handleDeleteChatMessage(ctx, c, evt.Data)
	case EventTyping:
		ctl.handleTyping(c)
	default:
		ctl.logger.Debug("unknown event",
			slog.String("connID", c.ID()),
			slog.String("event", evt.Name),
		)
	}
}

// handleLogin binds the connection to a user identity.
//
// The userId comes from the HTTP login/register response the client stored.
// An unknown id is a silent no-op — no error event goes back. The transition
// is one-way: there is no server-side logout, the session lives until the
// connection drops.
func (ctl *Controller) handleLogin(ctx context.Context, c Conn, data json.RawMessage) {
	var userID string
	if err := json.Unmarshal(data, &userID); err != nil || userID == "" {
		return
	}

	user, err := ctl.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			ctl.logger.Error("login lookup failed",
				slog.String("connID", c.ID()),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	ctl.sessions.Bind(c.ID(), user.ID, user.Username)
	c.Send(EventLoginSuccess, user.Username)

	ctl.logger.Info("session bound",
		slog.String("connID", c.ID()),
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
}

// handleVote atomically increments the option's count and broadcasts the full
// updated tally to everyone. Full snapshots (not deltas) mean a client that
// missed an update is corrected by the next one.
//
// Unknown options change nothing and trigger no broadcast.
func (ctl *Controller) handleVote(ctx context.Context, c Conn, data json.RawMessage) {
	var option string
	if err := json.Unmarshal(data, &option); err != nil || option == "" {
		return
	}

	if _, err := ctl.votes.Increment(ctx, option); err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			ctl.logger.Error("vote increment failed",
				slog.String("connID", c.ID()),
				slog.String("option", option),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	tally, err := ctl.pollSnapshot(ctx)
	if err != nil {
		ctl.logger.Error("failed to read poll snapshot after vote",
			slog.String("option", option),
			slog.String("error", err.Error()),
		)
		return
	}

	ctl.hub.Broadcast(EventUpdatePoll, tally)
}

// handleChatMessage persists a message from an authenticated session and
// broadcasts it — sender included, so every client (author too) renders the
// message with the id the database assigned.
func (ctl *Controller) handleChatMessage(ctx context.Context, c Conn, data json.RawMessage) {
	sess, ok := ctl.sessions.Resolve(c.ID())
	if !ok {
		return
	}

	var text string
	if err := json.Unmarshal(data, &text); err != nil || text == "" {
		return
	}

	msg := &model.ChatMessage{AuthorID: sess.UserID, Text: text}
	if err := ctl.messages.Insert(ctx, msg); err != nil {
		ctl.logger.Error("failed to persist chat message",
			slog.String("connID", c.ID()),
			slog.String("error", err.Error()),
		)
		return
	}

	ctl.hub.Broadcast(EventNewChat, model.ChatEntry{
		ID:   msg.ID,
		User: sess.Username,
		Text: msg.Text,
	})
}

// handleEditChatMessage rewrites a message's text, gated on ownership: the
// store only touches a row whose author matches the session's user. Zero rows
// changed (wrong owner or no such id) means no broadcast.
func (ctl *Controller) handleEditChatMessage(ctx context.Context, c Conn, data json.RawMessage) {
	sess, ok := ctl.sessions.Resolve(c.ID())
	if !ok {
		return
	}

	var payload editPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Text == "" {
		return
	}

	changed, err := ctl.messages.Update(ctx, payload.ID, sess.UserID, payload.Text)
	if err != nil {
		ctl.logger.Error("failed to edit chat message",
			slog.String("connID", c.ID()),
			slog.Int64("messageID", payload.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if !changed {
		return
	}

	ctl.hub.Broadcast(EventEditChatMessage, payload)
}

// handleDeleteChatMessage removes a message under the same ownership gate as
// edit; the deletion is broadcast only when a row was actually removed.
func (ctl *Controller) handleDeleteChatMessage(ctx context.Context, c Conn, data json.RawMessage) {
	sess, ok := ctl.sessions.Resolve(c.ID())
	if !ok {
		return
	}

	var id int64
	if err := json.Unmarshal(data, &id); err != nil || id == 0 {
		return
	}

	removed, err := ctl.messages.Delete(ctx, id, sess.UserID)
	if err != nil {
		ctl.logger.Error("failed to delete chat message",
			slog.String("connID", c.ID()),
			slog.Int64("messageID", id),
			slog.String("error", err.Error()),
		)
		return
	}
	if !removed {
		return
	}

	ctl.hub.Broadcast(EventDeleteChatMessage, id)
}

// handleTyping relays a typing notification: broadcast the session's username
// so other clients can show the indicator. Unauthenticated connections are
// ignored.
func (ctl *Controller) handleTyping(c Conn) {
	sess, ok := ctl.sessions.Resolve(c.ID())
	if !ok {
		return
	}
	ctl.hub.Broadcast(EventTyping, sess.Username)
}

// pollSnapshot reads the canonical tally as the map the wire contract uses.
func (ctl *Controller) pollSnapshot(ctx context.Context) (map[string]int, error) {
	options, err := ctl.votes.List(ctx)
	if err != nil {
		return nil, err
	}
	tally := make(map[string]int, len(options))
	for _, o := range options {
		tally[o.Option] = o.Count
	}
	return tally, nil
}
