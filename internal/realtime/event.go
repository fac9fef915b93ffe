// Package realtime implements the event-driven synchronization layer: the
// websocket hub that fans state-changing events out to every connected
// client, and the controller that turns inbound commands into store
// mutations followed by snapshot broadcasts.
package realtime

import "encoding/json"

// Event is the JSON envelope used in both directions on the wire:
//
//	{"event": "vote", "data": "Climate_Change"}
//
// Data stays raw on the inbound path so each handler can decode the payload
// shape it expects; outbound events are built with Marshal.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Wire event names. These are the contract with the browser client — the
// names themselves are part of the protocol and must not change.
const (
	// client → server commands
	EventLogin             = "login"             // data: userId string
	EventVote              = "vote"              // data: option string
	EventChatMessage       = "chatMessage"       // data: text string
	EventEditChatMessage   = "editChatMessage"   // data: {id, text}
	EventDeleteChatMessage = "deleteChatMessage" // data: id
	EventTyping            = "typing"            // data: none

	// server → client
	EventLoginSuccess = "loginSuccess"   // unicast, data: username
	EventUpdatePoll   = "updatePoll"     // data: map[option]count snapshot
	EventChatHistory  = "chatHistory"    // unicast, data: []ChatEntry
	EventNewChat      = "newChatMessage" // data: {id, user, text}
)

// editPayload is the body of editChatMessage in both directions.
type editPayload struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// Marshal builds an outbound event, encoding data into the envelope.
func Marshal(name string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Name: name, Data: raw})
}
