package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newHubClient builds a Client with just enough state for hub tests — the
// websocket conn stays nil because Run, Send, and enqueue never touch it.
func newHubClient(id string, buffer int) *Client {
	return &Client{
		id:     id,
		logger: testLogger(),
		send:   make(chan []byte, buffer),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// readFrame pops one frame off the client's send queue, failing the test if
// none arrives in time.
func readFrame(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case frame, ok := <-c.send:
		require.True(t, ok, "send queue closed before a frame arrived")
		var evt Event
		require.NoError(t, json.Unmarshal(frame, &evt))
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a frame")
		return Event{}
	}
}

func TestHubBroadcast_FanOut(t *testing.T) {
	hub := startHub(t)

	a := newHubClient("conn-a", sendBufferSize)
	b := newHubClient("conn-b", sendBufferSize)
	hub.Register(a)
	hub.Register(b)

	hub.Broadcast(EventUpdatePoll, map[string]int{"Climate_Change": 3})

	for _, c := range []*Client{a, b} {
		evt := readFrame(t, c)
		assert.Equal(t, EventUpdatePoll, evt.Name)

		var tally map[string]int
		require.NoError(t, json.Unmarshal(evt.Data, &tally))
		assert.Equal(t, 3, tally["Climate_Change"])
	}
}

// TestHub_SnapshotPrecedesBroadcast pins the delivery-order guarantee: a
// unicast queued before registration comes off the send queue ahead of any
// broadcast that follows registration.
func TestHub_SnapshotPrecedesBroadcast(t *testing.T) {
	hub := startHub(t)

	c := newHubClient("conn-a", sendBufferSize)
	c.Send(EventChatHistory, []string{})
	hub.Register(c)
	hub.Broadcast(EventUpdatePoll, map[string]int{})

	first := readFrame(t, c)
	assert.Equal(t, EventChatHistory, first.Name)

	second := readFrame(t, c)
	assert.Equal(t, EventUpdatePoll, second.Name)
}

func TestHub_SlowClientEvicted(t *testing.T) {
	hub := startHub(t)

	slow := newHubClient("conn-slow", 1)
	healthy := newHubClient("conn-ok", sendBufferSize)
	hub.Register(slow)
	hub.Register(healthy)

	// Fill the slow client's queue, then broadcast twice: the second frame
	// finds its buffer full and the hub drops it.
	require.True(t, slow.enqueue([]byte(`{"event":"filler"}`)))
	hub.Broadcast(EventTyping, "alice")
	hub.Broadcast(EventTyping, "alice")

	// The healthy client still receives both broadcasts.
	assert.Equal(t, EventTyping, readFrame(t, healthy).Name)
	assert.Equal(t, EventTyping, readFrame(t, healthy).Name)

	// The slow client's queue gets closed: after draining what fit, reads
	// report closure instead of blocking.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-slow.send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("slow client was never evicted")
		}
	}
}

func TestHub_UnregisterClosesClient(t *testing.T) {
	hub := startHub(t)

	c := newHubClient("conn-a", sendBufferSize)
	hub.Register(c)
	hub.Unregister(c)

	select {
	case _, ok := <-c.send:
		assert.False(t, ok, "send queue should be closed after unregister")
	case <-time.After(time.Second):
		t.Fatal("send queue not closed after unregister")
	}

	// A second unregister for a client the hub no longer tracks is a no-op.
	hub.Unregister(c)
	assert.False(t, c.enqueue([]byte("x")), "closed client must reject frames")
}

func TestHubBroadcast_UnmarshalableDataDropped(t *testing.T) {
	hub := startHub(t)

	c := newHubClient("conn-a", sendBufferSize)
	hub.Register(c)

	hub.Broadcast(EventUpdatePoll, func() {}) // not JSON-marshalable

	select {
	case frame := <-c.send:
		t.Fatalf("expected no frame, got %s", frame)
	case <-time.After(50 * time.Millisecond):
	}
}
