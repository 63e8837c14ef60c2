package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventHubBroadcastsToClients(t *testing.T) {
	hub := NewEventHub(nil)
	go hub.Run()
	defer hub.Stop()

	client := &MockClient{SendChan: make(chan []byte, 16)}
	hub.Register(client)

	hub.Broadcast(NewNoteEvent(EventNoteEmbedded, "n1"))

	select {
	case data := <-client.SendChan:
		var event NoteEvent
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, EventNoteEmbedded, event.Type)
		assert.Equal(t, "n1", event.NoteID)
		assert.NotEmpty(t, event.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("expected broadcast to reach client")
	}
}

func TestEventHubDropsSlowClients(t *testing.T) {
	hub := NewEventHub(nil)
	go hub.Run()
	defer hub.Stop()

	// Zero-capacity channel: the client can never accept a message.
	slow := &MockClient{SendChan: make(chan []byte)}
	fast := &MockClient{SendChan: make(chan []byte, 16)}
	hub.Register(slow)
	hub.Register(fast)

	hub.Broadcast(NewNoteEvent(EventNoteMarkedStale, "n1"))

	select {
	case <-fast.SendChan:
		// The fast client still receives despite the slow one.
	case <-time.After(time.Second):
		t.Fatal("expected fast client to receive broadcast")
	}

	// The slow client's channel was closed on disconnect.
	select {
	case _, open := <-slow.SendChan:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("expected slow client channel to be closed")
	}
}

func TestEventHubUnregister(t *testing.T) {
	hub := NewEventHub(nil)
	go hub.Run()
	defer hub.Stop()

	client := &MockClient{SendChan: make(chan []byte, 16)}
	hub.Register(client)
	hub.Unregister(client)

	// The send channel is closed on unregister.
	select {
	case _, open := <-client.SendChan:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("expected channel close on unregister")
	}

	// Broadcasts after unregister never reach the client.
	hub.Broadcast(NewNoteEvent(EventNoteEmbedded, "n2"))
}

func TestNewNoteEvent(t *testing.T) {
	event := NewNoteEvent(EventNoteEmbedded, "n1")

	assert.Equal(t, EventNoteEmbedded, event.Type)
	assert.Equal(t, "n1", event.NoteID)
	parsed, err := time.Parse(time.RFC3339, event.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), parsed, time.Minute)
}
