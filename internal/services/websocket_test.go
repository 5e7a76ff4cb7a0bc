package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastNeverBlocks(t *testing.T) {
	hub := NewHub(testLogger())

	// No Run loop is draining the backlog; overflow must drop, not block.
	for i := 0; i < 300; i++ {
		hub.Broadcast(UpdateEvent{Type: EventWeekCompleted, Season: 2024, Week: i})
	}
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestHubFansOutToClients(t *testing.T) {
	hub := NewHub(testLogger())
	go hub.Run()

	client := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.register <- client

	hub.Broadcast(UpdateEvent{Type: EventRunStarted})
	var event UpdateEvent
	require.NoError(t, json.Unmarshal(<-client.send, &event))
	assert.Equal(t, EventRunStarted, event.Type)

	hub.unregister <- client
	_, open := <-client.send
	assert.False(t, open, "unregister closes the client channel")
	assert.Equal(t, 0, hub.ConnectionCount())
}
