package live_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futsal-hq/match-tracker/live"
	"github.com/futsal-hq/match-tracker/models"
)

// envelope повторяет live.WebSocketMessage, но с сырым payload, чтобы
// разобрать его в конкретный тип.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	RoomID  string          `json:"room_id"`
}

func newTestClient(hub *live.Hub, matchID, buffer int) *live.Client {
	return &live.Client{
		Hub:  hub,
		Send: make(chan []byte, buffer),
		Room: live.MatchRoom(matchID),
	}
}

func register(t *testing.T, hub *live.Hub, client *live.Client, matchID, want int) {
	t.Helper()
	hub.Register <- client
	require.Eventually(t, func() bool {
		return hub.RoomSize(matchID) == want
	}, time.Second, 5*time.Millisecond)
}

func receive(t *testing.T, client *live.Client) []byte {
	t.Helper()
	select {
	case msg := <-client.Send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestHubBroadcastMatchUpdate(t *testing.T) {
	hub := live.NewHub()
	go hub.Run()

	viewer := newTestClient(hub, 42, 4)
	register(t, hub, viewer, 42, 1)

	// Зритель другого матча ничего не должен получить.
	other := newTestClient(hub, 7, 4)
	register(t, hub, other, 7, 1)

	hub.BroadcastMatchUpdate(42, &models.Match{ID: 42, HomeScore: 3, AwayScore: 1})

	var env envelope
	require.NoError(t, json.Unmarshal(receive(t, viewer), &env))
	assert.Equal(t, "matchUpdate", env.Type)
	assert.Equal(t, live.MatchRoom(42), env.RoomID)

	var match models.Match
	require.NoError(t, json.Unmarshal(env.Payload, &match))
	assert.Equal(t, 42, match.ID)
	assert.Equal(t, 3, match.HomeScore)

	assert.Empty(t, other.Send)
}

func TestHubBroadcastNewEvent(t *testing.T) {
	hub := live.NewHub()
	go hub.Run()

	viewer := newTestClient(hub, 42, 4)
	register(t, hub, viewer, 42, 1)

	hub.BroadcastNewEvent(42, &models.MatchEvent{ID: 9, MatchID: 42, EventType: models.EventGoal})

	var env envelope
	require.NoError(t, json.Unmarshal(receive(t, viewer), &env))
	assert.Equal(t, "newEvent", env.Type)

	var event models.MatchEvent
	require.NoError(t, json.Unmarshal(env.Payload, &event))
	assert.Equal(t, models.EventGoal, event.EventType)
}

func TestHubSkipsSlowClient(t *testing.T) {
	hub := live.NewHub()
	go hub.Run()

	slow := newTestClient(hub, 42, 1)
	register(t, hub, slow, 42, 1)

	hub.BroadcastMatchUpdate(42, &models.Match{ID: 42, HomeScore: 1})
	// Канал полон: это сообщение должно быть пропущено, а не заблокировать
	// рассылку.
	hub.BroadcastMatchUpdate(42, &models.Match{ID: 42, HomeScore: 2})

	require.Len(t, slow.Send, 1)

	var env envelope
	require.NoError(t, json.Unmarshal(receive(t, slow), &env))
	var match models.Match
	require.NoError(t, json.Unmarshal(env.Payload, &match))
	assert.Equal(t, 1, match.HomeScore)
}

func TestHubUnregisterClosesClient(t *testing.T) {
	hub := live.NewHub()
	go hub.Run()

	viewer := newTestClient(hub, 42, 4)
	register(t, hub, viewer, 42, 1)

	hub.Unregister <- viewer
	require.Eventually(t, func() bool {
		return hub.RoomSize(42) == 0
	}, time.Second, 5*time.Millisecond)

	_, open := <-viewer.Send
	assert.False(t, open)

	// Рассылка в опустевшую комнату безопасна.
	hub.BroadcastMatchUpdate(42, &models.Match{ID: 42})
}
