package inapp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-reminder-service/internal/logging"
)

// dialPair spins up a ws endpoint and returns the server side registered on
// the hub plus the client side to read pushed events from.
func dialPair(t *testing.T, hub *Hub, recipientID uuid.UUID) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Register(recipientID, conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	// wait for the server side to land in the hub
	for i := 0; i < 50 && hub.Connections(recipientID) == 0; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, hub.Connections(recipientID))
	return client
}

func TestHubPublishReachesRecipient(t *testing.T) {
	hub := NewHub(logging.Discard())
	recipientID := uuid.New()
	client := dialPair(t, hub, recipientID)

	sent := Event{
		NotificationID: uuid.New(),
		ItemID:         uuid.New(),
		Type:           "reminder",
		Subject:        "Reminder: Trade License expires in 7 day(s)",
		Body:           "Trade License (TL-2209) expires in 7 day(s)",
		CreatedAt:      time.Now().UTC(),
	}
	hub.Publish(recipientID, sent)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := client.ReadMessage()
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, sent.NotificationID, got.NotificationID)
	assert.Equal(t, sent.Subject, got.Subject)
}

func TestHubPublishToOfflineRecipientIsNoop(t *testing.T) {
	hub := NewHub(logging.Discard())
	hub.Publish(uuid.New(), Event{Subject: "nobody listening"})
}

func TestHubIsolatesRecipients(t *testing.T) {
	hub := NewHub(logging.Discard())
	listener := uuid.New()
	other := uuid.New()
	client := dialPair(t, hub, listener)

	hub.Publish(other, Event{Subject: "not yours"})

	client.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := client.ReadMessage()
	assert.Error(t, err, "nothing should arrive for another recipient")
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub(logging.Discard())
	recipientID := uuid.New()

	upgrader := websocket.Upgrader{}
	var server *websocket.Conn
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		server = conn
		hub.Register(recipientID, conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	for i := 0; i < 50 && hub.Connections(recipientID) == 0; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, hub.Connections(recipientID))

	hub.Unregister(recipientID, server)
	assert.Equal(t, 0, hub.Connections(recipientID))
}
