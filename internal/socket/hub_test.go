package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartbin-api-server/internal/models"
	"smartbin-api-server/internal/notify"
)

func newHubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		id := hub.Register(r.URL.Query().Get("user"), conn)
		defer func() {
			hub.Unregister(id)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubNotifyBroadcastsToAllClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := newHubServer(t, hub)

	a := dial(t, srv, "u1")
	b := dial(t, srv, "u1")
	require.Eventually(t, func() bool { return hub.Count() == 2 }, time.Second, 5*time.Millisecond)

	alert := models.Alert{ID: "a1", BinID: "bin-1", Type: models.AlertTypeFullness, Severity: models.SeverityWarning}
	require.NoError(t, hub.Notify(context.Background(), alert))

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var ev notify.AlertEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, notify.EventAlertRaised, ev.Event)
		assert.Equal(t, "a1", ev.Alert.ID)
	}
}

func TestHubUnregisterOnClose(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := newHubServer(t, hub)

	conn := dial(t, srv, "u2")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, hub.Broadcast([]byte("{}")))
}
