package discord

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// dialTestConn opens a websocket connection against a server that accepts
// the upgrade and then just holds the connection.
func dialTestConn(t *testing.T) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestHeartbeatFailureClosesSession(t *testing.T) {
	conn := dialTestConn(t)

	s := &gatewaySession{
		conn:   conn,
		logger: zap.NewNop(),
		done:   make(chan struct{}),
	}

	// Kill the connection so the next heartbeat write fails.
	require.NoError(t, conn.Close())
	go s.heartbeatLoop(5 * time.Millisecond)

	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatal("session not closed after heartbeat failure")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	conn := dialTestConn(t)

	s := &gatewaySession{
		conn:   conn,
		logger: zap.NewNop(),
		done:   make(chan struct{}),
	}

	require.NoError(t, s.close())
	// Second close must not panic or re-close the done channel.
	s.close()

	select {
	case <-s.done:
	default:
		t.Fatal("done channel not closed")
	}
}
