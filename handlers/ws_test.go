package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vidsense/config"
	"vidsense/realtime"
	"vidsense/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func setupEventsTest(t *testing.T) (*httptest.Server, *realtime.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.AppConfig = &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpireHours: 1},
	}

	eventsHub := realtime.NewHub(nil)
	SetHub(eventsHub)

	router := gin.New()
	router.GET("/api/ws", ConnectEvents)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, eventsHub
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws" + query
}

func dialEvents(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, query), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitForJoin covers the window between the handshake response and the
// hub registering the session.
func waitForJoin(t *testing.T, eventsHub *realtime.Hub, userID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for eventsHub.RoomSize(userID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("room %s has %d sessions, want %d", userID, eventsHub.RoomSize(userID), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return string(payload)
}

func TestConnectEventsRejectsMissingToken(t *testing.T) {
	srv, _ := setupEventsTest(t)

	resp, err := http.Get(srv.URL + "/api/ws")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}
}

func TestConnectEventsRejectsBadToken(t *testing.T) {
	srv, _ := setupEventsTest(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token=not-a-token"), nil)
	if err == nil {
		t.Fatal("dial with a bad token succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("response %+v, want 401", resp)
	}
}

func TestConnectEventsJoinsTokenRoom(t *testing.T) {
	srv, eventsHub := setupEventsTest(t)

	aliceToken, err := utils.GenerateToken("alice", "editor")
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	bobToken, err := utils.GenerateToken("bob", "viewer")
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}

	// A user_id parameter must not pick the room; only the token does.
	alice := dialEvents(t, srv, "?token="+aliceToken+"&user_id=bob")
	waitForJoin(t, eventsHub, "alice", 1)
	if eventsHub.RoomSize("bob") != 0 {
		t.Fatal("client-sent user_id opened a room")
	}

	bob := dialEvents(t, srv, "?token="+bobToken)
	waitForJoin(t, eventsHub, "bob", 1)

	eventsHub.Broadcast("alice", []byte(`{"event":"processing_complete"}`))
	if got := readEvent(t, alice); got != `{"event":"processing_complete"}` {
		t.Fatalf("alice received %q", got)
	}
	eventsHub.Broadcast("bob", []byte(`{"event":"processing_failed"}`))
	if got := readEvent(t, bob); got != `{"event":"processing_failed"}` {
		t.Fatalf("bob received %q", got)
	}

	// Alice's events never reach bob's session.
	eventsHub.Broadcast("alice", []byte("private"))
	_ = bob.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, payload, err := bob.ReadMessage(); err == nil {
		t.Fatalf("bob received %q from alice's room", payload)
	}
}
