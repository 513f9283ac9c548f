package websocket

import (
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveHub mounts the hub on a fiber route the way the API does and returns the base ws:// URL.
func serveHub(t *testing.T, hub *Hub) string {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws/:user", fiberws.New(func(c *fiberws.Conn) {
		id, _ := strconv.ParseUint(c.Params("user"), 10, 32)
		hub.ServeFiberWS(c, uint(id))
	}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go app.Listener(ln)
	t.Cleanup(func() { _ = app.ShutdownWithTimeout(time.Second) })
	return "ws://" + ln.Addr().String()
}

func dialHub(t *testing.T, base string, userID uint) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("%s/ws/%d", base, userID), nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.GetClientCount(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBroadcastToUser(t *testing.T) {
	hub := NewHub()
	stop := make(chan struct{})
	defer close(stop)
	go hub.Run(stop)
	base := serveHub(t, hub)

	student := dialHub(t, base, 7)
	other := dialHub(t, base, 8)
	waitForClients(t, hub, 2)

	hub.BroadcastToUser(7, map[string]string{"type": "notification", "title": "Leave approved"})

	student.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := student.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"notification","title":"Leave approved"}`, string(msg))

	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err, "message leaked to another user")
}

func TestDisconnectUnregisters(t *testing.T) {
	hub := NewHub()
	stop := make(chan struct{})
	defer close(stop)
	go hub.Run(stop)
	base := serveHub(t, hub)

	c := dialHub(t, base, 1)
	waitForClients(t, hub, 1)

	require.NoError(t, c.Close())
	waitForClients(t, hub, 0)
}
