package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/batgear/batstore-backend/internal/app/model"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startFeed(t *testing.T) (*Hub, string) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	router := gin.New()
	router.GET("/ws/orders", func(c *gin.Context) {
		c.Set("user_id", uint(1))
		c.Next()
	}, Handler(hub, []string{"http://localhost:3000"}))

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return hub, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/orders"
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	require.Eventually(t, func() bool {
		return hub.ClientCount() == n
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastsOrderEvents(t *testing.T) {
	hub, url := startFeed(t)

	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer first.Close()
	second, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer second.Close()
	waitForClients(t, hub, 2)

	hub.PublishOrderEvent("order.created", &model.Order{ID: 7, OrderNumber: "BAT-1234ABCD"})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)

		var event struct {
			Type  string `json:"type"`
			Order struct {
				ID          uint   `json:"id"`
				OrderNumber string `json:"orderNumber"`
			} `json:"order"`
		}
		require.NoError(t, json.Unmarshal(raw, &event))
		assert.Equal(t, "order.created", event.Type)
		assert.Equal(t, uint(7), event.Order.ID)
		assert.Equal(t, "BAT-1234ABCD", event.Order.OrderNumber)
	}
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub, url := startFeed(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHub_RejectsUnknownOrigin(t *testing.T) {
	_, url := startFeed(t)

	header := map[string][]string{"Origin": {"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestHub_StopClosesSessions(t *testing.T) {
	hub, url := startFeed(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	waitForClients(t, hub, 1)

	hub.Stop()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func assertClosed(t *testing.T, client *Client) {
	t.Helper()
	select {
	case _, ok := <-client.Send:
		assert.False(t, ok, "send channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("send channel left open")
	}
}

func TestHub_RegisterAfterStopIsRefused(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Stop()

	client := NewClient(hub, nil, 7)
	assert.False(t, hub.Register(client))
	assert.Equal(t, 0, hub.ClientCount())
	assertClosed(t, client)
}

func TestHub_RegisterRacingStop(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	clients := make([]*Client, 50)
	var wg sync.WaitGroup
	for i := range clients {
		clients[i] = NewClient(hub, nil, uint(i))
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			hub.Register(c)
		}(clients[i])
	}
	hub.Stop()
	wg.Wait()

	assert.Equal(t, 0, hub.ClientCount())
	for _, c := range clients {
		assertClosed(t, c)
	}
}
