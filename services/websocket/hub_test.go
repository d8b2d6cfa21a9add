package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerClient(t *testing.T, h *Hub, userID uint) *Client {
	t.Helper()
	c := newClient(userID)
	h.register <- c
	require.Eventually(t, func() bool { return h.IsOnline(userID) }, time.Second, 5*time.Millisecond)
	return c
}

func TestSendFrameRoutesByUser(t *testing.T) {
	h := NewHub()
	go h.Run()

	alice := registerClient(t, h, 1)
	bob := registerClient(t, h, 2)
	assert.Equal(t, 2, h.GetClientCount())

	h.SendFrame(1, FrameChatMessage, map[string]string{"message": "hi"})

	select {
	case raw := <-alice.send:
		var msg struct {
			Type string            `json:"type"`
			Data map[string]string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, FrameChatMessage, msg.Type)
		assert.Equal(t, "hi", msg.Data["message"])
	case <-time.After(time.Second):
		t.Fatal("alice got nothing")
	}

	select {
	case <-bob.send:
		t.Fatal("bob should not receive alice's frame")
	default:
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := registerClient(t, h, 5)
	h.unregister <- c
	require.Eventually(t, func() bool { return !h.IsOnline(5) }, time.Second, 5*time.Millisecond)

	_, open := <-c.send
	assert.False(t, open)
}

func TestFullBufferDropsClient(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := registerClient(t, h, 9)
	for i := 0; i < sendBuffer; i++ {
		h.BroadcastToUser(9, i)
	}
	assert.True(t, h.IsOnline(9))

	h.BroadcastToUser(9, "overflow")
	assert.False(t, h.IsOnline(9))
	assert.Len(t, c.send, sendBuffer)
}

func TestBroadcastReachesEveryone(t *testing.T) {
	h := NewHub()
	go h.Run()

	a := registerClient(t, h, 1)
	b := registerClient(t, h, 2)
	h.Broadcast(Message{Type: "ping"})

	assert.Len(t, a.send, 1)
	assert.Len(t, b.send, 1)
}
