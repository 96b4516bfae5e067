package ws

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nexo/config"
	"nexo/internal/auth"
	"nexo/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_BroadcastToUser(t *testing.T) {
	hub := NewHub()
	a1 := NewSession(1, 4)
	a2 := NewSession(1, 4)
	b := NewSession(2, 4)
	hub.Register(a1)
	hub.Register(a2)
	hub.Register(b)
	assert.Equal(t, 2, hub.SessionCount(1))

	hub.BroadcastToUser(1, map[string]interface{}{"type": domain.EventWalletUpdated, "balance_cents": 6000})

	for _, s := range []*Session{a1, a2} {
		select {
		case msg := <-s.Send:
			assert.JSONEq(t, `{"type":"wallet.updated","balance_cents":6000}`, string(msg))
		default:
			t.Fatal("expected a message")
		}
	}
	assert.Len(t, b.Send, 0)
}

func TestSession_CloseUnregisters(t *testing.T) {
	hub := NewHub()
	s := NewSession(9, 1)
	hub.Register(s)
	s.Close()
	s.Close()

	assert.Equal(t, 0, hub.SessionCount(9))
	assert.NotPanics(t, func() { hub.BroadcastToUser(9, "x") })
	assert.False(t, s.deliver([]byte("late")))
}

func TestSession_FullBufferDrops(t *testing.T) {
	s := NewSession(1, 1)
	assert.True(t, s.deliver([]byte("a")))
	assert.False(t, s.deliver([]byte("b")))
}

func TestServePartner(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.JWTConfig{AccessSecret: "secret", AccessExpiry: time.Hour}
	log := logrus.New()
	log.SetOutput(io.Discard)
	hub := NewHub()

	r := gin.New()
	r.GET("/ws/partner", ServePartner(cfg, hub, log))
	srv := httptest.NewServer(r)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/partner"

	t.Run("RejectsAdminToken", func(t *testing.T) {
		token, err := auth.GenerateAccessToken(cfg, 1, domain.RoleAdmin)
		require.NoError(t, err)
		_, resp, err := websocket.DefaultDialer.Dial(base+"?token="+token, nil)
		require.Error(t, err)
		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("StreamsEvents", func(t *testing.T) {
		token, err := auth.GenerateAccessToken(cfg, 5, domain.RolePartner)
		require.NoError(t, err)
		conn, _, err := websocket.DefaultDialer.Dial(base+"?token="+token, nil)
		require.NoError(t, err)
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))

		_, hello, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"connected"}`, string(hello))

		require.Eventually(t, func() bool { return hub.SessionCount(5) == 1 }, time.Second, 10*time.Millisecond)
		hub.BroadcastToUser(5, map[string]interface{}{"type": domain.EventLeadAccepted, "booking_id": 3})

		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(msg, &got))
		assert.Equal(t, domain.EventLeadAccepted, got["type"])
	})
}
