package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"lab-reservation-server/internal/model"
	"lab-reservation-server/pkg/jwt"
	"lab-reservation-server/pkg/logger"
	"lab-reservation-server/pkg/util"
)

type wsEnv struct {
	hub    *Hub
	jwt    *jwt.JWTService
	server *httptest.Server
}

func newWSEnv(t *testing.T) *wsEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	redisCache := newRedis(t, miniredis.RunT(t))
	jwtService := jwt.NewJWTService("0123456789abcdef0123456789abcdef", time.Hour, 2*time.Hour)
	hub := startHub(t, nil)

	router := gin.New()
	NewHandler(hub, jwtService, redisCache, []string{"http://lab.example.com"}, logger.Nop()).RegisterRoutes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &wsEnv{hub: hub, jwt: jwtService, server: server}
}

func (e *wsEnv) dial(t *testing.T, token string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if conn != nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func TestHandleWSRejectsBadTokens(t *testing.T) {
	env := newWSEnv(t)
	refresh, _ := env.jwt.GenerateRefreshToken(1, "张三", "学生")

	for name, token := range map[string]string{"missing": "", "garbage": "abc", "refresh token": refresh} {
		t.Run(name, func(t *testing.T) {
			_, resp, err := env.dial(t, token, nil)
			if err != websocket.ErrBadHandshake {
				t.Fatalf("Dial() error = %v, want ErrBadHandshake", err)
			}
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", resp.StatusCode)
			}
		})
	}
}

func TestHandleWSRejectsForeignOrigin(t *testing.T) {
	env := newWSEnv(t)
	token, _ := env.jwt.GenerateAccessToken(1, "张三", "学生")

	_, resp, err := env.dial(t, token, http.Header{"Origin": {"http://evil.example.com"}})
	if err != websocket.ErrBadHandshake || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("Dial() = %v, %v; want 403 handshake failure", resp, err)
	}
}

func TestHandleWSDeliversNotifications(t *testing.T) {
	env := newWSEnv(t)
	token, _ := env.jwt.GenerateAccessToken(1, "张三", "学生")

	conn, _, err := env.dial(t, token, http.Header{"Origin": {"http://lab.example.com"}})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	waitFor(t, "client registration", func() bool { return env.hub.IsUserOnline(1) })

	if err := conn.WriteJSON(NewMessage(TypeHeartbeat, nil)); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != TypePong {
		t.Errorf("heartbeat reply = %s, want pong", msg.Type)
	}

	conn.WriteJSON(NewMessage("terminal:input", nil))
	if msg := readMessage(t, conn); msg.Type != TypeError {
		t.Errorf("unknown type reply = %s, want error", msg.Type)
	}

	env.hub.NotifyDeviceStatus(4, model.DeviceMaintenance)
	msg := readMessage(t, conn)
	payload, _ := msg.Payload.(map[string]interface{})
	if msg.Type != TypeDeviceStatus || payload["status"] != "维修中" {
		t.Errorf("notification = %+v", msg)
	}

	conn.Close()
	waitFor(t, "client removal", func() bool { return !env.hub.IsUserOnline(1) })
}

func TestHandleWSRejectsLoggedOutToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	redisCache := newRedis(t, mr)
	jwtService := jwt.NewJWTService("0123456789abcdef0123456789abcdef", time.Hour, 2*time.Hour)
	hub := startHub(t, nil)

	router := gin.New()
	NewHandler(hub, jwtService, redisCache, nil, logger.Nop()).RegisterRoutes(router)
	server := httptest.NewServer(router)
	defer server.Close()

	token, _ := jwtService.GenerateAccessToken(1, "张三", "学生")
	redisCache.BlacklistToken(context.Background(), util.HashToken(token), time.Now().Add(time.Hour))

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != websocket.ErrBadHandshake || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Dial() = %v; want 401 for revoked token", err)
	}
}
