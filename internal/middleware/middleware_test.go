package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"lab-reservation-server/internal/cache"
	"lab-reservation-server/internal/model"
	"lab-reservation-server/pkg/jwt"
	"lab-reservation-server/pkg/logger"
	"lab-reservation-server/pkg/util"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(t *testing.T) (*gin.Engine, *jwt.JWTService, *cache.RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	rc := cache.NewRedisCacheFromClient(client)
	js := jwt.NewJWTService("0123456789abcdef0123456789abcdef", 15*time.Minute, time.Hour)

	r := gin.New()
	r.Use(RequestIDMiddleware(), RecoveryMiddleware(logger.Nop()))
	auth := r.Group("/", AuthMiddleware(js, rc))
	auth.GET("/me", func(c *gin.Context) {
		caller := GetCaller(c)
		c.String(http.StatusOK, "%d %s", caller.UserID, caller.Role)
	})
	auth.GET("/admin", RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r, js, rc
}

func TestAuthMiddleware(t *testing.T) {
	r, js, rc := newAuthRouter(t)
	student, _ := js.GenerateAccessToken(5, "张三", "学生")
	admin, _ := js.GenerateAccessToken(1, "管理员", "管理员")
	refresh, _ := js.GenerateRefreshToken(5, "张三", "学生")
	oddRole, _ := js.GenerateAccessToken(6, "x", "访客")
	revoked, _ := js.GenerateAccessToken(7, "y", "教师")
	if err := rc.BlacklistToken(context.Background(), util.HashToken(revoked), time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("BlacklistToken() error = %v", err)
	}
	loggedOut, _ := js.GenerateTokenPair(8, "z", "学生")
	if err := rc.RevokeSession(context.Background(), loggedOut.SessionID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RevokeSession() error = %v", err)
	}

	tests := []struct {
		name   string
		path   string
		header string
		want   int
		body   string
	}{
		{name: "no header", path: "/me", want: http.StatusUnauthorized},
		{name: "not bearer", path: "/me", header: "Token " + student, want: http.StatusUnauthorized},
		{name: "refresh token", path: "/me", header: "Bearer " + refresh, want: http.StatusUnauthorized},
		{name: "unknown role", path: "/me", header: "Bearer " + oddRole, want: http.StatusUnauthorized},
		{name: "revoked", path: "/me", header: "Bearer " + revoked, want: http.StatusUnauthorized},
		{name: "revoked session", path: "/me", header: "Bearer " + loggedOut.AccessToken, want: http.StatusUnauthorized},
		{name: "valid", path: "/me", header: "Bearer " + student, want: http.StatusOK, body: "5 学生"},
		{name: "student on admin route", path: "/admin", header: "Bearer " + student, want: http.StatusForbidden},
		{name: "admin on admin route", path: "/admin", header: "Bearer " + admin, want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if tt.body != "" && w.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.body)
			}
		})
	}
}

func TestAuthMiddlewareRejectsWhenBlacklistUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	js := jwt.NewJWTService("0123456789abcdef0123456789abcdef", 15*time.Minute, time.Hour)

	r := gin.New()
	r.GET("/me", AuthMiddleware(js, cache.NewRedisCacheFromClient(client)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	mr.Close()
	token, _ := js.GenerateAccessToken(5, "张三", "学生")
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 (%s)", w.Code, w.Body.String())
	}
}

func TestRequestIDAndRecovery(t *testing.T) {
	r, _, _ := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(RequestIDHeader, "abc123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if got := w.Header().Get(RequestIDHeader); got != "abc123" {
		t.Errorf("request id = %q, want abc123", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if len(w.Header().Get(RequestIDHeader)) != 32 {
		t.Errorf("generated request id = %q", w.Header().Get(RequestIDHeader))
	}
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware(DefaultCORSConfig("http://localhost:3000")))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("allow origin = %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
	if w.Header().Get("Access-Control-Max-Age") != "86400" {
		t.Errorf("max age = %q", w.Header().Get("Access-Control-Max-Age"))
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("foreign origin allowed: %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}
