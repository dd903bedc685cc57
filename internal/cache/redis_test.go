package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCacheFromClient(client), mr
}

func TestBlacklistToken(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if hit, err := c.IsTokenBlacklisted(ctx, "abc"); err != nil || hit {
		t.Fatalf("IsTokenBlacklisted() on fresh token = %v, %v", hit, err)
	}

	if err := c.BlacklistToken(ctx, "abc", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("BlacklistToken() error = %v", err)
	}
	if hit, err := c.IsTokenBlacklisted(ctx, "abc"); err != nil || !hit {
		t.Errorf("IsTokenBlacklisted() = %v, %v; want true", hit, err)
	}

	// 黑名单随 Token 一起过期
	mr.FastForward(2 * time.Minute)
	if hit, _ := c.IsTokenBlacklisted(ctx, "abc"); hit {
		t.Error("blacklist entry outlived the token")
	}
}

func TestRevokeSession(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if err := c.RevokeSession(ctx, "sid-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RevokeSession() error = %v", err)
	}
	if hit, err := c.IsSessionRevoked(ctx, "sid-1"); err != nil || !hit {
		t.Errorf("IsSessionRevoked(sid-1) = %v, %v; want true", hit, err)
	}
	if hit, err := c.IsSessionRevoked(ctx, "sid-2"); err != nil || hit {
		t.Errorf("IsSessionRevoked(sid-2) = %v, %v; want false", hit, err)
	}

	mr.FastForward(2 * time.Hour)
	if hit, _ := c.IsSessionRevoked(ctx, "sid-1"); hit {
		t.Error("revoked session outlived its tokens")
	}
}

func TestRevocationChecksReportRedisErrors(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	ctx := context.Background()
	if _, err := c.IsTokenBlacklisted(ctx, "abc"); err == nil {
		t.Error("IsTokenBlacklisted() with redis down returned no error")
	}
	if _, err := c.IsSessionRevoked(ctx, "sid"); err == nil {
		t.Error("IsSessionRevoked() with redis down returned no error")
	}
}

func TestBlacklistExpiredTokenIsNoop(t *testing.T) {
	c, mr := newTestCache(t)

	if err := c.BlacklistToken(context.Background(), "old", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("BlacklistToken() error = %v", err)
	}
	if mr.Exists("jwt:blacklist:old") {
		t.Error("expired token should not be stored")
	}
}

func TestStatsCache(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Total int `json:"total"`
	}

	var got payload
	hit, err := c.GetStats(ctx, "dashboard:管理员", &got)
	if err != nil || hit {
		t.Fatalf("GetStats() on empty cache = %v, %v", hit, err)
	}

	if err := c.SetStats(ctx, "dashboard:管理员", payload{Total: 5}, 30*time.Second); err != nil {
		t.Fatalf("SetStats() error = %v", err)
	}
	hit, err = c.GetStats(ctx, "dashboard:管理员", &got)
	if err != nil || !hit || got.Total != 5 {
		t.Errorf("GetStats() = %v, %+v, %v", hit, got, err)
	}

	if err := c.SetStats(ctx, "dashboard:学生", payload{Total: 1}, 0); err != nil {
		t.Fatalf("SetStats(ttl=0) error = %v", err)
	}
	if mr.Exists("stats:dashboard:学生") {
		t.Error("ttl=0 should not cache")
	}
}

func TestPublishEvent(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	sub := c.SubscribeEvents(ctx)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := c.PublishEvent(ctx, map[string]string{"type": "device:status"}); err != nil {
		t.Fatalf("PublishEvent() error = %v", err)
	}

	select {
	case msg := <-sub.Channel():
		if msg.Payload != `{"type":"device:status"}` {
			t.Errorf("payload = %s", msg.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}
