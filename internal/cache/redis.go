// Package cache 提供 Redis 缓存操作的封装
// 处理 JWT 黑名单、实时事件广播和统计结果缓存
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lab-reservation-server/internal/config"
)

// EventChannel 实时事件广播频道，所有服务实例共同订阅
const EventChannel = "labres:events"

// RedisCache 封装 Redis 客户端，提供业务相关的缓存操作
type RedisCache struct {
	client *redis.Client // Redis 客户端实例
}

// NewRedisCache 创建 RedisCache 实例
// 参数:
//   - cfg: 应用配置（包含 Redis 连接信息）
//
// 返回:
//   - *RedisCache: 缓存实例
//   - error: 连接错误
func NewRedisCache(cfg *config.Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewRedisCacheFromClient 使用已有客户端创建 RedisCache
// 测试中配合 miniredis 使用
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Close 关闭 Redis 连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping 检查 Redis 连接
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// ==================== JWT 黑名单 ====================
// 用于实现 Token 强制失效（登出）功能

// BlacklistToken 将 Token 加入黑名单
// 登出时调用，使当前 Token 失效
// 参数:
//   - ctx: 上下文
//   - tokenHash: Token 的哈希值（不存储原始 Token）
//   - expireAt: Token 的原始过期时间
//
// 返回:
//   - error: Redis 操作错误
func (c *RedisCache) BlacklistToken(ctx context.Context, tokenHash string, expireAt time.Time) error {
	ttl := time.Until(expireAt)
	if ttl <= 0 {
		// Token 已过期，无需加入黑名单
		return nil
	}

	// TTL 设置为 Token 的剩余有效期，过期后自动删除
	return c.client.Set(ctx, fmt.Sprintf("jwt:blacklist:%s", tokenHash), "1", ttl).Err()
}

// IsTokenBlacklisted 检查 Token 是否在黑名单中
// JWT 验证中间件调用，Redis 出错时返回错误，由调用方拒绝请求
func (c *RedisCache) IsTokenBlacklisted(ctx context.Context, tokenHash string) (bool, error) {
	n, err := c.client.Exists(ctx, fmt.Sprintf("jwt:blacklist:%s", tokenHash)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevokeSession 吊销整个登录会话
// 会话内的 Access Token 和 Refresh Token 都会失效
// 参数:
//   - ctx: 上下文
//   - sessionID: 会话 ID（Token 的 jti）
//   - expireAt: 会话中最晚过期的 Token 的过期时间
//
// 返回:
//   - error: Redis 操作错误
func (c *RedisCache) RevokeSession(ctx context.Context, sessionID string, expireAt time.Time) error {
	ttl := time.Until(expireAt)
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, fmt.Sprintf("jwt:session:%s", sessionID), "1", ttl).Err()
}

// IsSessionRevoked 检查会话是否已被吊销
func (c *RedisCache) IsSessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := c.client.Exists(ctx, fmt.Sprintf("jwt:session:%s", sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ==================== Pub/Sub ====================
// 用于多服务实例间的事件广播

// PublishEvent 发布一条实时事件
// 参数:
//   - ctx: 上下文
//   - event: 事件内容（会被 JSON 序列化）
//
// 返回:
//   - error: 序列化或 Redis 操作错误
func (c *RedisCache) PublishEvent(ctx context.Context, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, EventChannel, data).Err()
}

// SubscribeEvents 订阅实时事件频道
// 返回 PubSub 对象，调用方负责关闭
func (c *RedisCache) SubscribeEvents(ctx context.Context) *redis.PubSub {
	return c.client.Subscribe(ctx, EventChannel)
}

// ==================== 统计缓存 ====================

func statsKey(name string) string {
	return "stats:" + name
}

// GetStats 读取缓存的统计结果
// 返回:
//   - bool: 是否命中
//   - error: Redis 或反序列化错误
func (c *RedisCache) GetStats(ctx context.Context, name string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, statsKey(name)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetStats 缓存统计结果，ttl 为 0 时不缓存
func (c *RedisCache) SetStats(ctx context.Context, name string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsKey(name), data, ttl).Err()
}
