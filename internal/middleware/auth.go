// Package middleware 提供 HTTP 请求的中间件
// 包括 JWT 认证、角色检查、CORS 跨域、日志记录等
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"lab-reservation-server/internal/cache"
	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/service"
	"lab-reservation-server/pkg/jwt"
	"lab-reservation-server/pkg/response"
	"lab-reservation-server/pkg/util"
)

// 上下文键
const (
	keyCaller    = "caller"
	keyToken     = "token"
	keyRequestID = "request_id"
)

// 认证失败的原因
var (
	ErrTokenMissing     = errors.New("token missing")
	ErrTokenRevoked     = errors.New("token revoked")
	ErrTokenUnknownRole = errors.New("token carries unknown role")
	ErrTokenCheckFailed = errors.New("token revocation check failed")
)

// TokenInfo 已通过验证的 Access Token
type TokenInfo struct {
	Raw       string    // 原始 Token，登出时计算哈希
	SessionID string    // 会话 ID，登出时吊销整个会话
	ExpireAt  time.Time // 过期时间，用于设置黑名单 TTL
}

// Authenticate 验证 Access Token 并还原调用者身份
// HTTP 中间件和 WebSocket 握手共用
// 参数:
//   - ctx: 上下文
//   - jwtService: JWT 服务实例
//   - redisCache: Redis 缓存实例，用于检查 Token 黑名单和会话吊销
//   - token: 原始 Token 字符串
//   - ip: 客户端地址
//
// 返回:
//   - service.Caller: 调用者身份
//   - TokenInfo: Token 信息
//   - error: Token 缺失、无效、过期、已登出，或黑名单无法查询
func Authenticate(ctx context.Context, jwtService *jwt.JWTService, redisCache *cache.RedisCache, token, ip string) (service.Caller, TokenInfo, error) {
	if token == "" {
		return service.Caller{}, TokenInfo{}, ErrTokenMissing
	}
	claims, err := jwtService.ValidateToken(token)
	if err != nil {
		return service.Caller{}, TokenInfo{}, err
	}

	// 用户登出后，Token 和所属会话会被加入黑名单
	// 黑名单查不到时无法确认 Token 未被吊销，一律拒绝
	revoked, err := redisCache.IsTokenBlacklisted(ctx, util.HashToken(token))
	if err != nil {
		return service.Caller{}, TokenInfo{}, fmt.Errorf("%w: %v", ErrTokenCheckFailed, err)
	}
	if !revoked && claims.SessionID() != "" {
		revoked, err = redisCache.IsSessionRevoked(ctx, claims.SessionID())
		if err != nil {
			return service.Caller{}, TokenInfo{}, fmt.Errorf("%w: %v", ErrTokenCheckFailed, err)
		}
	}
	if revoked {
		return service.Caller{}, TokenInfo{}, ErrTokenRevoked
	}

	role, err := model.ParseRole(claims.Role)
	if err != nil {
		return service.Caller{}, TokenInfo{}, ErrTokenUnknownRole
	}

	info := TokenInfo{Raw: token, SessionID: claims.SessionID()}
	if claims.ExpiresAt != nil {
		info.ExpireAt = claims.ExpiresAt.Time
	}
	return service.Caller{
		UserID: claims.UserID,
		Name:   claims.Name,
		Role:   role,
		IP:     ip,
	}, info, nil
}

// AuthMiddleware 创建 JWT 认证中间件
// 验证请求头中的 Bearer Token，并将调用者身份存入上下文
// 参数:
//   - jwtService: JWT 服务实例，用于解析和验证 Token
//   - redisCache: Redis 缓存实例，用于检查 Token 黑名单
//
// 返回:
//   - gin.HandlerFunc: Gin 中间件函数
func AuthMiddleware(jwtService *jwt.JWTService, redisCache *cache.RedisCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 从请求头获取 Authorization 字段
		// 格式: "Bearer <token>"
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "认证格式错误")
			c.Abort()
			return
		}
		tokenString := parts[1]

		// 2. 验证 Token 并检查黑名单
		caller, info, err := Authenticate(c.Request.Context(), jwtService, redisCache, tokenString, c.ClientIP())
		switch {
		case errors.Is(err, ErrTokenRevoked):
			response.Unauthorized(c, "Token 已失效，请重新登录")
			c.Abort()
			return
		case errors.Is(err, ErrTokenCheckFailed):
			_ = c.Error(err)
			response.ErrorWithCode(c, http.StatusServiceUnavailable, response.CodeInternalError, "认证服务暂不可用，请稍后重试")
			c.Abort()
			return
		case err != nil:
			response.Unauthorized(c, "Token 无效或已过期")
			c.Abort()
			return
		}

		// 3. 将调用者信息存入上下文
		c.Set(keyCaller, caller)
		c.Set(keyToken, info) // 登出时使用

		c.Next()
	}
}

// RequireRole 要求调用者为给定角色之一
// 必须放在 AuthMiddleware 之后
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetCaller(c).HasRole(roles...) {
			response.Forbidden(c, "权限不足")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetCaller 从上下文获取调用者
// 未认证时返回零值
func GetCaller(c *gin.Context) service.Caller {
	v, exists := c.Get(keyCaller)
	if !exists {
		return service.Caller{}
	}
	return v.(service.Caller)
}

// GetToken 从上下文获取当前请求的 Token 信息
// 未认证时返回零值
func GetToken(c *gin.Context) TokenInfo {
	v, _ := c.Get(keyToken)
	info, _ := v.(TokenInfo)
	return info
}
