package websocket

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"lab-reservation-server/internal/cache"
	"lab-reservation-server/internal/middleware"
	"lab-reservation-server/pkg/jwt"
	"lab-reservation-server/pkg/response"
)

// Handler 处理 WebSocket 连接
type Handler struct {
	hub        *Hub
	jwtService *jwt.JWTService
	redisCache *cache.RedisCache
	upgrader   websocket.Upgrader
	log        zerolog.Logger
}

// NewHandler 创建 WebSocket Handler
// 参数:
//   - hub: 连接管理器
//   - jwtService: JWT 服务，握手时验证 Token
//   - redisCache: Redis 缓存，检查 Token 黑名单
//   - allowedOrigins: 允许的来源，为空或包含 "*" 时不限制
//   - log: 日志
func NewHandler(hub *Hub, jwtService *jwt.JWTService, redisCache *cache.RedisCache, allowedOrigins []string, log zerolog.Logger) *Handler {
	return &Handler{
		hub:        hub,
		jwtService: jwtService,
		redisCache: redisCache,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return len(set) == 0 || origin == "" || set[origin]
	}
}

// HandleWS 处理 WebSocket 连接
// @Summary 建立实时通知连接
// @Tags 实时通知
// @Param token query string true "Access Token"
// @Router /ws [get]
func (h *Handler) HandleWS(c *gin.Context) {
	// 浏览器 WebSocket 无法设置请求头，token 放在 query 参数中
	caller, _, err := middleware.Authenticate(c.Request.Context(), h.jwtService, h.redisCache, c.Query("token"), c.ClientIP())
	if errors.Is(err, middleware.ErrTokenCheckFailed) {
		h.log.Error().Err(err).Msg("websocket token check failed")
		response.ErrorWithCode(c, http.StatusServiceUnavailable, response.CodeInternalError, "认证服务暂不可用，请稍后重试")
		return
	}
	if err != nil {
		response.Unauthorized(c, "无效或已过期的 token")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Int64("uid", caller.UserID).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, caller)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// RegisterRoutes 注册 WebSocket 路由
// 不经过认证中间件，token 在握手时验证
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/ws", h.HandleWS)
}
