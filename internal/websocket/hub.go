package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"lab-reservation-server/internal/cache"
	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/service"
	"lab-reservation-server/pkg/util"
)

// publishTimeout 发布事件到 Redis 的超时时间
const publishTimeout = 2 * time.Second

// Hub 管理所有 WebSocket 连接
// 负责注册/注销客户端，并按角色或用户投递通知
// 多实例部署时，事件经 Redis 频道广播，每个实例只投递给自己的连接
type Hub struct {
	// 所有在线客户端
	clients map[*Client]bool

	// 用户的在线连接: userID -> 客户端集合（同一用户可多端登录）
	userClients map[int64]map[*Client]bool

	// 注册/注销请求通道
	register   chan *Client
	unregister chan *Client

	// Run 退出后关闭，防止注册注销阻塞
	done chan struct{}

	// Redis 订阅已确认时为 true，此时事件走 Redis 广播
	relaying atomic.Bool

	mu    sync.RWMutex
	cache *cache.RedisCache
	loc   *time.Location
	log   zerolog.Logger
}

// NewHub 创建 Hub 实例
// 参数:
//   - redisCache: Redis 缓存，为 nil 时只做本地投递
//   - loc: 推送消息中时间的格式化时区
//   - log: 日志
func NewHub(redisCache *cache.RedisCache, loc *time.Location, log zerolog.Logger) *Hub {
	if loc == nil {
		loc = time.Local
	}
	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[int64]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		cache:       redisCache,
		loc:         loc,
		log:         log.With().Str("component", "ws_hub").Logger(),
	}
}

// Run 启动 Hub 的主循环
// 应该在单独的 goroutine 中运行，ctx 取消时关闭所有连接并退出
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	var events <-chan *redis.Message
	if h.cache != nil {
		sub := h.cache.SubscribeEvents(ctx)
		defer sub.Close()
		// 第一条回复是订阅确认
		if _, err := sub.Receive(ctx); err != nil {
			h.log.Warn().Err(err).Msg("subscribe realtime channel failed, delivering locally")
		} else {
			events = sub.Channel()
			h.relaying.Store(true)
		}
	}

	for {
		select {
		case <-ctx.Done():
			h.relaying.Store(false)
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case m, ok := <-events:
			if !ok {
				events = nil
				h.relaying.Store(false)
				continue
			}
			var ev Event
			if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil || ev.Message == nil {
				h.log.Warn().Err(err).Msg("drop malformed realtime event")
				continue
			}
			h.deliver(&ev)
		}
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	if h.userClients[client.userID] == nil {
		h.userClients[client.userID] = make(map[*Client]bool)
	}
	h.userClients[client.userID][client] = true

	h.log.Info().Str("client_id", client.id).Int64("uid", client.userID).
		Str("role", client.role.String()).Msg("websocket client registered")
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	if set := h.userClients[client.userID]; set != nil {
		delete(set, client)
		if len(set) == 0 {
			delete(h.userClients, client.userID)
		}
	}
	client.Close()

	h.log.Info().Str("client_id", client.id).Int64("uid", client.userID).Msg("websocket client unregistered")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.Close()
	}
	h.clients = make(map[*Client]bool)
	h.userClients = make(map[int64]map[*Client]bool)
}

// Register 注册客户端（供外部调用）
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister 注销客户端（供外部调用）
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount 当前在线连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsUserOnline 用户是否有在线连接
func (h *Hub) IsUserOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[userID]) > 0
}

// ==================== 投递 ====================

// publish 发布事件
// Redis 订阅正常时经频道广播（本实例也会从频道收到），否则直接本地投递
func (h *Hub) publish(to Audience, msg *Message) {
	ev := &Event{To: to, Message: msg}
	if h.cache == nil || !h.relaying.Load() {
		h.deliver(ev)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := h.cache.PublishEvent(ctx, ev); err != nil {
		h.log.Warn().Err(err).Str("type", msg.Type).Msg("publish realtime event failed, delivering locally")
		h.deliver(ev)
	}
}

// deliver 投递给本实例上符合范围的客户端
func (h *Hub) deliver(ev *Event) {
	data, err := json.Marshal(ev.Message)
	if err != nil {
		h.log.Error().Err(err).Str("type", ev.Message.Type).Msg("marshal realtime message failed")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if ev.To.Everyone() {
		for client := range h.clients {
			client.trySend(data)
		}
		return
	}

	sent := make(map[*Client]bool)
	for _, uid := range ev.To.UserIDs {
		for client := range h.userClients[uid] {
			if !sent[client] {
				sent[client] = true
				client.trySend(data)
			}
		}
	}
	if len(ev.To.Roles) == 0 {
		return
	}
	for client := range h.clients {
		if !sent[client] && client.hasRole(ev.To.Roles) {
			sent[client] = true
			client.trySend(data)
		}
	}
}

// ==================== 业务通知 ====================

var _ service.Notifier = (*Hub)(nil)

// NotifyReservationCreated 新预约推送给教师和管理员
func (h *Hub) NotifyReservationCreated(r *model.Reservation) {
	h.publish(Audience{Roles: []model.Role{model.RoleTeacher, model.RoleAdmin}},
		NewMessage(TypeReservationCreated, h.reservationPayload(r)))
}

// NotifyReservationStatus 预约状态变化推送给预约人
func (h *Hub) NotifyReservationStatus(r *model.Reservation) {
	h.publish(Audience{UserIDs: []int64{r.UserID}},
		NewMessage(TypeReservationStatus, h.reservationPayload(r)))
}

// NotifyMaintenanceReported 维护上报推送给管理员
// 被连带取消的预约逐条推送给各自的预约人
func (h *Hub) NotifyMaintenanceReported(m *model.Maintenance, cancelled []model.Reservation) {
	h.publish(Audience{Roles: []model.Role{model.RoleAdmin}}, NewMessage(TypeMaintenanceReported, &MaintenancePayload{
		MID:                   m.ID,
		DeviceID:              m.DeviceID,
		Issue:                 m.Issue,
		ReportTime:            util.FormatTime(m.ReportTime.In(h.loc)),
		CancelledReservations: len(cancelled),
	}))

	for i := range cancelled {
		payload := h.reservationPayload(&cancelled[i])
		payload.MaintenanceID = m.ID
		h.publish(Audience{UserIDs: []int64{cancelled[i].UserID}},
			NewMessage(TypeReservationCancelled, payload))
	}
}

// NotifyDeviceStatus 设备状态变化广播给所有在线用户
func (h *Hub) NotifyDeviceStatus(deviceID int64, status model.DeviceStatus) {
	h.publish(Audience{}, NewMessage(TypeDeviceStatus, &DeviceStatusPayload{
		DeviceID: deviceID,
		Status:   status.String(),
	}))
}

func (h *Hub) reservationPayload(r *model.Reservation) *ReservationPayload {
	return &ReservationPayload{
		ResID:     r.ID,
		UserID:    r.UserID,
		DeviceID:  r.DeviceID,
		StartTime: util.FormatTime(r.StartTime.In(h.loc)),
		EndTime:   util.FormatTime(r.EndTime.In(h.loc)),
		Status:    r.Status.String(),
	}
}
