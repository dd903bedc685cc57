// Package websocket 提供实时通知功能
// 预约、维护和设备状态的变化通过 WebSocket 推送给在线用户
package websocket

import (
	"time"

	"lab-reservation-server/internal/model"
)

// MessageType 消息类型常量
const (
	// 客户端 → 服务端
	TypeHeartbeat = "heartbeat" // 心跳

	// 服务端 → 客户端
	TypeReservationCreated   = "reservation:created"   // 新预约，推送给教师和管理员
	TypeReservationStatus    = "reservation:status"    // 预约状态变化，推送给预约人
	TypeReservationCancelled = "reservation:cancelled" // 设备报修导致预约取消，推送给预约人
	TypeMaintenanceReported  = "maintenance:reported"  // 新维护上报，推送给管理员
	TypeDeviceStatus         = "device:status"         // 设备状态变化，推送给所有人

	// 通用
	TypeError = "error" // 错误消息
	TypePong  = "pong"  // 心跳响应
)

// Message WebSocket 消息结构
// 所有消息都使用这个统一的结构
type Message struct {
	Type      string      `json:"type"`      // 消息类型
	Payload   interface{} `json:"payload"`   // 消息内容
	Timestamp int64       `json:"timestamp"` // 时间戳（毫秒）
}

// NewMessage 创建新消息
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// ==================== 投递目标 ====================

// Audience 消息接收范围
// Roles 和 UserIDs 都为空时广播给所有在线客户端
type Audience struct {
	Roles   []model.Role `json:"roles,omitempty"`
	UserIDs []int64      `json:"user_ids,omitempty"`
}

// Everyone 是否广播
func (a Audience) Everyone() bool {
	return len(a.Roles) == 0 && len(a.UserIDs) == 0
}

// Event 经 Redis 频道在实例间传递的事件
type Event struct {
	To      Audience `json:"to"`
	Message *Message `json:"message"`
}

// ==================== Payload 类型定义 ====================

// ReservationPayload 预约事件 Payload
type ReservationPayload struct {
	ResID     int64  `json:"res_id"`
	UserID    int64  `json:"uid"`
	DeviceID  int64  `json:"did"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
	// 因维护上报被取消时，对应的维护记录 ID
	MaintenanceID int64 `json:"mid,omitempty"`
}

// MaintenancePayload 维护上报 Payload
type MaintenancePayload struct {
	MID                   int64  `json:"mid"`
	DeviceID              int64  `json:"did"`
	Issue                 string `json:"issue"`
	ReportTime            string `json:"report_time"`
	CancelledReservations int    `json:"cancelled_reservations"`
}

// DeviceStatusPayload 设备状态 Payload
type DeviceStatusPayload struct {
	DeviceID int64  `json:"did"`
	Status   string `json:"status"`
}

// ErrorPayload 错误消息 Payload
type ErrorPayload struct {
	Code    int    `json:"code"`    // 错误码
	Message string `json:"message"` // 错误信息
}
