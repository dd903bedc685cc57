package model

import (
	"time"
)

// 审计目标表名
const (
	TableUsers        = "users"
	TableDevices      = "devices"
	TableRooms        = "rooms"
	TableReservations = "reservations"
	TableMaintenances = "maintenances"
	TableAuditLog     = "audit_log"
)

// AuditLog 审计日志，只追加，不修改不删除
// 对应数据库表 audit_log
type AuditLog struct {
	ID          int64       `gorm:"column:log_id;primaryKey" json:"log_id"`
	UserID      *int64      `gorm:"column:user_id;index" json:"user_id"`
	Action      AuditAction `gorm:"column:action;type:varchar(16);not null;index" json:"action"`
	TargetTable string      `gorm:"column:target_table;size:50;not null;index" json:"target_table"`
	Description string      `gorm:"column:sql_text;type:text" json:"sql_text"`
	IPAddress   string      `gorm:"column:ip_address;size:45" json:"ip_address"`
	ActionTime  time.Time   `gorm:"column:action_time;not null;index" json:"action_time"`

	User *User `gorm:"foreignKey:UserID;references:ID" json:"-"`
}

// TableName 指定表名
func (AuditLog) TableName() string {
	return TableAuditLog
}
