package model

import (
	"time"
)

// Maintenance 设备维护记录
// 对应数据库表 maintenances
// CompleteTime 仅在状态为"已完成"时有值
type Maintenance struct {
	ID           int64             `gorm:"column:mid;primaryKey" json:"mid"`
	DeviceID     int64             `gorm:"column:did;index;not null" json:"did"`
	Issue        string            `gorm:"column:issue;type:text;not null" json:"issue"`
	ReportTime   time.Time         `gorm:"column:report_time;not null;index" json:"report_time"`
	Handler      *string           `gorm:"column:handler;size:50" json:"handler"`
	Status       MaintenanceStatus `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	CompleteTime *time.Time        `gorm:"column:complete_time" json:"complete_time"`

	Device *Device `gorm:"foreignKey:DeviceID;references:ID" json:"-"`
}

// TableName 指定表名
func (Maintenance) TableName() string {
	return "maintenances"
}

// OverdueBefore 超期分界点
// 上报时间早于该时刻且仍待处理的记录视为超期
func OverdueBefore(now time.Time, after time.Duration) time.Time {
	return now.Add(-after)
}

// IsOverdue 是否超期：待处理且上报时间早于 now - after
func (m *Maintenance) IsOverdue(now time.Time, after time.Duration) bool {
	return m.Status == MaintenancePending && m.ReportTime.Before(OverdueBefore(now, after))
}
