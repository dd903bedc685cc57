package model

import (
	"time"
)

// Reservation 设备预约
// 对应数据库表 reservations
// 时间区间按左闭右开 [StartTime, EndTime) 处理
type Reservation struct {
	ID        int64             `gorm:"column:res_id;primaryKey" json:"res_id"`
	UserID    int64             `gorm:"column:uid;index;not null" json:"uid"`
	DeviceID  int64             `gorm:"column:did;index:idx_reservation_device_time;not null" json:"did"`
	StartTime time.Time         `gorm:"column:start_time;index:idx_reservation_device_time;not null" json:"start_time"`
	EndTime   time.Time         `gorm:"column:end_time;not null" json:"end_time"`
	Status    ReservationStatus `gorm:"column:status;type:varchar(16);not null;index" json:"status"`

	// 关联（只读，预加载时有值）
	User   *User   `gorm:"foreignKey:UserID;references:ID" json:"-"`
	Device *Device `gorm:"foreignKey:DeviceID;references:ID" json:"-"`
}

// TableName 指定表名
func (Reservation) TableName() string {
	return "reservations"
}

// Overlaps 判断与 [start, end) 是否重叠
// 相邻区间（一个的结束等于另一个的开始）不算重叠
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return start.Before(r.EndTime) && end.After(r.StartTime)
}
