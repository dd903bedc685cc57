package model

// Device 设备
// 对应数据库表 devices
// 只有状态为"空闲"的设备可以被预约
type Device struct {
	ID     int64        `gorm:"column:did;primaryKey" json:"did"`
	Name   string       `gorm:"column:dname;size:100;not null" json:"dname"`
	Type   string       `gorm:"column:type;size:50;index" json:"type"`
	Spec   string       `gorm:"column:spec;type:text" json:"spec"`
	Status DeviceStatus `gorm:"column:status;type:varchar(16);not null;index" json:"status"`

	// RoomID 所在机房，可为空
	RoomID *int64 `gorm:"column:room_id;index" json:"room_id"`

	// Room 所在机房（多对一），仅在预加载时有值
	Room *Room `gorm:"foreignKey:RoomID;references:ID" json:"-"`
}

// TableName 指定表名
func (Device) TableName() string {
	return "devices"
}

// Reservable 设备当前是否可以预约
func (d *Device) Reservable() bool {
	return d.Status == DeviceFree
}
