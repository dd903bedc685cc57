package model

// Room 机房
// 对应数据库表 rooms
type Room struct {
	ID       int64  `gorm:"column:rid;primaryKey" json:"rid"`
	Location string `gorm:"column:location;size:100;not null" json:"location"`
	Capacity int    `gorm:"column:capacity;not null;default:0" json:"capacity"`

	// OpenTime 开放时间描述，如 "08:00-22:00"
	OpenTime string `gorm:"column:open_time;size:100" json:"open_time"`
}

// TableName 指定表名
func (Room) TableName() string {
	return "rooms"
}
