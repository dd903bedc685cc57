// Package model 定义了与数据库表对应的数据结构
// 列名沿用既有 RoomManagement 库的命名（uid、did 等）
package model

// User 用户模型
// 对应数据库表 users
type User struct {
	// ID 用户唯一标识，自增主键
	ID int64 `gorm:"column:uid;primaryKey" json:"uid"`

	// Name 显示姓名
	Name string `gorm:"column:uname;size:50;not null" json:"uname"`

	// Role 角色：学生 / 教师 / 管理员
	Role Role `gorm:"column:role;type:varchar(16);not null" json:"role"`

	// Code 登录账号（学号/工号），全局唯一
	Code string `gorm:"column:code;size:50;uniqueIndex;not null" json:"code"`

	// PasswordHash 密码摘要，永远不存储明文
	PasswordHash string `gorm:"column:password;size:255;not null" json:"-"`

	// Phone 联系电话，可选
	Phone *string `gorm:"column:phone;size:20" json:"phone,omitempty"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
