package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"lab-reservation-server/internal/model"
)

// RoomRepository 机房数据访问层
type RoomRepository struct {
	db *gorm.DB
}

// NewRoomRepository 创建 RoomRepository 实例
func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create 创建机房
func (r *RoomRepository) Create(ctx context.Context, room *model.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

// GetByID 根据 ID 获取机房，未找到返回 nil
func (r *RoomRepository) GetByID(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// List 列出所有机房
func (r *RoomRepository) List(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	err := r.db.WithContext(ctx).Order("rid ASC").Find(&rooms).Error
	return rooms, err
}

// UpdateFields 更新机房的指定字段
func (r *RoomRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Room{}).Where("rid = ?", id).Updates(fields).Error
}

// Delete 删除机房
// 机房内设备的 room_id 置空，设备本身保留
func (r *RoomRepository) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.Device{}).Where("room_id = ?", id).Update("room_id", nil).Error; err != nil {
		return err
	}
	return db.Delete(&model.Room{}, id).Error
}
