package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lab-reservation-server/internal/model"
)

// DeviceFilter 设备列表过滤条件，nil 字段不参与过滤
type DeviceFilter struct {
	RoomID *int64
	Status *model.DeviceStatus
	Type   string
}

// StatusCount 按状态分组的计数
type StatusCount struct {
	Status string `gorm:"column:status"`
	Count  int64  `gorm:"column:count"`
}

// DeviceRepository 设备数据访问层
type DeviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository 创建 DeviceRepository 实例
func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Create 创建设备
func (r *DeviceRepository) Create(ctx context.Context, device *model.Device) error {
	return r.db.WithContext(ctx).Create(device).Error
}

// GetByID 根据 ID 获取设备
// 返回:
//   - *model.Device: 设备对象（含所在机房），未找到返回 nil
//   - error: 数据库错误
func (r *DeviceRepository) GetByID(ctx context.Context, id int64) (*model.Device, error) {
	var device model.Device
	err := r.db.WithContext(ctx).Preload("Room").First(&device, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &device, nil
}

// GetByIDForUpdate 加行锁读取设备（SELECT ... FOR UPDATE）
// 必须在事务中调用，锁在事务结束时释放
// 同一设备上的预约创建、预约确认、故障上报因此串行执行
func (r *DeviceRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.Device, error) {
	var device model.Device
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&device, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &device, nil
}

// List 按条件列出设备
// withRoom 为 true 时预加载所在机房
func (r *DeviceRepository) List(ctx context.Context, filter DeviceFilter, withRoom bool) ([]model.Device, error) {
	var devices []model.Device
	query := r.db.WithContext(ctx).Order("did ASC")
	if filter.RoomID != nil {
		query = query.Where("room_id = ?", *filter.RoomID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if withRoom {
		query = query.Preload("Room")
	}
	err := query.Find(&devices).Error
	return devices, err
}

// UpdateFields 更新设备的指定字段
func (r *DeviceRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Device{}).Where("did = ?", id).Updates(fields).Error
}

// UpdateStatus 更新设备状态
func (r *DeviceRepository) UpdateStatus(ctx context.Context, id int64, status model.DeviceStatus) error {
	return r.db.WithContext(ctx).Model(&model.Device{}).Where("did = ?", id).Update("status", status).Error
}

// Delete 删除设备
func (r *DeviceRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Device{}, id).Error
}

// CountByStatus 按状态统计设备数量
func (r *DeviceRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).Model(&model.Device{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("count DESC").
		Scan(&rows).Error
	return rows, err
}
