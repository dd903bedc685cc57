package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"lab-reservation-server/internal/model"
)

// MaintenanceFilter 维护记录过滤条件
type MaintenanceFilter struct {
	DeviceID *int64
	Status   *model.MaintenanceStatus
}

// MaintenanceRepository 维护记录数据访问层
type MaintenanceRepository struct {
	db *gorm.DB
}

// NewMaintenanceRepository 创建 MaintenanceRepository 实例
func NewMaintenanceRepository(db *gorm.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

// Create 创建维护记录
func (r *MaintenanceRepository) Create(ctx context.Context, m *model.Maintenance) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// GetByID 根据 ID 获取维护记录，未找到返回 nil
func (r *MaintenanceRepository) GetByID(ctx context.Context, id int64) (*model.Maintenance, error) {
	var m model.Maintenance
	err := r.db.WithContext(ctx).First(&m, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// List 按条件列出维护记录
// withDevice 为 true 时预加载设备，用于带设备名称的详细列表
func (r *MaintenanceRepository) List(ctx context.Context, filter MaintenanceFilter, withDevice bool) ([]model.Maintenance, error) {
	var records []model.Maintenance
	query := r.db.WithContext(ctx).Order("report_time DESC").Order("mid DESC")
	if filter.DeviceID != nil {
		query = query.Where("did = ?", *filter.DeviceID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if withDevice {
		query = query.Preload("Device")
	}
	err := query.Find(&records).Error
	return records, err
}

// ListPending 列出待处理的维护记录，最早上报的在前
func (r *MaintenanceRepository) ListPending(ctx context.Context) ([]model.Maintenance, error) {
	var records []model.Maintenance
	err := r.db.WithContext(ctx).
		Preload("Device").
		Where("status = ?", model.MaintenancePending).
		Order("report_time ASC").
		Find(&records).Error
	return records, err
}

// ListOverdue 列出超期的维护记录
// 参数:
//   - before: 上报时间早于该时刻且仍待处理的记录视为超期
func (r *MaintenanceRepository) ListOverdue(ctx context.Context, before time.Time) ([]model.Maintenance, error) {
	var records []model.Maintenance
	err := r.db.WithContext(ctx).
		Preload("Device").
		Where("status = ? AND report_time < ?", model.MaintenancePending, before).
		Order("report_time ASC").
		Find(&records).Error
	return records, err
}

// UpdateFields 更新维护记录的指定字段
func (r *MaintenanceRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Maintenance{}).Where("mid = ?", id).Updates(fields).Error
}

// Delete 删除维护记录（硬删除）
func (r *MaintenanceRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Maintenance{}, id).Error
}
