package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"lab-reservation-server/internal/model"
)

// ReservationFilter 预约列表过滤条件，nil 字段不参与过滤
type ReservationFilter struct {
	UserID   *int64
	DeviceID *int64
	Status   *model.ReservationStatus
}

// ReservationRepository 预约数据访问层
type ReservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository 创建 ReservationRepository 实例
func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Create 创建预约
func (r *ReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

// GetByID 根据 ID 获取预约，未找到返回 nil
func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*model.Reservation, error) {
	var reservation model.Reservation
	err := r.db.WithContext(ctx).First(&reservation, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

// List 按条件列出预约，最新的开始时间在前
func (r *ReservationRepository) List(ctx context.Context, filter ReservationFilter) ([]model.Reservation, error) {
	var reservations []model.Reservation
	query := r.db.WithContext(ctx).Order("start_time DESC").Order("res_id DESC")
	if filter.UserID != nil {
		query = query.Where("uid = ?", *filter.UserID)
	}
	if filter.DeviceID != nil {
		query = query.Where("did = ?", *filter.DeviceID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	err := query.Find(&reservations).Error
	return reservations, err
}

// ListWithRelations 按状态列出预约，并预加载用户和设备
// 用于待审核列表和统计
func (r *ReservationRepository) ListWithRelations(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error) {
	var reservations []model.Reservation
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Device").
		Where("status = ?", status).
		Order("start_time ASC").
		Find(&reservations).Error
	return reservations, err
}

// CountConfirmedOverlap 统计与 [start, end) 重叠的已确认预约数量
// 重叠条件: start < existing.end AND end > existing.start
// 参数:
//   - ctx: 上下文
//   - deviceID: 设备ID
//   - start, end: 候选时间区间
//   - excludeID: 排除的预约 ID（确认已有预约时排除其自身），0 表示不排除
//
// 返回:
//   - int64: 重叠数量
//   - error: 数据库错误
func (r *ReservationRepository) CountConfirmedOverlap(ctx context.Context, deviceID int64, start, end time.Time, excludeID int64) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("did = ? AND status = ?", deviceID, model.ReservationConfirmed).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeID != 0 {
		query = query.Where("res_id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count, err
}

// UpdateStatus 更新预约状态
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id int64, status model.ReservationStatus) error {
	return r.db.WithContext(ctx).Model(&model.Reservation{}).Where("res_id = ?", id).Update("status", status).Error
}

// CancelActiveByDevice 取消设备上所有未完成且未取消的预约
// 返回被取消的预约（取消前读取，状态字段已改为已取消）
func (r *ReservationRepository) CancelActiveByDevice(ctx context.Context, deviceID int64) ([]model.Reservation, error) {
	db := r.db.WithContext(ctx)

	var affected []model.Reservation
	err := db.Where("did = ? AND status NOT IN ?", deviceID,
		[]model.ReservationStatus{model.ReservationCompleted, model.ReservationCancelled}).
		Find(&affected).Error
	if err != nil {
		return nil, err
	}
	if len(affected) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(affected))
	for i := range affected {
		ids[i] = affected[i].ID
		affected[i].Status = model.ReservationCancelled
	}
	err = db.Model(&model.Reservation{}).
		Where("res_id IN ?", ids).
		Update("status", model.ReservationCancelled).Error
	if err != nil {
		return nil, err
	}
	return affected, nil
}

// Delete 删除预约（硬删除）
func (r *ReservationRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Reservation{}, id).Error
}

// CountByStatus 按状态统计预约数量
func (r *ReservationRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).Model(&model.Reservation{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("count DESC").
		Scan(&rows).Error
	return rows, err
}
