package service

import (
	"context"
	"strings"
	"time"

	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/repository"
)

// RoomService 机房服务
type RoomService struct {
	store *repository.Store
	now   func() time.Time
}

// NewRoomService 创建 RoomService 实例
func NewRoomService(store *repository.Store) *RoomService {
	return &RoomService{store: store, now: time.Now}
}

// RoomRequest 新增或更新机房请求
// 更新时 nil 字段表示不修改
type RoomRequest struct {
	Location *string `json:"location"`
	Capacity *int    `json:"capacity"`
	OpenTime *string `json:"open_time"`
}

// RoomDetail 机房详情，带机房内的设备
type RoomDetail struct {
	model.Room
	Devices []*DeviceView `json:"devices"`
}

// List 列出所有机房
func (s *RoomService) List(ctx context.Context) ([]model.Room, error) {
	rooms, err := s.store.Rooms.List(ctx)
	if err != nil {
		return nil, persistence(err)
	}
	return rooms, nil
}

// Get 获取机房及其设备
func (s *RoomService) Get(ctx context.Context, id int64) (*RoomDetail, error) {
	room, err := s.store.Rooms.GetByID(ctx, id)
	if err != nil {
		return nil, persistence(err)
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	devices, err := s.store.Devices.List(ctx, repository.DeviceFilter{RoomID: &id}, false)
	if err != nil {
		return nil, persistence(err)
	}
	return &RoomDetail{Room: *room, Devices: deviceViews(devices)}, nil
}

// Create 新增机房，仅管理员
func (s *RoomService) Create(ctx context.Context, caller Caller, req *RoomRequest) (*model.Room, error) {
	if !caller.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	if req.Location == nil || strings.TrimSpace(*req.Location) == "" {
		return nil, validation("机房位置不能为空")
	}
	room := model.Room{Location: strings.TrimSpace(*req.Location)}
	if req.Capacity != nil {
		if *req.Capacity < 0 {
			return nil, validation("容量不能为负数")
		}
		room.Capacity = *req.Capacity
	}
	if req.OpenTime != nil {
		room.OpenTime = *req.OpenTime
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Rooms.Create(ctx, &room); err != nil {
			return err
		}
		return appendAudit(ctx, tx, caller, model.ActionInsert, model.TableRooms, s.now(),
			"新增机房 #%d %s", room.ID, room.Location)
	})
	if err != nil {
		return nil, persistence(err)
	}
	return &room, nil
}

// Update 部分更新机房，仅管理员
func (s *RoomService) Update(ctx context.Context, caller Caller, id int64, req *RoomRequest) (*model.Room, error) {
	if !caller.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	fields := map[string]interface{}{}
	if req.Location != nil {
		loc := strings.TrimSpace(*req.Location)
		if loc == "" {
			return nil, validation("机房位置不能为空")
		}
		fields["location"] = loc
	}
	if req.Capacity != nil {
		if *req.Capacity < 0 {
			return nil, validation("容量不能为负数")
		}
		fields["capacity"] = *req.Capacity
	}
	if req.OpenTime != nil {
		fields["open_time"] = *req.OpenTime
	}
	if len(fields) == 0 {
		return nil, validation("没有需要更新的字段")
	}

	var updated *model.Room
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		room, err := tx.Rooms.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if room == nil {
			return ErrRoomNotFound
		}
		if err := tx.Rooms.UpdateFields(ctx, id, fields); err != nil {
			return err
		}
		if err := appendAudit(ctx, tx, caller, model.ActionUpdate, model.TableRooms, s.now(),
			"更新机房 #%d，字段 %s", id, fieldNames(fields)); err != nil {
			return err
		}
		updated, err = tx.Rooms.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, persistence(err)
	}
	return updated, nil
}

// Delete 删除机房，仅管理员
// 机房内的设备保留，所在机房置空
func (s *RoomService) Delete(ctx context.Context, caller Caller, id int64) error {
	if !caller.IsAdmin() {
		return ErrPermissionDenied
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		room, err := tx.Rooms.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if room == nil {
			return ErrRoomNotFound
		}
		if err := tx.Rooms.Delete(ctx, id); err != nil {
			return err
		}
		return appendAudit(ctx, tx, caller, model.ActionDelete, model.TableRooms, s.now(),
			"删除机房 #%d %s", room.ID, room.Location)
	})
	return persistence(err)
}
