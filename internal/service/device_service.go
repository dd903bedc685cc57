package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/repository"
)

// DeviceService 设备服务
type DeviceService struct {
	notifierHolder
	store *repository.Store
	now   func() time.Time
}

// NewDeviceService 创建 DeviceService 实例
func NewDeviceService(store *repository.Store) *DeviceService {
	return &DeviceService{store: store, now: time.Now}
}

// CreateDeviceRequest 新增设备请求
type CreateDeviceRequest struct {
	Name   string              `json:"dname" binding:"required"`
	Type   string              `json:"type"`
	Spec   string              `json:"spec"`
	Status *model.DeviceStatus `json:"status"` // 为空时默认空闲
	RoomID *int64              `json:"room_id"`
}

// UpdateDeviceRequest 设备部分更新请求，nil 字段表示不修改
type UpdateDeviceRequest struct {
	Name   *string             `json:"dname"`
	Type   *string             `json:"type"`
	Spec   *string             `json:"spec"`
	Status *model.DeviceStatus `json:"status"`
	RoomID *int64              `json:"room_id"`
}

// List 按条件列出设备
func (s *DeviceService) List(ctx context.Context, filter repository.DeviceFilter) ([]*DeviceView, error) {
	rows, err := s.store.Devices.List(ctx, filter, false)
	if err != nil {
		return nil, persistence(err)
	}
	return deviceViews(rows), nil
}

// ListDetailed 带机房位置的设备列表
func (s *DeviceService) ListDetailed(ctx context.Context, filter repository.DeviceFilter) ([]*DeviceView, error) {
	rows, err := s.store.Devices.List(ctx, filter, true)
	if err != nil {
		return nil, persistence(err)
	}
	return deviceViews(rows), nil
}

// Get 获取设备详情（含机房位置）
func (s *DeviceService) Get(ctx context.Context, id int64) (*DeviceView, error) {
	d, err := s.store.Devices.GetByID(ctx, id)
	if err != nil {
		return nil, persistence(err)
	}
	if d == nil {
		return nil, ErrDeviceNotFound
	}
	return deviceView(d), nil
}

// Create 新增设备，仅管理员
func (s *DeviceService) Create(ctx context.Context, caller Caller, req *CreateDeviceRequest) (*DeviceView, error) {
	if !caller.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validation("设备名称不能为空")
	}
	device := model.Device{
		Name:   name,
		Type:   strings.TrimSpace(req.Type),
		Spec:   req.Spec,
		Status: model.DeviceFree,
		RoomID: req.RoomID,
	}
	if req.Status != nil {
		device.Status = *req.Status
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if device.RoomID != nil {
			room, err := tx.Rooms.GetByID(ctx, *device.RoomID)
			if err != nil {
				return err
			}
			if room == nil {
				return ErrRoomNotFound
			}
		}
		if err := tx.Devices.Create(ctx, &device); err != nil {
			return err
		}
		return appendAudit(ctx, tx, caller, model.ActionInsert, model.TableDevices, s.now(),
			"新增设备 #%d %s", device.ID, device.Name)
	})
	if err != nil {
		return nil, persistence(err)
	}
	return deviceView(&device), nil
}

// Update 部分更新设备，仅管理员
func (s *DeviceService) Update(ctx context.Context, caller Caller, id int64, req *UpdateDeviceRequest) (*DeviceView, error) {
	if !caller.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validation("设备名称不能为空")
		}
		fields["dname"] = name
	}
	if req.Type != nil {
		fields["type"] = strings.TrimSpace(*req.Type)
	}
	if req.Spec != nil {
		fields["spec"] = *req.Spec
	}
	if req.Status != nil {
		fields["status"] = *req.Status
	}
	if req.RoomID != nil {
		fields["room_id"] = *req.RoomID
	}
	if len(fields) == 0 {
		return nil, validation("没有需要更新的字段")
	}

	var updated *model.Device
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		d, err := tx.Devices.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if d == nil {
			return ErrDeviceNotFound
		}
		if req.RoomID != nil {
			room, err := tx.Rooms.GetByID(ctx, *req.RoomID)
			if err != nil {
				return err
			}
			if room == nil {
				return ErrRoomNotFound
			}
		}
		if err := tx.Devices.UpdateFields(ctx, id, fields); err != nil {
			return err
		}
		if err := appendAudit(ctx, tx, caller, model.ActionUpdate, model.TableDevices, s.now(),
			"更新设备 #%d，字段 %s", id, fieldNames(fields)); err != nil {
			return err
		}
		updated, err = tx.Devices.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, persistence(err)
	}
	if req.Status != nil {
		s.notify(func(n Notifier) { n.NotifyDeviceStatus(id, *req.Status) })
	}
	return deviceView(updated), nil
}

// UpdateStatus 修改设备状态，仅管理员
func (s *DeviceService) UpdateStatus(ctx context.Context, caller Caller, id int64, statusText string) (*DeviceView, error) {
	status, err := model.ParseDeviceStatus(statusText)
	if err != nil {
		return nil, validation("无效的设备状态: %s", statusText)
	}
	return s.Update(ctx, caller, id, &UpdateDeviceRequest{Status: &status})
}

// Delete 删除设备，仅管理员
func (s *DeviceService) Delete(ctx context.Context, caller Caller, id int64) error {
	if !caller.IsAdmin() {
		return ErrPermissionDenied
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		d, err := tx.Devices.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if d == nil {
			return ErrDeviceNotFound
		}
		if err := tx.Devices.Delete(ctx, id); err != nil {
			return err
		}
		return appendAudit(ctx, tx, caller, model.ActionDelete, model.TableDevices, s.now(),
			"删除设备 #%d %s", d.ID, d.Name)
	})
	return persistence(err)
}

// fieldNames 返回更新字段名，按字母排序，用于审计描述
func fieldNames(fields map[string]interface{}) string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
