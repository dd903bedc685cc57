package service

import (
	"lab-reservation-server/internal/model"
)

// Notifier 实时通知接口
// 由 WebSocket Hub 实现，业务操作提交成功后调用
type Notifier interface {
	NotifyReservationCreated(r *model.Reservation)
	NotifyReservationStatus(r *model.Reservation)
	NotifyMaintenanceReported(m *model.Maintenance, cancelled []model.Reservation)
	NotifyDeviceStatus(deviceID int64, status model.DeviceStatus)
}

// notifierHolder 为服务提供可选的通知器
type notifierHolder struct {
	notifier Notifier
}

// SetNotifier 设置通知器
func (h *notifierHolder) SetNotifier(n Notifier) {
	h.notifier = n
}

func (h *notifierHolder) notify(fn func(n Notifier)) {
	if h.notifier != nil {
		fn(h.notifier)
	}
}
