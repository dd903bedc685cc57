package service

import (
	"time"

	"lab-reservation-server/internal/model"
	"lab-reservation-server/pkg/util"
)

// 对外返回的视图结构
// 时间统一格式化为 "YYYY-MM-DD HH:MM:SS"，使用服务器配置的时区

// ReservationView 预约响应
type ReservationView struct {
	ID         int64                   `json:"res_id"`
	UserID     int64                   `json:"uid"`
	DeviceID   int64                   `json:"did"`
	StartTime  string                  `json:"start_time"`
	EndTime    string                  `json:"end_time"`
	Status     model.ReservationStatus `json:"status"`
	UserName   string                  `json:"uname,omitempty"`
	DeviceName string                  `json:"dname,omitempty"`
}

func reservationView(r *model.Reservation, loc *time.Location) *ReservationView {
	v := &ReservationView{
		ID:        r.ID,
		UserID:    r.UserID,
		DeviceID:  r.DeviceID,
		StartTime: util.FormatTime(r.StartTime.In(loc)),
		EndTime:   util.FormatTime(r.EndTime.In(loc)),
		Status:    r.Status,
	}
	if r.User != nil {
		v.UserName = r.User.Name
	}
	if r.Device != nil {
		v.DeviceName = r.Device.Name
	}
	return v
}

func reservationViews(rows []model.Reservation, loc *time.Location) []*ReservationView {
	out := make([]*ReservationView, 0, len(rows))
	for i := range rows {
		out = append(out, reservationView(&rows[i], loc))
	}
	return out
}

// MaintenanceView 维护记录响应
type MaintenanceView struct {
	ID           int64                   `json:"mid"`
	DeviceID     int64                   `json:"did"`
	Issue        string                  `json:"issue"`
	ReportTime   string                  `json:"report_time"`
	Handler      *string                 `json:"handler"`
	Status       model.MaintenanceStatus `json:"status"`
	CompleteTime *string                 `json:"complete_time"`
	DeviceName   string                  `json:"dname,omitempty"`
	DeviceType   string                  `json:"type,omitempty"`
}

func maintenanceView(m *model.Maintenance, loc *time.Location) *MaintenanceView {
	v := &MaintenanceView{
		ID:         m.ID,
		DeviceID:   m.DeviceID,
		Issue:      m.Issue,
		ReportTime: util.FormatTime(m.ReportTime.In(loc)),
		Handler:    m.Handler,
		Status:     m.Status,
	}
	if m.CompleteTime != nil {
		t := m.CompleteTime.In(loc)
		v.CompleteTime = util.FormatTimePtr(&t)
	}
	if m.Device != nil {
		v.DeviceName = m.Device.Name
		v.DeviceType = m.Device.Type
	}
	return v
}

func maintenanceViews(rows []model.Maintenance, loc *time.Location) []*MaintenanceView {
	out := make([]*MaintenanceView, 0, len(rows))
	for i := range rows {
		out = append(out, maintenanceView(&rows[i], loc))
	}
	return out
}

// DeviceView 设备响应，详细列表中带机房位置
type DeviceView struct {
	model.Device
	Location *string `json:"location,omitempty"`
}

func deviceView(d *model.Device) *DeviceView {
	v := &DeviceView{Device: *d}
	if d.Room != nil {
		v.Location = &d.Room.Location
	}
	return v
}

func deviceViews(rows []model.Device) []*DeviceView {
	out := make([]*DeviceView, 0, len(rows))
	for i := range rows {
		out = append(out, deviceView(&rows[i]))
	}
	return out
}

// AuditLogView 审计日志响应
type AuditLogView struct {
	ID          int64             `json:"log_id"`
	UserID      *int64            `json:"user_id"`
	Action      model.AuditAction `json:"action"`
	TargetTable string            `json:"target_table"`
	Description string            `json:"sql_text"`
	IPAddress   string            `json:"ip_address"`
	ActionTime  string            `json:"action_time"`
	UserName    string            `json:"uname,omitempty"`
}

func auditLogViews(rows []model.AuditLog, loc *time.Location) []*AuditLogView {
	out := make([]*AuditLogView, 0, len(rows))
	for i := range rows {
		l := &rows[i]
		v := &AuditLogView{
			ID:          l.ID,
			UserID:      l.UserID,
			Action:      l.Action,
			TargetTable: l.TargetTable,
			Description: l.Description,
			IPAddress:   l.IPAddress,
			ActionTime:  util.FormatTime(l.ActionTime.In(loc)),
		}
		if l.User != nil {
			v.UserName = l.User.Name
		}
		out = append(out, v)
	}
	return out
}
