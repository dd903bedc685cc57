package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// 枚举在进程内是封闭的整数类型
// 文本形式只出现在边界：JSON、查询参数、数据库列值
// 数据库中存储中文标签，与历史数据保持一致

// enumText 描述一个枚举值的中文标签和英文别名
type enumText struct {
	label string
	alias string
}

func parseEnum(kind, s string, table map[uint8]enumText) (uint8, error) {
	s = strings.TrimSpace(s)
	for v, t := range table {
		if s == t.label || strings.EqualFold(s, t.alias) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", kind, s)
}

func scanText(src interface{}) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("cannot scan %T into enum", src)
	}
}

// ==================== Role ====================

// Role 用户角色
type Role uint8

const (
	RoleStudent Role = iota + 1 // 学生
	RoleTeacher                 // 教师
	RoleAdmin                   // 管理员
)

var roleText = map[uint8]enumText{
	uint8(RoleStudent): {"学生", "student"},
	uint8(RoleTeacher): {"教师", "teacher"},
	uint8(RoleAdmin):   {"管理员", "admin"},
}

// ParseRole 解析角色文本，接受中文标签或英文别名
func ParseRole(s string) (Role, error) {
	v, err := parseEnum("role", s, roleText)
	return Role(v), err
}

// String 返回中文标签
func (r Role) String() string {
	return roleText[uint8(r)].label
}

// Valid 是否为已知角色
func (r Role) Valid() bool {
	_, ok := roleText[uint8(r)]
	return ok
}

func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", r)
	}
	return r.String(), nil
}

func (r *Role) Scan(src interface{}) error {
	s, err := scanText(src)
	if err != nil {
		return err
	}
	*r, err = ParseRole(s)
	return err
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseRole(s)
	*r = v
	return err
}

// ==================== DeviceStatus ====================

// DeviceStatus 设备状态
type DeviceStatus uint8

const (
	DeviceFree        DeviceStatus = iota + 1 // 空闲，可预约
	DeviceInUse                               // 使用中
	DeviceMaintenance                         // 维修中
)

var deviceStatusText = map[uint8]enumText{
	uint8(DeviceFree):        {"空闲", "free"},
	uint8(DeviceInUse):       {"使用中", "in_use"},
	uint8(DeviceMaintenance): {"维修中", "maintenance"},
}

// ParseDeviceStatus 解析设备状态文本
func ParseDeviceStatus(s string) (DeviceStatus, error) {
	v, err := parseEnum("device status", s, deviceStatusText)
	return DeviceStatus(v), err
}

func (s DeviceStatus) String() string {
	return deviceStatusText[uint8(s)].label
}

func (s DeviceStatus) Valid() bool {
	_, ok := deviceStatusText[uint8(s)]
	return ok
}

func (s DeviceStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid device status %d", s)
	}
	return s.String(), nil
}

func (s *DeviceStatus) Scan(src interface{}) error {
	text, err := scanText(src)
	if err != nil {
		return err
	}
	*s, err = ParseDeviceStatus(text)
	return err
}

func (s DeviceStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *DeviceStatus) UnmarshalJSON(b []byte) error {
	var text string
	if err := json.Unmarshal(b, &text); err != nil {
		return err
	}
	v, err := ParseDeviceStatus(text)
	*s = v
	return err
}

// ==================== ReservationStatus ====================

// ReservationStatus 预约状态
type ReservationStatus uint8

const (
	ReservationPending   ReservationStatus = iota + 1 // 待审核
	ReservationConfirmed                              // 已确认
	ReservationCancelled                              // 已取消
	ReservationCompleted                              // 已完成
)

var reservationStatusText = map[uint8]enumText{
	uint8(ReservationPending):   {"待审核", "pending"},
	uint8(ReservationConfirmed): {"已确认", "confirmed"},
	uint8(ReservationCancelled): {"已取消", "cancelled"},
	uint8(ReservationCompleted): {"已完成", "completed"},
}

// ParseReservationStatus 解析预约状态文本
func ParseReservationStatus(s string) (ReservationStatus, error) {
	v, err := parseEnum("reservation status", s, reservationStatusText)
	return ReservationStatus(v), err
}

func (s ReservationStatus) String() string {
	return reservationStatusText[uint8(s)].label
}

func (s ReservationStatus) Valid() bool {
	_, ok := reservationStatusText[uint8(s)]
	return ok
}

func (s ReservationStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid reservation status %d", s)
	}
	return s.String(), nil
}

func (s *ReservationStatus) Scan(src interface{}) error {
	text, err := scanText(src)
	if err != nil {
		return err
	}
	*s, err = ParseReservationStatus(text)
	return err
}

func (s ReservationStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ReservationStatus) UnmarshalJSON(b []byte) error {
	var text string
	if err := json.Unmarshal(b, &text); err != nil {
		return err
	}
	v, err := ParseReservationStatus(text)
	*s = v
	return err
}

// ==================== MaintenanceStatus ====================

// MaintenanceStatus 维护状态
type MaintenanceStatus uint8

const (
	MaintenancePending   MaintenanceStatus = iota + 1 // 待处理
	MaintenanceCompleted                              // 已完成
)

var maintenanceStatusText = map[uint8]enumText{
	uint8(MaintenancePending):   {"待处理", "pending"},
	uint8(MaintenanceCompleted): {"已完成", "completed"},
}

// ParseMaintenanceStatus 解析维护状态文本
func ParseMaintenanceStatus(s string) (MaintenanceStatus, error) {
	v, err := parseEnum("maintenance status", s, maintenanceStatusText)
	return MaintenanceStatus(v), err
}

func (s MaintenanceStatus) String() string {
	return maintenanceStatusText[uint8(s)].label
}

func (s MaintenanceStatus) Valid() bool {
	_, ok := maintenanceStatusText[uint8(s)]
	return ok
}

func (s MaintenanceStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid maintenance status %d", s)
	}
	return s.String(), nil
}

func (s *MaintenanceStatus) Scan(src interface{}) error {
	text, err := scanText(src)
	if err != nil {
		return err
	}
	*s, err = ParseMaintenanceStatus(text)
	return err
}

func (s MaintenanceStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *MaintenanceStatus) UnmarshalJSON(b []byte) error {
	var text string
	if err := json.Unmarshal(b, &text); err != nil {
		return err
	}
	v, err := ParseMaintenanceStatus(text)
	*s = v
	return err
}

// ==================== AuditAction ====================

// AuditAction 审计动作
type AuditAction uint8

const (
	ActionInsert AuditAction = iota + 1
	ActionUpdate
	ActionDelete
	ActionLogin
	ActionLogout
)

var auditActionText = map[uint8]enumText{
	uint8(ActionInsert): {"INSERT", "insert"},
	uint8(ActionUpdate): {"UPDATE", "update"},
	uint8(ActionDelete): {"DELETE", "delete"},
	uint8(ActionLogin):  {"LOGIN", "login"},
	uint8(ActionLogout): {"LOGOUT", "logout"},
}

// ParseAuditAction 解析审计动作文本（大小写不敏感）
func ParseAuditAction(s string) (AuditAction, error) {
	v, err := parseEnum("audit action", s, auditActionText)
	return AuditAction(v), err
}

func (a AuditAction) String() string {
	return auditActionText[uint8(a)].label
}

func (a AuditAction) Valid() bool {
	_, ok := auditActionText[uint8(a)]
	return ok
}

func (a AuditAction) Value() (driver.Value, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid audit action %d", a)
	}
	return a.String(), nil
}

func (a *AuditAction) Scan(src interface{}) error {
	text, err := scanText(src)
	if err != nil {
		return err
	}
	*a, err = ParseAuditAction(text)
	return err
}

func (a AuditAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *AuditAction) UnmarshalJSON(b []byte) error {
	var text string
	if err := json.Unmarshal(b, &text); err != nil {
		return err
	}
	v, err := ParseAuditAction(text)
	*a = v
	return err
}
