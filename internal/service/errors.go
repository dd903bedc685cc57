package service

import (
	"errors"
	"fmt"
)

// Kind 业务错误的分类
// 处理器按分类选择 HTTP 状态码
type Kind uint8

const (
	KindValidation        Kind = iota + 1 // 参数缺失或格式错误
	KindNotFound                          // 引用的记录不存在
	KindConflict                          // 时间冲突、账号重复
	KindPermission                        // 角色或归属检查失败
	KindDeviceUnavailable                 // 设备不是空闲状态
	KindUnauthorized                      // 未登录或凭据错误
	KindPersistence                       // 存储层失败
)

// Error 带分类的业务错误
type Error struct {
	Kind    Kind
	Message string // 面向用户的提示
	Err     error  // 底层错误，可为空
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// 定义业务错误
var (
	ErrUserNotFound        = newError(KindNotFound, "用户不存在")
	ErrPasswordWrong       = newError(KindUnauthorized, "账号或密码错误")
	ErrOldPasswordWrong    = newError(KindValidation, "原密码错误")
	ErrCodeExists          = newError(KindConflict, "登录账号已存在")
	ErrCannotDeleteSelf    = newError(KindValidation, "不能删除当前登录的账号")
	ErrInvalidToken        = newError(KindUnauthorized, "Token 无效或已过期")
	ErrPermissionDenied    = newError(KindPermission, "权限不足")
	ErrRoomNotFound        = newError(KindNotFound, "机房不存在")
	ErrDeviceNotFound      = newError(KindNotFound, "设备不存在")
	ErrDeviceUnavailable   = newError(KindDeviceUnavailable, "设备当前不可预约")
	ErrReservationNotFound = newError(KindNotFound, "预约不存在")
	ErrReservationClash    = newError(KindConflict, "该时间段已有已确认的预约")
	ErrInvalidTimeRange    = newError(KindValidation, "开始时间必须早于结束时间")
	ErrStartInPast         = newError(KindValidation, "开始时间不能早于当前时间")
	ErrMaintenanceNotFound = newError(KindNotFound, "维护记录不存在")
)

// validation 构造参数错误
func validation(format string, args ...interface{}) error {
	return newError(KindValidation, fmt.Sprintf(format, args...))
}

// persistence 把非业务错误包装为存储错误
// 已经是业务错误的原样返回
func persistence(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	return &Error{Kind: KindPersistence, Message: "数据库操作失败", Err: err}
}

// KindOf 返回错误的分类，非业务错误视为存储错误
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindPersistence
}

// MessageOf 返回面向用户的错误提示
func MessageOf(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return "服务器内部错误"
}
