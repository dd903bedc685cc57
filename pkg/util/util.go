// Package util 提供通用工具函数
package util

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TimeLayout 对外交换时间字符串的格式，不带时区
const TimeLayout = "2006-01-02 15:04:05"

// 密码哈希方案
const (
	SchemeSHA256 = "sha256" // 十六进制 SHA-256 摘要，与历史数据兼容
	SchemeBcrypt = "bcrypt"
)

// ErrUnknownScheme 未知的密码哈希方案
var ErrUnknownScheme = errors.New("unknown password scheme")

// HashPassword 按指定方案对密码做单向哈希
// 参数:
//   - password: 明文密码
//   - scheme: sha256 或 bcrypt
//
// 返回:
//   - string: 存入数据库的摘要
//   - error: 哈希错误
func HashPassword(password, scheme string) (string, error) {
	switch scheme {
	case SchemeSHA256, "":
		sum := sha256.Sum256([]byte(password))
		return hex.EncodeToString(sum[:]), nil
	case SchemeBcrypt:
		b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		return string(b), err
	default:
		return "", ErrUnknownScheme
	}
}

// CheckPassword 验证密码是否与存储的摘要匹配
// bcrypt 摘要以 "$2" 开头，其余一律按十六进制 SHA-256 比较
// 参数:
//   - password: 用户输入的明文密码
//   - hash: 数据库中存储的摘要
//
// 返回:
//   - bool: 是否匹配
func CheckPassword(password, hash string) bool {
	if strings.HasPrefix(hash, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	sum := sha256.Sum256([]byte(password))
	want := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(hash))) == 1
}

// HashToken 计算 Token 的 SHA256 哈希值
// 黑名单中只保存哈希，不保存原始 Token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ParseTime 按 TimeLayout 解析时间字符串
// 参数:
//   - s: 形如 "2025-01-10 10:00:00" 的字符串
//   - loc: 解释该时间使用的时区
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(TimeLayout, strings.TrimSpace(s), loc)
}

// FormatTime 按 TimeLayout 格式化时间
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// FormatTimePtr 格式化可空时间，nil 返回 nil
func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}

// GenerateRequestID 生成请求 ID
// 返回:
//   - string: 不含连字符的 UUID v4
func GenerateRequestID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// StringPtr 返回字符串的指针
// 用于可选字段的赋值
func StringPtr(s string) *string {
	return &s
}

// Int64Ptr 返回 int64 的指针
func Int64Ptr(i int64) *int64 {
	return &i
}

// IntPtr 返回 int 的指针
func IntPtr(i int) *int {
	return &i
}
