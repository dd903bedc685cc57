// Package logger 提供基于 zerolog 的结构化日志
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config 日志配置
type Config struct {
	Level       string    // 日志级别: debug/info/warn/error
	Format      string    // json / text
	ServiceName string    // 服务名，写入每条日志的 service 字段
	Output      io.Writer // 输出目标，为空时使用 os.Stdout
}

// New 创建 zerolog.Logger
// 参数:
//   - cfg: 日志配置
//
// 返回:
//   - zerolog.Logger: 已附带时间戳和服务名的 logger
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	// text 格式用于本地开发，输出可读的彩色文本
	if strings.EqualFold(cfg.Format, "text") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	return ctx.Logger()
}

// Nop 返回丢弃所有输出的 logger，测试中使用
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
