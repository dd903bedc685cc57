package database

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger 把 GORM 的日志转发到 zerolog
type GormLogger struct {
	log           zerolog.Logger
	level         zerolog.Level
	slowThreshold time.Duration
}

// NewGormLogger 创建 GORM 日志适配器
// 参数:
//   - log: zerolog 实例
//   - level: 最低输出级别，Debug 时输出每条 SQL
//   - slow: 慢查询阈值，超过时以 Warn 输出
func NewGormLogger(log zerolog.Logger, level zerolog.Level, slow time.Duration) *GormLogger {
	return &GormLogger{
		log:           log.With().Str("component", "gorm").Logger(),
		level:         level,
		slowThreshold: slow,
	}
}

// LogMode 实现 gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	switch level {
	case gormlogger.Silent:
		next.level = zerolog.Disabled
	case gormlogger.Error:
		next.level = zerolog.ErrorLevel
	case gormlogger.Warn:
		next.level = zerolog.WarnLevel
	case gormlogger.Info:
		next.level = zerolog.DebugLevel
	}
	return &next
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level <= zerolog.InfoLevel {
		l.log.Info().Msgf(msg, args...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level <= zerolog.WarnLevel {
		l.log.Warn().Msgf(msg, args...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level <= zerolog.ErrorLevel {
		l.log.Error().Msgf(msg, args...)
	}
}

// Trace 记录一条 SQL 的执行情况
// 记录未找到不算错误，仓库层会把它转换为 nil 结果
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level == zerolog.Disabled {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level <= zerolog.ErrorLevel:
		sql, rows := fc()
		l.log.Error().Err(err).Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query failed")
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level <= zerolog.WarnLevel:
		sql, rows := fc()
		l.log.Warn().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("slow query")
	case l.level <= zerolog.DebugLevel:
		sql, rows := fc()
		l.log.Debug().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query")
	}
}
