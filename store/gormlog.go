package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/PeterSurowski/ai-event-search/observe"
)

// gormLogger routes gorm output through observe.Logger.
type gormLogger struct {
	logger        observe.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(logger observe.Logger, slow time.Duration) *gormLogger {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &gormLogger{logger: logger, level: gormlogger.Warn, slowThreshold: slow}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	out := *l
	out.level = level
	return &out
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.logger.Info(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.logger.Error(ctx, fmt.Sprintf(msg, data...))
	}
}

// Trace logs failed and slow statements. Not-found is an expected outcome
// and is not logged.
func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		l.logger.Error(ctx, "sql failed",
			observe.F("elapsed_ms", elapsed.Milliseconds()),
			observe.F("sql", sql),
			observe.F("rows", rows),
			observe.F("error", err.Error()),
		)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.logger.Warn(ctx, "slow sql",
			observe.F("elapsed_ms", elapsed.Milliseconds()),
			observe.F("sql", sql),
			observe.F("rows", rows),
		)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.logger.Debug(ctx, "sql",
			observe.F("elapsed_ms", elapsed.Milliseconds()),
			observe.F("sql", sql),
			observe.F("rows", rows),
		)
	}
}
