package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fenilsonani/winsweep/internal/logging"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormAdapter routes gorm's logging through the application logger
type GormAdapter struct {
	logger        *logging.Logger
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewGormAdapter creates a gorm logger that follows the application log level
func NewGormAdapter(logger *logging.Logger) *GormAdapter {
	if logger == nil {
		logger = logging.Nop()
	}
	return &GormAdapter{
		logger:        logger,
		logLevel:      mapToGormLevel(logger.Level()),
		slowThreshold: 200 * time.Millisecond,
	}
}

// LogMode sets the log level
func (g *GormAdapter) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newAdapter := *g
	newAdapter.logLevel = level
	return &newAdapter
}

// Info logs info level messages
func (g *GormAdapter) Info(ctx context.Context, msg string, data ...interface{}) {
	if g.logLevel >= gormlogger.Info {
		g.logger.Info("%s", fmt.Sprintf(msg, data...))
	}
}

// Warn logs warn level messages
func (g *GormAdapter) Warn(ctx context.Context, msg string, data ...interface{}) {
	if g.logLevel >= gormlogger.Warn {
		g.logger.Warn("%s", fmt.Sprintf(msg, data...))
	}
}

// Error logs error level messages
func (g *GormAdapter) Error(ctx context.Context, msg string, data ...interface{}) {
	if g.logLevel >= gormlogger.Error {
		g.logger.Error("%s", fmt.Sprintf(msg, data...))
	}
}

// Trace logs SQL queries and their execution time
func (g *GormAdapter) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if g.logLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	elapsedMS := float64(elapsed.Nanoseconds()) / 1e6

	switch {
	case err != nil && g.logLevel >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		g.logger.Error("history query failed after %.2fms: %v [%s]", elapsedMS, err, sql)
	case elapsed > g.slowThreshold && g.logLevel >= gormlogger.Warn:
		g.logger.Warn("slow history query (%.2fms, %d rows): %s", elapsedMS, rows, sql)
	case g.logLevel >= gormlogger.Info:
		g.logger.Debug("history query (%.2fms, %d rows): %s", elapsedMS, rows, sql)
	}
}

func mapToGormLevel(level logging.Level) gormlogger.LogLevel {
	switch level {
	case logging.LevelDebug:
		return gormlogger.Info
	case logging.LevelWarn, logging.LevelInfo:
		return gormlogger.Warn
	case logging.LevelError:
		return gormlogger.Error
	default:
		return gormlogger.Silent
	}
}
