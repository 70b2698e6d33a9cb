package storage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rl1809/shop/internal/platform/logger"
)

// statementLogger routes gorm output to zap and counts every statement sent
// to the database. Copies made by LogMode share the counter.
type statementLogger struct {
	log        *logger.Logger
	level      gormlogger.LogLevel
	slow       time.Duration
	statements *atomic.Int64
}

func newStatementLogger(log *logger.Logger, slow time.Duration) *statementLogger {
	return &statementLogger{
		log:        log,
		level:      gormlogger.Warn,
		slow:       slow,
		statements: new(atomic.Int64),
	}
}

func (l *statementLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *statementLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *statementLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *statementLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *statementLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	l.statements.Add(1)
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Error("sql failed", "error", err, "elapsed", elapsed, "rows", rows, "sql", sql)
	case l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.Warn("slow sql", "elapsed", elapsed, "threshold", l.slow, "rows", rows, "sql", sql)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.log.Debug("sql", "elapsed", elapsed, "rows", rows, "sql", sql)
	}
}

func (l *statementLogger) count() int64 {
	return l.statements.Load()
}
