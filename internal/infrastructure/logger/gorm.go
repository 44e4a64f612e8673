package logger

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/commerce/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes GORM statements into zap. Besides the usual error and
// slow-query logging it reports version-guarded updates that matched no row,
// which is how a lost shipment or order compare-and-swap shows up in SQL.
type GormLogger struct {
	logger                    *zap.Logger
	logLevel                  gormlogger.LogLevel
	slowThreshold             time.Duration
	ignoreRecordNotFoundError bool
}

// GormLoggerOption is a function that configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the slow query threshold. Zero disables it.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// WithIgnoreRecordNotFoundError drops lookups that found nothing, such as a
// lookup by billing_name before the billing exists. When false they are logged
// at warn level instead of error.
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) {
		l.ignoreRecordNotFoundError = ignore
	}
}

// NewGormLogger creates a new GORM logger backed by zap
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:                    zapLogger.Named("gorm"),
		logLevel:                  level,
		slowThreshold:             200 * time.Millisecond,
		ignoreRecordNotFoundError: true,
	}

	for _, opt := range opts {
		opt(gl)
	}

	return gl
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Info {
		l.logger.Sugar().Infof(msg, data...)
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Warn {
		l.logger.Sugar().Warnf(msg, data...)
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Error {
		l.logger.Sugar().Errorf(msg, data...)
	}
}

// Trace implements gormlogger.Interface. Successful queries are logged at debug level.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	stmt := parseStatement(sql)

	fields := []zap.Field{
		zap.String("op", stmt.op),
		zap.String("table", stmt.table),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if orderNumber, ok := GetOrderNumber(ctx); ok {
		fields = append(fields, zap.Int64("order_number", orderNumber))
	}
	if traceID := telemetry.GetTraceID(ctx); traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}

	switch {
	case err != nil && errors.Is(err, gormlogger.ErrRecordNotFound):
		if l.ignoreRecordNotFoundError || l.logLevel < gormlogger.Warn {
			return
		}
		l.logger.Warn("Record not found", fields...)

	case err != nil && l.logLevel >= gormlogger.Error:
		fields = append(fields, zap.Error(err))
		l.logger.Error("SQL Error", fields...)

	case err == nil && stmt.versioned && rows == 0 && l.logLevel >= gormlogger.Warn:
		l.logger.Warn("Version conflict", fields...)

	case elapsed > l.slowThreshold && l.slowThreshold != 0 && l.logLevel >= gormlogger.Warn:
		slowLog := fmt.Sprintf("SLOW SQL >= %v", l.slowThreshold)
		l.logger.Warn(slowLog, fields...)

	case l.logLevel >= gormlogger.Info:
		l.logger.Debug("SQL Query", fields...)
	}
}

type statement struct {
	op        string
	table     string
	versioned bool
}

var (
	tablePattern   = regexp.MustCompile(`(?i)^\s*(?:SELECT\b.*?\bFROM|UPDATE|INSERT\s+INTO|DELETE\s+FROM)\s+["` + "`" + `]?([A-Za-z0-9_]+)`)
	versionPattern = regexp.MustCompile(`(?i)\bWHERE\b.*["` + "`" + `]?\bversion["` + "`" + `]?\s*=`)
)

// parseStatement extracts the verb and main table of a statement. The
// versioned flag is set for UPDATEs guarded by a version predicate.
func parseStatement(sql string) statement {
	var stmt statement
	trimmed := strings.TrimSpace(sql)
	if i := strings.IndexAny(trimmed, " \t\n"); i > 0 {
		stmt.op = strings.ToUpper(trimmed[:i])
	} else {
		stmt.op = strings.ToUpper(trimmed)
	}
	if m := tablePattern.FindStringSubmatch(trimmed); m != nil {
		stmt.table = m[1]
	}
	stmt.versioned = stmt.op == "UPDATE" && versionPattern.MatchString(trimmed)
	return stmt
}

// MapGormLogLevel maps string log level to GORM log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
