package logging

import (
	"log/slog"
	"time"

	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// NewGormLogger routes gorm's statement log through slog. With echo set every
// SQL statement is logged, otherwise only warnings, errors and slow queries.
func NewGormLogger(l *slog.Logger, echo bool) gormlogger.Interface {
	level := gormlogger.Warn
	if echo {
		level = gormlogger.Info
	}

	return gormlogger.New(
		slog.NewLogLogger(l.Handler(), slog.LevelInfo),
		gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
