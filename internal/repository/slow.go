package repository

import (
	"time"

	"questTracker/internal/logger"

	"go.uber.org/zap"
)

const SlowQueryThreshold = 100 * time.Millisecond

// WarnIfSlow logs a warning when the operation started at start took longer
// than SlowQueryThreshold.
func WarnIfSlow(op string, start time.Time) {
	if elapsed := time.Since(start); elapsed > SlowQueryThreshold {
		logger.Warn("Repository: Slow query", zap.String("op", op), zap.Duration("ms", elapsed))
	}
}
