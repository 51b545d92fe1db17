package sweeper

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/feral-file/ff-flow/internal/logger"
)

// cronLogger adapts the zap logger to cron.Logger
type cronLogger struct {
	name string
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug(msg, append(kvFields(keysAndValues), zap.String("sweeper", l.name))...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error(fmt.Errorf("%s: %w", msg, err), append(kvFields(keysAndValues), zap.String("sweeper", l.name))...)
}

func kvFields(kv []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, zap.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
