package logger

import (
	"log/slog"
	"time"
)

// QueryLogger times one repository operation and logs its result.
type QueryLogger struct {
	Operation string
	Entity    string
	Args      []any
	StartTime time.Time
}

func NewQueryLogger(operation, entity string, args ...any) *QueryLogger {
	return &QueryLogger{
		Operation: operation,
		Entity:    entity,
		Args:      args,
		StartTime: time.Now(),
	}
}

func (l *QueryLogger) Log(err error, rowsAffected int64) {
	duration := time.Since(l.StartTime)

	if err != nil {
		slog.Error("Query failed",
			slog.String("type", "db"),
			slog.String("operation", l.Operation),
			slog.String("entity", l.Entity),
			slog.Any("args", l.Args),
			slog.Duration("took", duration),
			slog.Any("error", err),
		)
		return
	}

	slog.Debug("Query executed",
		slog.String("type", "db"),
		slog.String("operation", l.Operation),
		slog.String("entity", l.Entity),
		slog.Duration("took", duration),
		slog.Int64("affected_rows", rowsAffected),
	)
}
