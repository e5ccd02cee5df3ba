// Package activity fans activity entries out to the configured sinks.
package activity

import (
	"context"
	"log/slog"

	"github.com/agentmarket/popsim/internal/gateways/database/models"
)

type Sink interface {
	Append(ctx context.Context, entry *models.ActivityLog) error
}

// Mirror is a best-effort secondary sink.
type Mirror interface {
	Sink
	Name() string
}

// MultiSink writes to the primary sink and then to every mirror.
// Only the primary's error is returned; mirror failures are logged.
type MultiSink struct {
	primary Sink
	mirrors []Mirror
}

func NewMultiSink(primary Sink, mirrors ...Mirror) *MultiSink {
	return &MultiSink{primary: primary, mirrors: mirrors}
}

func (m *MultiSink) Append(ctx context.Context, entry *models.ActivityLog) error {
	if err := m.primary.Append(ctx, entry); err != nil {
		return err
	}
	for _, mirror := range m.mirrors {
		if err := mirror.Append(ctx, entry); err != nil {
			slog.Warn("Activity mirror write failed",
				slog.String("type", "sys"),
				slog.String("sink", mirror.Name()),
				slog.String("kind", entry.Kind),
				slog.String("run_id", entry.RunID),
				slog.Any("error", err))
		}
	}
	return nil
}
