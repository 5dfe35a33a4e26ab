package monitor

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-monitor/internal/logger"
)

// ScheduledHandler is the Lambda entry point for scheduled invocations
type ScheduledHandler func(ctx context.Context, event events.CloudWatchEvent) error

// NewScheduledHandler wraps a monitor for the Lambda runtime. Run errors are logged
// and swallowed: the next scheduled invocation retries the same range.
func NewScheduledHandler(m Monitor) ScheduledHandler {
	return func(ctx context.Context, event events.CloudWatchEvent) error {
		ctx = logger.WithFields(ctx, zap.String("event_id", event.ID))
		runOnce(ctx, m)
		return nil
	}
}

// RunEvery runs the monitor immediately, then on every tick until ctx is done
func RunEvery(ctx context.Context, m Monitor, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		runOnce(ctx, m)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func runOnce(ctx context.Context, m Monitor) {
	result, err := m.Run(ctx)
	if err != nil {
		fields := []zap.Field{}
		if result != nil {
			fields = append(fields,
				zap.String("run_id", result.RunID),
				zap.Uint64("fromBlock", result.FromBlock),
				zap.Int("persisted", result.EventsPersisted))
		}
		logger.ErrorCtx(ctx, err, fields...)
	}
}
