package listeners

import (
	"context"
	"io"
	"log/slog"

	"github.com/INLOpen/nexusbase/hooks"
)

// ForceWriteLatencyDetector warns when a single force-write batch spans an
// unusually large byte range. A big jump between StartFlushPos and
// EndFlushPos means the writer stage fell behind and is now flushing a
// large backlog in one shot, a leading indicator of force-write stalls.
type ForceWriteLatencyDetector struct {
	logger        *slog.Logger
	maxBatchBytes int64
}

// NewForceWriteLatencyDetector creates a listener that flags
// unusually large force-write batches.
func NewForceWriteLatencyDetector(logger *slog.Logger, maxBatchBytes int64) *ForceWriteLatencyDetector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ForceWriteLatencyDetector{
		logger:        logger.With("component", "ForceWriteLatencyDetector"),
		maxBatchBytes: maxBatchBytes,
	}
}

// OnEvent handles PostForceWrite events, checking the flushed range size.
func (l *ForceWriteLatencyDetector) OnEvent(ctx context.Context, event hooks.HookEvent) error {
	if event.Type() != hooks.EventPostForceWrite {
		return nil
	}
	payload, ok := event.Payload().(hooks.PostForceWritePayload)
	if !ok {
		return nil
	}

	batchBytes := payload.EndFlushPos - payload.StartFlushPos
	if l.maxBatchBytes > 0 && batchBytes > l.maxBatchBytes {
		l.logger.Warn("unusually large force-write batch",
			"log_id", payload.LogID,
			"batch_bytes", batchBytes,
			"max_batch_bytes", l.maxBatchBytes,
			"waiters", payload.WaiterCount,
		)
	}
	return nil
}

// Priority defines the execution order.
func (l *ForceWriteLatencyDetector) Priority() int { return 100 }

// IsAsync indicates this listener can run in the background.
func (l *ForceWriteLatencyDetector) IsAsync() bool { return true }
