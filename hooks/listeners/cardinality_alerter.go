package listeners

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/INLOpen/nexusbase/hooks"
)

// LedgerCardinalityAlerterListener warns when the number of distinct
// ledgers multiplexed through the journal crosses a configured threshold.
// The journal interleaves many ledgers' records into one physical stream;
// an unexpectedly large ledger fan-in can be an early signal of a runaway
// client or a mis-partitioned workload.
type LedgerCardinalityAlerterListener struct {
	logger    *slog.Logger
	threshold int

	mu      sync.Mutex
	seen    map[uint64]struct{}
	alerted bool
}

// NewLedgerCardinalityAlerterListener creates a listener that warns once
// the number of distinct ledger ids observed exceeds threshold.
func NewLedgerCardinalityAlerterListener(logger *slog.Logger, threshold int) *LedgerCardinalityAlerterListener {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LedgerCardinalityAlerterListener{
		logger:    logger.With("component", "LedgerCardinalityAlerterListener"),
		threshold: threshold,
		seen:      make(map[uint64]struct{}),
	}
}

// OnEvent handles PostAppend events, tracking distinct ledger ids.
func (l *LedgerCardinalityAlerterListener) OnEvent(ctx context.Context, event hooks.HookEvent) error {
	if event.Type() != hooks.EventPostAppend {
		return nil
	}
	payload, ok := event.Payload().(hooks.PostAppendPayload)
	if !ok {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seen[payload.LedgerID] = struct{}{}
	if !l.alerted && l.threshold > 0 && len(l.seen) > l.threshold {
		l.alerted = true
		l.logger.Warn("distinct ledger count exceeded threshold",
			"distinct_ledgers", len(l.seen),
			"threshold", l.threshold,
		)
	}
	return nil
}

// Priority defines the execution order.
func (l *LedgerCardinalityAlerterListener) Priority() int { return 100 }

// IsAsync indicates this listener can run in the background.
func (l *LedgerCardinalityAlerterListener) IsAsync() bool { return true }
