package listeners

import (
	"context"
	"expvar"
	"io"
	"log/slog"
	"sync"

	"github.com/INLOpen/nexusbase/hooks"
)

// GroupCommitRatioListener tracks how effectively adaptive grouping is
// amortizing fsync cost: the ratio of records force-written to fsync
// syscalls actually issued. A ratio close to 1 means little or no grouping
// is happening; a high ratio under load means group commit is working.
var (
	groupCommitMetricsOnce sync.Once
	totalRecordsSynced     *expvar.Int
	totalForceWriteSyncs   *expvar.Int
)

func initGroupCommitMetrics() {
	groupCommitMetricsOnce.Do(func() {
		totalRecordsSynced = expvar.NewInt("journal_group_commit_records_total")
		totalForceWriteSyncs = expvar.NewInt("journal_group_commit_fsyncs_total")
		expvar.Publish("journal_group_commit_ratio", expvar.Func(func() interface{} {
			syncs := totalForceWriteSyncs.Value()
			if syncs == 0 {
				return 0.0
			}
			return float64(totalRecordsSynced.Value()) / float64(syncs)
		}))
	})
}

// GroupCommitRatioListener is a HookListener for EventPostForceWrite.
type GroupCommitRatioListener struct {
	logger *slog.Logger

	recordsSynced *expvar.Int
	forceWrites   *expvar.Int
}

// NewGroupCommitRatioListener creates a new listener.
func NewGroupCommitRatioListener(logger *slog.Logger) *GroupCommitRatioListener {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	initGroupCommitMetrics()
	return &GroupCommitRatioListener{
		logger:        logger.With("component", "GroupCommitRatioListener"),
		recordsSynced: totalRecordsSynced,
		forceWrites:   totalForceWriteSyncs,
	}
}

// OnEvent is called when a PostForceWrite event is triggered.
func (l *GroupCommitRatioListener) OnEvent(ctx context.Context, event hooks.HookEvent) error {
	payload, ok := event.Payload().(hooks.PostForceWritePayload)
	if !ok {
		return nil
	}

	l.recordsSynced.Add(int64(payload.WaiterCount))
	if payload.Synced {
		l.forceWrites.Add(1)
	}

	l.logger.Debug("force write resolved",
		"log_id", payload.LogID,
		"start_flush_pos", payload.StartFlushPos,
		"end_flush_pos", payload.EndFlushPos,
		"synced", payload.Synced,
		"waiters", payload.WaiterCount,
	)

	return nil
}

// Priority defines the execution order. Lower numbers run first.
func (l *GroupCommitRatioListener) Priority() int { return 100 }

// IsAsync indicates this listener can run in the background.
func (l *GroupCommitRatioListener) IsAsync() bool { return true }
