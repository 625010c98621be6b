package journal

import (
	"context"

	"github.com/INLOpen/nexusbase/core"
	"github.com/INLOpen/nexusbase/hooks"
)

// forceWriteLoop is the single force-write stage. It drains the force
// queue, issues fsync/range-sync (or elides it under adaptive grouping),
// advances the last log mark, and dispatches waiter callbacks through the
// ordered callback executor.
func (j *Journal) forceWriteLoop(ctx context.Context) error {
	logger := j.logger.With("stage", "force_write")

	// pendingMarker is true from the moment a real fsync's marker request
	// is pushed until that marker (or an intervening should_close) is
	// encountered; while true, subsequent non-marker requests skip their
	// own fsync because the pending marker's predecessor already covered
	// their bytes (adaptive grouping).
	pendingMarker := false

	// If this stage exits (normally or fatally) it will never drain any
	// further work the writer stage produces; wake the writer so it does
	// not block forever on write_queue.take().
	defer j.writeQueue.Close()

	for {
		req, ok := j.forceQueue.Take()
		if !ok {
			return nil
		}

		if req.isMarker {
			pendingMarker = false
			if req.shouldClose {
				if err := req.file.close(); err != nil {
					logger.Error("failed to close journal file", "log_id", req.logID, "error", err)
				}
			}
			continue
		}

		var err error
		synced := false

		if j.opts.AdaptiveGroupWrites {
			if !pendingMarker {
				// Enqueue the marker before syncing: every request queued
				// ahead of it was flushed before this fsync started.
				pendingMarker = true
				j.forceQueue.Put(&forceWriteRequest{file: req.file, logID: req.logID, isMarker: true})
				err = req.file.forceWrite(false)
				synced = err == nil
			} else {
				j.metrics.forceWriteGroupingCount.Add(1)
			}
			if req.shouldClose {
				pendingMarker = false
			}
		} else {
			err = req.file.syncRange(req.startFlushPos, req.endFlushPos-req.startFlushPos)
			synced = err == nil
		}

		if err != nil {
			logger.Error("force write failed", "log_id", req.logID, "error", err)
			j.callbackExec.Dispatch(req.waiters, core.LogMark{}, err)
			if req.shouldClose {
				req.file.close()
			}
			return err
		}

		if synced && j.opts.RemovePagesFromCache {
			req.file.dontNeed(req.startFlushPos, req.endFlushPos-req.startFlushPos)
		}

		mark := core.LogMark{LogID: req.logID, Offset: uint64(req.endFlushPos)}
		j.lastMark.set(mark)

		if j.hookManager != nil {
			j.hookManager.Trigger(context.Background(), hooks.NewPostForceWriteEvent(hooks.PostForceWritePayload{
				LogID:         req.logID,
				StartFlushPos: req.startFlushPos,
				EndFlushPos:   req.endFlushPos,
				Synced:        synced,
				WaiterCount:   len(req.waiters),
			}))
		}

		j.callbackExec.Dispatch(req.waiters, mark, nil)

		if req.shouldClose {
			if err := req.file.close(); err != nil {
				logger.Error("failed to close rolled journal file", "log_id", req.logID, "error", err)
			}
		}
	}
}
