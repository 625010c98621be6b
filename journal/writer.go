package journal

import (
	"context"
	"time"

	"github.com/INLOpen/nexusbase/core"
	"github.com/INLOpen/nexusbase/hooks"
)

// writerLoop is the single writer stage. It owns exactly one open
// journalFile at a time, batches records into to_flush, and hands
// flushed byte ranges to the force-write stage.
func (j *Journal) writerLoop(ctx context.Context) error {
	logger := j.logger.With("stage", "writer")

	var currentFile *journalFile
	var toFlush []*queueEntry
	var bufferedBytes int64
	var lastClosedLogID uint64
	groupWhenTimeout := false

	defer func() {
		if currentFile != nil {
			if err := currentFile.close(); err != nil {
				logger.Error("failed to close journal file on writer exit", "error", err)
			}
		}
		j.forceQueue.Close()
	}()

	for {
		var entry *queueEntry
		var ok bool

		if len(toFlush) == 0 {
			entry, ok = j.writeQueue.Take()
			if !ok {
				return nil
			}
		} else {
			age := time.Since(toFlush[0].enqueueTime)
			pollWait := j.opts.MaxGroupWait - age
			if j.opts.FlushWhenQueueEmpty || pollWait <= 0 {
				pollWait = 0
			}
			entry, ok = j.writeQueue.Poll(pollWait)
		}

		shouldFlush := false
		flushReason := ""

		if len(toFlush) > 0 {
			ageExceeded := time.Since(toFlush[0].enqueueTime) > j.opts.MaxGroupWait
			switch {
			case ok:
				entryOld := time.Since(entry.enqueueTime) > j.opts.MaxGroupWait
				if groupWhenTimeout {
					// A subsequent poll returned a young entry: the timeout
					// spike is over, coalesce it into one flush now.
					if !entryOld {
						shouldFlush = true
						flushReason = "max_wait"
						groupWhenTimeout = false
					}
				} else if ageExceeded {
					groupWhenTimeout = true
				}
			case !ok:
				// Poll timed out with nothing new.
				if groupWhenTimeout || ageExceeded {
					shouldFlush = true
					flushReason = "max_wait"
					groupWhenTimeout = false
				} else if j.opts.FlushWhenQueueEmpty {
					shouldFlush = true
					flushReason = "empty_queue"
				}
			}
		}

		if j.opts.BufferedEntriesThreshold > 0 && int64(len(toFlush)) > j.opts.BufferedEntriesThreshold {
			shouldFlush = true
			flushReason = "max_outstanding"
		}
		if bufferedBytes > j.opts.BufferedWritesThreshold {
			shouldFlush = true
			flushReason = "max_outstanding"
		}

		if ok {
			if currentFile == nil {
				var err error
				currentFile, err = j.openNextFile(lastClosedLogID)
				if err != nil {
					return err
				}
			}
			if err := currentFile.writeRecord(entry.payload); err != nil {
				return err
			}
			bufferedBytes += int64(4 + len(entry.payload))
			toFlush = append(toFlush, entry)
			j.metrics.recordsWritten.Add(1)
			j.metrics.bytesWritten.Add(int64(4 + len(entry.payload)))
		}

		if shouldFlush && currentFile != nil && len(toFlush) > 0 {
			startFlushPos := currentFile.bc.FlushedPosition()

			if err := currentFile.emitPadding(); err != nil {
				return err
			}
			if err := currentFile.flush(); err != nil {
				return err
			}
			endFlushPos := currentFile.bc.Position()

			shouldClose := j.opts.MaxJournalSizeBytes > 0 && endFlushPos > j.opts.MaxJournalSizeBytes

			j.forceQueue.Put(&forceWriteRequest{
				file:          currentFile,
				logID:         currentFile.logID,
				startFlushPos: startFlushPos,
				endFlushPos:   endFlushPos,
				waiters:       toFlush,
				shouldClose:   shouldClose,
			})

			switch flushReason {
			case "max_wait":
				j.metrics.flushMaxWaitCount.Add(1)
			case "max_outstanding":
				j.metrics.flushMaxOutstandingCount.Add(1)
			case "empty_queue":
				j.metrics.flushEmptyQueueCount.Add(1)
			}

			toFlush = nil
			bufferedBytes = 0

			if shouldClose {
				lastClosedLogID = currentFile.logID
				currentFile = nil
			}
		}

		// The write queue was closed and drained while a batch was pending
		// (shutdown, or the force-write stage exited): stop instead of
		// polling the closed queue forever.
		if !ok && ctx.Err() != nil {
			return nil
		}
	}
}

// openNextFile mints the next journal file: id strictly greater than every
// existing id and the wall clock, so ids stay monotonic across restarts
// regardless of clock skew.
func (j *Journal) openNextFile(oldLogID uint64) (*journalFile, error) {
	ids, err := listJournalFiles(j.opts.JournalDir)
	if err != nil {
		return nil, errf(core.ErrIO, "list journal files in %s: %v", j.opts.JournalDir, err)
	}
	id := nextLogID(ids, time.Now().UnixMilli())
	jf, err := createJournalFile(j.opts.JournalDir, id, j.opts.WriteBufferBytes, j.opts.PreallocChunkBytes)
	if err != nil {
		return nil, err
	}
	if j.hookManager != nil {
		j.hookManager.Trigger(context.Background(), hooks.NewPostJournalRotateEvent(hooks.PostJournalRotatePayload{
			OldLogID: oldLogID,
			NewLogID: id,
			NewPath:  jf.path,
		}))
	}
	return jf, nil
}
