package journal

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/INLOpen/nexusbase/core"
	"github.com/INLOpen/nexusbase/hooks"
	"github.com/INLOpen/nexusbase/sys"
)

// Checkpoint is an immutable snapshot of the journal's durable mark at the
// moment RequestCheckpoint was called.
type Checkpoint struct {
	j    *Journal
	mark core.LogMark
}

// Mark returns the LogMark this checkpoint snapshots.
func (c *Checkpoint) Mark() core.LogMark { return c.mark }

// Completed persists the checkpoint's mark to every writable ledger
// directory. When compact is true it additionally garbage-collects journal
// files strictly older than the mark's log id.
func (c *Checkpoint) Completed(compact bool) error {
	rollErr := rollLog(c.j.opts.LedgerDirs, c.mark, c.j.logger)

	if compact {
		deleted, gcErr := c.j.garbageCollect(c.mark)
		if gcErr != nil {
			c.j.logger.Error("checkpoint garbage collection failed", "error", gcErr)
		} else if c.j.hookManager != nil && len(deleted) > 0 {
			c.j.hookManager.Trigger(context.Background(), hooks.NewPostGCEvent(hooks.PostGCPayload{
				UpToLogID: c.mark.LogID,
				Deleted:   deleted,
			}))
		}
	}

	if c.j.hookManager != nil {
		c.j.hookManager.Trigger(context.Background(), hooks.NewPostCheckpointEvent(hooks.PostCheckpointPayload{
			Mark:    c.mark,
			Compact: compact,
		}))
	}

	return rollErr
}

// garbageCollect deletes the oldest journal files with id < mark.LogID
// once more than MaxBackupJournals of them exist. Delete failures are
// logged, not raised. Returns the ids actually deleted.
func (j *Journal) garbageCollect(mark core.LogMark) ([]uint64, error) {
	ids, err := listJournalFiles(j.opts.JournalDir)
	if err != nil {
		return nil, fmt.Errorf("%w: list journal files for gc: %v", core.ErrIO, err)
	}

	var older []uint64
	for _, id := range ids {
		if id < mark.LogID {
			older = append(older, id)
		}
	}
	sort.Slice(older, func(i, k int) bool { return older[i] < older[k] })

	if len(older) <= j.opts.MaxBackupJournals {
		return nil, nil
	}
	toDelete := older[:len(older)-j.opts.MaxBackupJournals]
	deleted := make([]uint64, 0, len(toDelete))
	for _, id := range toDelete {
		path := filepath.Join(j.opts.JournalDir, core.FormatJournalFileName(id))
		if err := sys.Remove(path); err != nil {
			j.logger.Error("failed to delete backup journal file", "path", path, "error", err)
			continue
		}
		deleted = append(deleted, id)
	}
	return deleted, nil
}

// RequestCheckpoint snapshots the current durable mark for an external
// checkpointer.
func (j *Journal) RequestCheckpoint() *Checkpoint {
	return &Checkpoint{j: j, mark: j.lastMark.Snapshot()}
}
