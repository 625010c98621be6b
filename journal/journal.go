// Package journal implements the write-ahead journal of a bookie-style
// log-storage node: the durability boundary every entry write passes
// through before it is acknowledged. It runs a three-stage
// producer/consumer pipeline (submit, writer, force-write) plus a
// last-log-mark checkpoint subsystem.
package journal

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/INLOpen/nexusbase/config"
	"github.com/INLOpen/nexusbase/core"
	"github.com/INLOpen/nexusbase/hooks"
	"golang.org/x/sync/errgroup"
)

// Options configures a Journal. Zero values for size/duration fields are
// not sensible defaults; callers should build Options via
// NewOptionsFromConfig or fill every field explicitly.
type Options struct {
	// JournalDir holds the journal's <log_id_hex>.txn files.
	// config.JournalConfig.JournalDirs stays a list to support
	// multi-directory I/O spreading, but this package operates on a single
	// directory; NewOptionsFromConfig picks the first entry and ignores
	// the rest.
	JournalDir string
	// LedgerDirs receive the lastMark checkpoint file.
	LedgerDirs []string

	MaxJournalSizeBytes     int64
	PreallocChunkBytes      int64
	WriteBufferBytes        int
	MaxBackupJournals       int
	AdaptiveGroupWrites     bool
	MaxGroupWait            time.Duration
	BufferedWritesThreshold int64
	BufferedEntriesThreshold int64
	FlushWhenQueueEmpty      bool
	RemovePagesFromCache     bool
	NumCallbackThreads       int

	Logger      *slog.Logger
	HookManager hooks.HookManager
}

// NewOptionsFromConfig translates a loaded config.Config into journal
// Options, applying the MB/KB/ms unit conversions the on-disk config keeps
// implicit.
func NewOptionsFromConfig(cfg *config.Config, logger *slog.Logger, hookManager hooks.HookManager) (Options, error) {
	jc := cfg.Journal
	if len(jc.JournalDirs) == 0 {
		return Options{}, fmt.Errorf("journal_dirs must name at least one directory")
	}
	if len(jc.LedgerDirs) == 0 {
		return Options{}, fmt.Errorf("ledger_dirs must name at least one directory")
	}
	return Options{
		JournalDir:               jc.JournalDirs[0],
		LedgerDirs:               jc.LedgerDirs,
		MaxJournalSizeBytes:      jc.MaxJournalSizeMB * config.MB,
		PreallocChunkBytes:       jc.JournalPreAllocSizeMB * config.MB,
		WriteBufferBytes:         int(jc.JournalWriteBufferSizeKB * config.KB),
		MaxBackupJournals:        jc.MaxBackupJournals,
		AdaptiveGroupWrites:      jc.JournalAdaptiveGroupWrites,
		MaxGroupWait:             time.Duration(jc.JournalMaxGroupWaitMs) * time.Millisecond,
		BufferedWritesThreshold:  jc.JournalBufferedWritesThreshold,
		BufferedEntriesThreshold: jc.JournalBufferedEntriesThreshold,
		FlushWhenQueueEmpty:      jc.JournalFlushWhenQueueEmpty,
		RemovePagesFromCache:     jc.JournalRemovePagesFromCache,
		NumCallbackThreads:       jc.NumJournalCallbackThreads,
		Logger:                   logger,
		HookManager:              hookManager,
	}, nil
}

// Journal is the durability boundary of the node: every Append is recorded
// here, forced to stable storage, and only then acknowledged.
type Journal struct {
	opts        Options
	logger      *slog.Logger
	hookManager hooks.HookManager
	metrics     *metrics

	lastMark *lastLogMark

	writeQueue   *fifoQueue[*queueEntry]
	forceQueue   *fifoQueue[*forceWriteRequest]
	callbackExec *orderedCallbackExecutor

	group  *errgroup.Group
	cancel context.CancelFunc
	running atomic.Bool
}

var instanceCounter uint64

// Open starts a Journal rooted at opts.JournalDir / opts.LedgerDirs. It
// does not replay; callers should call Replay before accepting Appends.
func Open(opts Options) (*Journal, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "journal")
	} else {
		opts.Logger = opts.Logger.With("component", "journal")
	}
	if opts.HookManager == nil {
		opts.HookManager = hooks.NewHookManager(opts.Logger)
	}
	if opts.NumCallbackThreads <= 0 {
		opts.NumCallbackThreads = 1
	}

	if err := os.MkdirAll(opts.JournalDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create journal dir %s: %v", core.ErrIO, opts.JournalDir, err)
	}
	for _, dir := range opts.LedgerDirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: create ledger dir %s: %v", core.ErrIO, dir, err)
		}
	}

	id := atomic.AddUint64(&instanceCounter, 1)
	j := &Journal{
		opts:        opts,
		logger:      opts.Logger,
		hookManager: opts.HookManager,
		metrics:     newMetrics(fmt.Sprintf("%d", id)),
		lastMark:    &lastLogMark{},
		writeQueue:  newFifoQueue[*queueEntry](),
		forceQueue:  newFifoQueue[*forceWriteRequest](),
	}
	j.callbackExec = newOrderedCallbackExecutor(opts.NumCallbackThreads, opts.HookManager)
	j.lastMark.set(readLastLogMark(opts.LedgerDirs))
	j.running.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	j.group = g

	g.Go(func() error { return j.writerLoop(gctx) })
	g.Go(func() error { return j.forceWriteLoop(gctx) })

	return j, nil
}

// Append parses the record header, clones payload into journal-owned
// memory, enqueues it on the write queue, and returns immediately. cb
// fires exactly once from the ordered callback executor.
func (j *Journal) Append(payload []byte, cb WriteCallback, ctx uint64) error {
	if !j.running.Load() {
		return fmt.Errorf("%w: journal is shut down", core.ErrIO)
	}

	var ledgerID, entryID uint64
	if len(payload) >= 16 {
		ledgerID = binary.BigEndian.Uint64(payload[0:8])
		entryID = binary.BigEndian.Uint64(payload[8:16])
	}
	// A payload shorter than 16 bytes is a programmer error; the journal
	// does not reject it, it just can't extract a header and treats the
	// ledger/entry id as zero.

	if j.hookManager != nil {
		if err := j.hookManager.Trigger(context.Background(), hooks.NewPreAppendEvent(hooks.AppendPayload{
			LedgerID:   ledgerID,
			EntryID:    entryID,
			PayloadLen: len(payload),
		})); err != nil {
			return err
		}
	}

	cloned := append([]byte(nil), payload...)
	entry := &queueEntry{
		payload:     cloned,
		ledgerID:    ledgerID,
		entryID:     entryID,
		cb:          cb,
		ctx:         ctx,
		enqueueTime: time.Now(),
	}
	j.writeQueue.Put(entry)
	return nil
}

// JournalQueueLength reports the write queue's current depth, for
// monitoring.
func (j *Journal) JournalQueueLength() int {
	return j.writeQueue.Len()
}

// ForceWriteQueueLength reports the force-write queue's current depth.
func (j *Journal) ForceWriteQueueLength() int {
	return j.forceQueue.Len()
}

// LastLogMark returns the last durable mark observed by the force-write
// stage.
func (j *Journal) LastLogMark() core.LogMark {
	return j.lastMark.Snapshot()
}

// Shutdown stops accepting new work, drains the pipeline, and waits for
// both stages to exit. In-flight entries not yet
// dispatched at the moment the queues are closed have their callbacks
// dropped; callers must quiesce producers before calling Shutdown.
func (j *Journal) Shutdown() error {
	if !j.running.CompareAndSwap(true, false) {
		return nil // already shut down
	}

	if j.hookManager != nil {
		j.hookManager.Trigger(context.Background(), hooks.NewPreShutdownEvent())
	}

	j.cancel()
	j.writeQueue.Close()

	err := j.group.Wait()

	done := make(chan struct{})
	go func() {
		j.callbackExec.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		j.logger.Warn("callback executor did not drain within grace period, abandoning outstanding callbacks")
	}

	if j.hookManager != nil {
		j.hookManager.Trigger(context.Background(), hooks.NewPostShutdownEvent())
		j.hookManager.Stop()
	}

	return err
}
