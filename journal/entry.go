package journal

import "time"

// WriteCallback is the typed continuation invoked exactly once per Append,
// from the ordered callback executor. err is nil on success.
type WriteCallback func(err error, ledgerID, entryID uint64, ctx uint64)

// queueEntry is the in-memory-only unit that flows from Append through the
// write queue and, once flushed, through a forceWriteRequest to the
// force-write stage. It never flows backwards.
type queueEntry struct {
	payload     []byte
	ledgerID    uint64
	entryID     uint64
	cb          WriteCallback
	ctx         uint64
	enqueueTime time.Time
}

// forceWriteRequest transfers ownership of a flushed byte range (and the
// journalFile it belongs to) from the writer stage to the force-write
// stage. shouldClose tells the force-write stage it is now responsible for
// closing the file after dispatching waiters.
type forceWriteRequest struct {
	file          *journalFile
	logID         uint64
	startFlushPos int64
	endFlushPos   int64
	waiters       []*queueEntry
	shouldClose   bool
	isMarker      bool
}
