package journal

import (
	"context"
	"hash/fnv"

	"github.com/INLOpen/nexusbase/core"
	"github.com/INLOpen/nexusbase/hooks"
)

// orderedCallbackExecutor dispatches WriteCallback invocations such that
// submissions sharing the same ctx (a ledger id) are always run on the
// same worker goroutine, in submission order. It is a hash-striped set of
// single-consumer queues.
//
// hash/fnv picks the worker: it's the standard library's hashing package,
// used here for a narrow, non-cryptographic striping need (see
// DESIGN.md).
type orderedCallbackExecutor struct {
	workers     []*callbackWorker
	hookManager hooks.HookManager
}

type callbackThunk func()

type callbackWorker struct {
	queue *fifoQueue[callbackThunk]
	done  chan struct{}
}

func newOrderedCallbackExecutor(numWorkers int, hookManager hooks.HookManager) *orderedCallbackExecutor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	e := &orderedCallbackExecutor{workers: make([]*callbackWorker, numWorkers), hookManager: hookManager}
	for i := range e.workers {
		w := &callbackWorker{
			queue: newFifoQueue[callbackThunk](),
			done:  make(chan struct{}),
		}
		e.workers[i] = w
		go w.run()
	}
	return e
}

func (w *callbackWorker) run() {
	defer close(w.done)
	for {
		thunk, ok := w.queue.Take()
		if !ok {
			return
		}
		thunk()
	}
}

// workerFor picks the worker owning ctx's stripe.
func (e *orderedCallbackExecutor) workerFor(ctx uint64) *callbackWorker {
	h := fnv.New32a()
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(ctx >> (8 * i))
	}
	h.Write(buf[:])
	idx := int(h.Sum32()) % len(e.workers)
	if idx < 0 {
		idx += len(e.workers)
	}
	return e.workers[idx]
}

// Submit enqueues thunk on ctx's stripe. Submissions with the same ctx run
// strictly in submission order relative to each other.
func (e *orderedCallbackExecutor) Submit(ctx uint64, thunk callbackThunk) {
	e.workerFor(ctx).queue.Put(thunk)
}

// Dispatch calls Submit for each waiter with a thunk that invokes its
// callback and, once the callback has run, fires a PostAppend hook event
// carrying the mark the record landed at (or the zero mark on error).
func (e *orderedCallbackExecutor) Dispatch(waiters []*queueEntry, mark core.LogMark, err error) {
	for _, w := range waiters {
		entry := w
		e.Submit(entry.ctx, func() {
			if entry.cb != nil {
				entry.cb(err, entry.ledgerID, entry.entryID, entry.ctx)
			}
			if e.hookManager != nil {
				e.hookManager.Trigger(context.Background(), hooks.NewPostAppendEvent(hooks.PostAppendPayload{
					LedgerID: entry.ledgerID,
					EntryID:  entry.entryID,
					Mark:     mark,
					Err:      err,
				}))
			}
		})
	}
}

// Shutdown closes every worker's queue and waits for it to drain and exit.
// Any callbacks still queued at the moment of Close are still delivered
// (Take drains remaining items before honoring closed); callbacks racing
// the shutdown call itself may be dropped.
func (e *orderedCallbackExecutor) Shutdown() {
	for _, w := range e.workers {
		w.queue.Close()
	}
	for _, w := range e.workers {
		<-w.done
	}
}
