package journal

import (
	"sync"
	"testing"

	"github.com/INLOpen/nexusbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedCallbackExecutor_PerLedgerFIFO(t *testing.T) {
	e := newOrderedCallbackExecutor(4, nil)
	defer e.Shutdown()

	const n = 200
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(n)

	waiters := make([]*queueEntry, 0, n)
	for i := 0; i < n; i++ {
		i := i
		waiters = append(waiters, &queueEntry{
			ledgerID: 7,
			entryID:  uint64(i),
			ctx:      7,
			cb: func(err error, ledgerID, entryID, ctx uint64) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				wg.Done()
			},
		})
	}

	e.Dispatch(waiters, core.LogMark{}, nil)
	wg.Wait()

	require.Len(t, order, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, i, order[i], "callbacks for the same ctx must fire in submission order")
	}
}

func TestOrderedCallbackExecutor_DifferentLedgersMayInterleave(t *testing.T) {
	e := newOrderedCallbackExecutor(2, nil)
	defer e.Shutdown()

	var wg sync.WaitGroup
	wg.Add(2)
	waiters := []*queueEntry{
		{ledgerID: 1, ctx: 1, cb: func(err error, ledgerID, entryID, ctx uint64) { wg.Done() }},
		{ledgerID: 2, ctx: 2, cb: func(err error, ledgerID, entryID, ctx uint64) { wg.Done() }},
	}
	e.Dispatch(waiters, core.LogMark{}, nil)
	wg.Wait()
}

func TestOrderedCallbackExecutor_ShutdownWaitsForInFlight(t *testing.T) {
	e := newOrderedCallbackExecutor(1, nil)
	var ran bool
	var wg sync.WaitGroup
	wg.Add(1)
	e.Submit(1, func() {
		ran = true
		wg.Done()
	})
	e.Shutdown()
	wg.Wait()
	assert.True(t, ran)
}
