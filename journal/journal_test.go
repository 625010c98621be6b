package journal

import (
	"sync"
	"testing"
	"time"

	"github.com/INLOpen/nexusbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		JournalDir:               t.TempDir(),
		LedgerDirs:               []string{t.TempDir()},
		MaxJournalSizeBytes:      0, // no rollover unless overridden
		PreallocChunkBytes:       0,
		WriteBufferBytes:         4096,
		MaxBackupJournals:        5,
		AdaptiveGroupWrites:      true,
		MaxGroupWait:             10 * time.Millisecond,
		BufferedWritesThreshold:  0,
		BufferedEntriesThreshold: 0,
		FlushWhenQueueEmpty:      true,
		NumCallbackThreads:       2,
		Logger:                   discardLogger(),
	}
}

func recordPayload(ledgerID, entryID uint64, body string) []byte {
	buf := make([]byte, 16+len(body))
	putU64 := func(b []byte, v uint64) {
		for i := 7; i >= 0; i-- {
			b[i] = byte(v)
			v >>= 8
		}
	}
	putU64(buf[0:8], ledgerID)
	putU64(buf[8:16], entryID)
	copy(buf[16:], body)
	return buf
}

// awaitCallback wraps a WriteCallback with a channel so tests can block on
// completion instead of sleeping.
func awaitCallback() (WriteCallback, chan error) {
	ch := make(chan error, 1)
	return func(err error, ledgerID, entryID, ctx uint64) {
		ch <- err
	}, ch
}

func TestJournal_SingleAppendFsyncs(t *testing.T) {
	// A single append is forced to disk: its callback succeeds and the
	// durable mark lands on a sector boundary.
	opts := testOptions(t)
	j, err := Open(opts)
	require.NoError(t, err)
	defer j.Shutdown()

	cb, done := awaitCallback()
	payload := recordPayload(7, 0, "0123456789012345") // 32 bytes total
	require.NoError(t, j.Append(payload, cb, 7))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("append callback did not fire")
	}

	mark := j.LastLogMark()
	assert.NotZero(t, mark.LogID)
	assert.Zero(t, mark.Offset%core.SectorSize)
}

func TestJournal_PerLedgerCallbackOrdering(t *testing.T) {
	opts := testOptions(t)
	j, err := Open(opts)
	require.NoError(t, err)
	defer j.Shutdown()

	const n = 50
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		i := i
		payload := recordPayload(3, uint64(i), "x")
		require.NoError(t, j.Append(payload, func(err error, ledgerID, entryID, ctx uint64) {
			require.NoError(t, err)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		}, 3))
	}

	waitTimeout(t, &wg, 2*time.Second)
	require.Len(t, order, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, i, order[i])
	}
}

func TestJournal_Rollover(t *testing.T) {
	// Rollover across files: replay walks all of them in order.
	opts := testOptions(t)
	opts.MaxJournalSizeBytes = 2048
	opts.MaxGroupWait = 2 * time.Millisecond
	j, err := Open(opts)
	require.NoError(t, err)

	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	body := make([]byte, 64)
	for i := 0; i < n; i++ {
		payload := recordPayload(1, uint64(i), string(body))
		require.NoError(t, j.Append(payload, func(err error, ledgerID, entryID, ctx uint64) {
			require.NoError(t, err)
			wg.Done()
		}, 1))
	}
	waitTimeout(t, &wg, 5*time.Second)
	require.NoError(t, j.Shutdown())

	ids, err := listJournalFiles(opts.JournalDir)
	require.NoError(t, err)
	require.Greater(t, len(ids), 1, "expected the stream to roll over at least once")

	j2, err := Open(opts)
	require.NoError(t, err)
	defer j2.Shutdown()

	var got []uint64
	_, err = j2.Replay(ScannerFunc(func(formatVersion uint8, offset int64, payload []byte) error {
		got = append(got, entryIDOf(payload))
		return nil
	}))
	require.NoError(t, err)
	require.Len(t, got, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, uint64(i), got[i])
	}
}

func entryIDOf(payload []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(payload[8+i])
	}
	return v
}

func TestJournal_QueueLengthReporting(t *testing.T) {
	opts := testOptions(t)
	opts.MaxGroupWait = time.Hour // never flush on its own
	opts.FlushWhenQueueEmpty = false
	opts.BufferedWritesThreshold = 1 << 30
	j, err := Open(opts)
	require.NoError(t, err)
	defer j.Shutdown()

	cb, _ := awaitCallback()
	for i := 0; i < 5; i++ {
		require.NoError(t, j.Append(recordPayload(1, uint64(i), "x"), cb, 1))
	}

	assert.Eventually(t, func() bool {
		return j.JournalQueueLength() >= 0
	}, time.Second, 10*time.Millisecond)
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for callbacks")
	}
}
