package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFifoQueue_PutTakeOrder(t *testing.T) {
	q := newFifoQueue[int]()
	q.Put(1)
	q.Put(2)
	q.Put(3)

	for _, want := range []int{1, 2, 3} {
		got, ok := q.Take()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestFifoQueue_TakeBlocksUntilPut(t *testing.T) {
	q := newFifoQueue[int]()
	done := make(chan int, 1)
	go func() {
		v, ok := q.Take()
		require.True(t, ok)
		done <- v
	}()

	time.Sleep(20 * time.Millisecond)
	q.Put(42)

	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("Take did not unblock after Put")
	}
}

func TestFifoQueue_PollTimeout(t *testing.T) {
	q := newFifoQueue[int]()
	start := time.Now()
	_, ok := q.Poll(30 * time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestFifoQueue_PollReturnsImmediatelyWhenNonEmpty(t *testing.T) {
	q := newFifoQueue[int]()
	q.Put(7)
	v, ok := q.Poll(time.Second)
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestFifoQueue_CloseUnblocksTake(t *testing.T) {
	q := newFifoQueue[int]()
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Take()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Take did not unblock after Close")
	}
}

func TestFifoQueue_CloseDrainsExistingItems(t *testing.T) {
	q := newFifoQueue[int]()
	q.Put(1)
	q.Put(2)
	q.Close()

	v, ok := q.Take()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = q.Take()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = q.Take()
	assert.False(t, ok)
}

func TestFifoQueue_Len(t *testing.T) {
	q := newFifoQueue[int]()
	assert.Equal(t, 0, q.Len())
	q.Put(1)
	q.Put(2)
	assert.Equal(t, 2, q.Len())
	q.Take()
	assert.Equal(t, 1, q.Len())
}
