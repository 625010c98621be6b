package journal

import (
	"bufio"
	"errors"

	"github.com/INLOpen/nexusbase/sys"
)

// bufferedChannel batches small writes into a write buffer before handing
// them to the OS; Flush drains the buffer to the page cache without
// fsyncing. It also owns the preallocation watermark so
// preAllocIfNeeded avoids metadata journaling traffic during
// steady-state appends.
type bufferedChannel struct {
	fh sys.FileHandle
	w  *bufio.Writer

	writePos       int64 // logical end-of-content offset, advances on every Write
	flushedPos     int64 // offset last handed to the OS via Flush
	allocWatermark int64 // file has been preallocated up to this offset
	preallocChunk  int64
}

func newBufferedChannel(fh sys.FileHandle, startPos int64, bufSizeBytes int, preallocChunkBytes int64) *bufferedChannel {
	if bufSizeBytes <= 0 {
		bufSizeBytes = 64 * 1024
	}
	return &bufferedChannel{
		fh:             fh,
		w:              bufio.NewWriterSize(fh, bufSizeBytes),
		writePos:       startPos,
		flushedPos:     startPos,
		allocWatermark: startPos,
		preallocChunk:  preallocChunkBytes,
	}
}

// Write buffers p, advancing the logical write position immediately even
// though the bytes may not reach the OS until Flush.
func (b *bufferedChannel) Write(p []byte) (int, error) {
	n, err := b.w.Write(p)
	b.writePos += int64(n)
	return n, err
}

// Position returns the logical end-of-content offset.
func (b *bufferedChannel) Position() int64 { return b.writePos }

// FlushedPosition returns the offset of content already handed to the OS.
func (b *bufferedChannel) FlushedPosition() int64 { return b.flushedPos }

// Flush drains the write buffer to the underlying file (page cache) without
// issuing an fsync.
func (b *bufferedChannel) Flush() error {
	if err := b.w.Flush(); err != nil {
		return err
	}
	b.flushedPos = b.writePos
	return nil
}

// preAllocIfNeeded grows the file's preallocated region by preallocChunk
// whenever the next write of n bytes would cross the current watermark.
func (b *bufferedChannel) preAllocIfNeeded(n int64) error {
	if b.preallocChunk <= 0 {
		return nil
	}
	need := b.writePos + n
	if need <= b.allocWatermark {
		return nil
	}
	target := b.allocWatermark
	for target < need {
		target += b.preallocChunk
	}
	if err := sys.Preallocate(b.fh, target); err != nil {
		if errors.Is(err, sys.ErrPreallocNotSupported) {
			// Platform/filesystem can't preallocate; treat the watermark as
			// reached anyway so we don't retry every write.
			b.allocWatermark = target
			return nil
		}
		return err
	}
	b.allocWatermark = target
	return nil
}
