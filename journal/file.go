package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/INLOpen/nexusbase/core"
	"github.com/INLOpen/nexusbase/sys"
)

// journalFile wraps a journal's on-disk file: the fixed header, the
// buffered channel used for steady-state writes, and the force-write /
// range-sync / fadvise operations. It is exclusively owned by the writer
// stage while open for append, then ownership passes through a
// forceWriteRequest to the force-write stage.
type journalFile struct {
	fh            sys.FileHandle
	path          string
	logID         uint64
	formatVersion uint8
	headerSize    int64
	bc            *bufferedChannel
	closed        bool
}

// createJournalFile creates a new journal file named <logID hex>.txn in
// dir, stamped with the current format version.
func createJournalFile(dir string, logID uint64, writeBufBytes int, preallocChunkBytes int64) (*journalFile, error) {
	path := filepath.Join(dir, core.FormatJournalFileName(logID))
	fh, err := sys.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: create journal file %s: %v", core.ErrIO, path, err)
	}

	header := core.NewFileHeader(core.JournalMagicNumber)
	headerBuf := make([]byte, 0, header.Size())
	hw := &sliceWriter{buf: &headerBuf}
	if err := binary.Write(hw, binary.BigEndian, &header); err != nil {
		fh.Close()
		return nil, fmt.Errorf("%w: encode header for %s: %v", core.ErrIO, path, err)
	}
	if _, err := fh.Write(headerBuf); err != nil {
		fh.Close()
		return nil, fmt.Errorf("%w: write header to %s: %v", core.ErrIO, path, err)
	}

	headerSize := int64(len(headerBuf))
	bc := newBufferedChannel(fh, headerSize, writeBufBytes, preallocChunkBytes)
	return &journalFile{
		fh:            fh,
		path:          path,
		logID:         logID,
		formatVersion: core.CurrentFormatVersion,
		headerSize:    headerSize,
		bc:            bc,
	}, nil
}

// sliceWriter is a minimal io.Writer over a *[]byte, used to size-encode
// the fixed header without allocating a bytes.Buffer for thirteen bytes.
type sliceWriter struct{ buf *[]byte }

func (s *sliceWriter) Write(p []byte) (int, error) {
	*s.buf = append(*s.buf, p...)
	return len(p), nil
}

// writeRecord frames payload as [len:i32 BE][payload] and appends it,
// preallocating file space first if the write would cross the watermark.
func (jf *journalFile) writeRecord(payload []byte) error {
	n := int64(4 + len(payload))
	if err := jf.bc.preAllocIfNeeded(n); err != nil {
		return fmt.Errorf("%w: preallocate %s: %v", core.ErrIO, jf.path, err)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := jf.bc.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("%w: write record length to %s: %v", core.ErrIO, jf.path, err)
	}
	if _, err := jf.bc.Write(payload); err != nil {
		return fmt.Errorf("%w: write record payload to %s: %v", core.ErrIO, jf.path, err)
	}
	return nil
}

// computePadLen returns the payload length a padding record must carry to
// bring pos to the next SectorSize boundary, and whether padding is needed
// at all (pos already aligned needs none). The padding record's own
// 8-byte header counts against the gap; if the remaining gap after that
// header would be negative, a further full sector is added.
func computePadLen(pos int64) (int32, bool) {
	rem := pos % core.SectorSize
	if rem == 0 {
		return 0, false
	}
	gap := core.SectorSize - rem
	padLen := gap - 8
	if padLen < 0 {
		padLen += core.SectorSize
	}
	return int32(padLen), true
}

// emitPadding writes a padding record, if one is needed, to align the
// current write position to a sector boundary ahead of a flush.
func (jf *journalFile) emitPadding() error {
	padLen, needed := computePadLen(jf.bc.Position())
	if !needed {
		return nil
	}
	if err := jf.bc.preAllocIfNeeded(int64(8 + padLen)); err != nil {
		return fmt.Errorf("%w: preallocate %s: %v", core.ErrIO, jf.path, err)
	}
	var hdr [8]byte
	paddingMask := core.PaddingMask
	binary.BigEndian.PutUint32(hdr[0:4], uint32(paddingMask))
	binary.BigEndian.PutUint32(hdr[4:8], uint32(padLen))
	if _, err := jf.bc.Write(hdr[:]); err != nil {
		return fmt.Errorf("%w: write padding header to %s: %v", core.ErrIO, jf.path, err)
	}
	if padLen > 0 {
		zeros := make([]byte, padLen)
		if _, err := jf.bc.Write(zeros); err != nil {
			return fmt.Errorf("%w: write padding body to %s: %v", core.ErrIO, jf.path, err)
		}
	}
	return nil
}

// flush drains the buffered channel to the page cache without fsyncing.
func (jf *journalFile) flush() error {
	if err := jf.bc.Flush(); err != nil {
		return fmt.Errorf("%w: flush %s: %v", core.ErrIO, jf.path, err)
	}
	return nil
}

// forceWrite issues fdatasync (meta=false) or a full fsync (meta=true).
func (jf *journalFile) forceWrite(meta bool) error {
	var err error
	if meta {
		err = jf.fh.Sync()
	} else {
		err = sys.Fdatasync(jf.fh)
	}
	if err != nil {
		return fmt.Errorf("%w: force write %s: %v", core.ErrIO, jf.path, err)
	}
	return nil
}

// syncRange issues a ranged sync, falling back to a full Sync on platforms
// without one.
func (jf *journalFile) syncRange(offset, length int64) error {
	err := sys.SyncRange(jf.fh, offset, length)
	if err == nil {
		return nil
	}
	if errors.Is(err, sys.ErrSyncRangeNotSupported) {
		if err := jf.fh.Sync(); err != nil {
			return fmt.Errorf("%w: fallback sync %s: %v", core.ErrIO, jf.path, err)
		}
		return nil
	}
	return fmt.Errorf("%w: sync range %s: %v", core.ErrIO, jf.path, err)
}

// dontNeed hints the kernel to evict the given range from the page cache.
// Failure is not propagated as fatal: it's an optional cache hint.
func (jf *journalFile) dontNeed(offset, length int64) {
	if err := sys.DontNeed(jf.fh, offset, length); err != nil && !errors.Is(err, sys.ErrFadviseNotSupported) {
		_ = err // best-effort hint; the error is discarded
	}
}

// size returns the file's current on-disk size.
func (jf *journalFile) size() (int64, error) {
	st, err := jf.fh.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: stat %s: %v", core.ErrIO, jf.path, err)
	}
	return st.Size(), nil
}

// close is idempotent.
func (jf *journalFile) close() error {
	if jf.closed {
		return nil
	}
	jf.closed = true
	if err := jf.fh.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", core.ErrIO, jf.path, err)
	}
	return nil
}
