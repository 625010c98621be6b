package journal

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/INLOpen/nexusbase/core"
	"github.com/INLOpen/nexusbase/hooks"
	"github.com/INLOpen/nexusbase/sys"
)

// Scanner receives records delivered by ScanJournal/Replay.
type Scanner interface {
	Process(formatVersion uint8, offset int64, payload []byte) error
}

// ScannerFunc adapts a function to the Scanner interface.
type ScannerFunc func(formatVersion uint8, offset int64, payload []byte) error

func (f ScannerFunc) Process(formatVersion uint8, offset int64, payload []byte) error {
	return f(formatVersion, offset, payload)
}

// readFileHeader reads and validates the fixed header at the start of a
// journal file, returning its size in bytes.
func readFileHeader(r io.Reader, path string) (core.FileHeader, int64, error) {
	var header core.FileHeader
	size := header.Size()
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return core.FileHeader{}, 0, fmt.Errorf("%w: read header of %s: %v", core.ErrIO, path, err)
	}
	if err := binary.Read(bytes.NewReader(buf), binary.BigEndian, &header); err != nil {
		return core.FileHeader{}, 0, fmt.Errorf("%w: decode header of %s: %v", core.ErrIO, path, err)
	}
	if header.Magic != core.JournalMagicNumber {
		return core.FileHeader{}, 0, fmt.Errorf("%w: bad magic in %s: got %x, want %x", core.ErrCorruptRecord, path, header.Magic, core.JournalMagicNumber)
	}
	return header, int64(size), nil
}

// scanJournalFile walks path from startOffset to EOF, delivering each
// non-padding record to scanner. onRecord, if non-nil, is called with the
// offset of every record actually delivered, so callers can track a resume
// mark.
func scanJournalFile(path string, startOffset int64, scanner Scanner, onRecord func(offset int64)) error {
	fh, err := sys.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", core.ErrIO, path, err)
	}
	defer fh.Close()

	header, headerSize, err := readFileHeader(fh, path)
	if err != nil {
		return err
	}

	pos := startOffset
	if pos < headerSize {
		pos = headerSize
	}
	if _, err := fh.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek in %s: %v", core.ErrIO, path, err)
	}

	r := bufio.NewReader(fh)
	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil // clean EOF or torn tail: normal crash signature.
			}
			return fmt.Errorf("%w: read record length in %s at %d: %v", core.ErrIO, path, pos, err)
		}
		length := int32(binary.BigEndian.Uint32(lenBuf[:]))

		if length == 0 {
			return nil // trailing preallocated zero region: logical EOF.
		}

		if length == core.PaddingMask {
			if header.Version < core.JournalFormatV5 {
				return fmt.Errorf("%w: padding record in pre-v5 file %s at %d", core.ErrCorruptRecord, path, pos)
			}
			var padLenBuf [4]byte
			if _, err := io.ReadFull(r, padLenBuf[:]); err != nil {
				return nil // torn tail mid-padding-header.
			}
			padLen := int32(binary.BigEndian.Uint32(padLenBuf[:]))
			pos += 8
			if padLen < 0 {
				return fmt.Errorf("%w: negative padding length in %s at %d", core.ErrCorruptRecord, path, pos)
			}
			if padLen == 0 {
				continue // pure padding marker, nothing more to skip.
			}
			if _, err := io.CopyN(io.Discard, r, int64(padLen)); err != nil {
				return nil // torn tail mid-padding-body.
			}
			pos += int64(padLen)
			continue
		}

		if length < 0 {
			return fmt.Errorf("%w: negative record length %d in %s at %d", core.ErrCorruptRecord, length, path, pos)
		}

		recordOffset := pos
		pos += 4
		payload := make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil // torn tail: crash mid-record, stop cleanly.
		}
		pos += int64(length)

		if err := scanner.Process(header.Version, recordOffset, payload); err != nil {
			return err
		}
		if onRecord != nil {
			onRecord(recordOffset)
		}
	}
}

// ScanJournal iterates records in the journal file named logID from
// startOffset to EOF.
func (j *Journal) ScanJournal(logID uint64, startOffset int64, scanner Scanner) error {
	path := filepath.Join(j.opts.JournalDir, core.FormatJournalFileName(logID))
	return scanJournalFile(path, startOffset, scanner, nil)
}

// Replay enumerates every journal file with log id >= the last-log-mark's
// log id, in ascending order, and scans each in turn: the first file
// starting at the mark's offset, the rest from 0. It raises
// ErrMissingRecoveryLog if the mark names a file that isn't present.
func (j *Journal) Replay(scanner Scanner) (core.LogMark, error) {
	start := time.Now()
	mark := readLastLogMark(j.opts.LedgerDirs)

	ids, err := listJournalFiles(j.opts.JournalDir)
	if err != nil {
		return mark, fmt.Errorf("%w: list journal dir %s: %v", core.ErrIO, j.opts.JournalDir, err)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	var toReplay []uint64
	for _, id := range ids {
		if id >= mark.LogID {
			toReplay = append(toReplay, id)
		}
	}

	if mark.LogID > 0 {
		found := false
		for _, id := range toReplay {
			if id == mark.LogID {
				found = true
				break
			}
		}
		if !found {
			return mark, fmt.Errorf("%w: expected journal file for log id %x in %s", core.ErrMissingRecoveryLog, mark.LogID, j.opts.JournalDir)
		}
	}

	currentMark := mark
	recordsReplayed := 0
	countingScanner := ScannerFunc(func(formatVersion uint8, offset int64, payload []byte) error {
		recordsReplayed++
		return scanner.Process(formatVersion, offset, payload)
	})

	for i, id := range toReplay {
		var startOffset int64
		if i == 0 {
			startOffset = int64(mark.Offset)
		}
		path := filepath.Join(j.opts.JournalDir, core.FormatJournalFileName(id))
		err := scanJournalFile(path, startOffset, countingScanner, func(offset int64) {
			currentMark = core.LogMark{LogID: id, Offset: uint64(offset)}
		})
		if err != nil {
			return currentMark, err
		}
	}

	if j.hookManager != nil {
		j.hookManager.Trigger(context.Background(), hooks.NewPostReplayEvent(hooks.PostReplayPayload{
			RecordsReplayed: recordsReplayed,
			FinalMark:       currentMark,
			Duration:        time.Since(start),
		}))
	}

	return currentMark, nil
}
