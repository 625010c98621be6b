package core

import (
	"fmt"
	"strconv"
	"strings"
)

// This file centralizes constants related to the journal's on-disk format:
// magic numbers, file naming, and record framing.

// JournalMagicNumber identifies a journal file's fixed header.
const JournalMagicNumber uint32 = 0xBAADF00D

// JournalFileSuffix is the suffix for journal files, named <log_id_hex>.txn.
const JournalFileSuffix = ".txn"

// LastMarkFileName is the name of the last-log-mark file written into every
// writable ledger directory.
const LastMarkFileName = "lastMark"

// --- Protocol & Format Versions ---
const (
	// JournalFormatV1 is the oldest replayable format: no padding records,
	// a negative length on read is always corrupt.
	JournalFormatV1 uint8 = 1
	// JournalFormatV5 introduces padding records that align flush
	// boundaries to SectorSize, enabling range-sync.
	JournalFormatV5 uint8 = 5
	// CurrentFormatVersion is stamped into every newly created journal file.
	CurrentFormatVersion = JournalFormatV5
)

// PaddingMask is the sentinel record length that introduces a padding
// record: [PaddingMask: i32][pad_len: i32][pad_len bytes of zero].
const PaddingMask int32 = -0x100

// SectorSize is the alignment boundary padding records round the file
// position up to.
const SectorSize = 512

// LogMarkSize is the on-disk size, in bytes, of a serialized LogMark.
const LogMarkSize = 16

// FormatJournalFileName renders a journal log id as its hex file name.
func FormatJournalFileName(logID uint64) string {
	return fmt.Sprintf("%x%s", logID, JournalFileSuffix)
}

// ParseJournalFileName extracts the log id from a journal file name. It
// returns false if name does not look like a journal file.
func ParseJournalFileName(name string) (uint64, bool) {
	if !strings.HasSuffix(name, JournalFileSuffix) {
		return 0, false
	}
	idStr := strings.TrimSuffix(name, JournalFileSuffix)
	id, err := strconv.ParseUint(idStr, 16, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
