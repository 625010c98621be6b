package core

import "errors"

// Sentinel errors for the journal's error taxonomy. Callers should use
// errors.Is against these rather than matching on message text.
var (
	// ErrIO wraps any OS failure during write, fsync, file creation or
	// directory listing. It is fatal to the writer/force-write stage.
	ErrIO = errors.New("journal: io error")

	// ErrNoWritableLedgerDir is returned when no configured ledger directory
	// accepted a lastMark write.
	ErrNoWritableLedgerDir = errors.New("journal: no writable ledger directory")

	// ErrCorruptRecord is returned by replay when a negative length is found
	// on a pre-v5 journal, or a record's header is inconsistent with the
	// file's format version.
	ErrCorruptRecord = errors.New("journal: corrupt record")

	// ErrMissingRecoveryLog is returned by replay when the last-log-mark
	// points at a journal file id that is not present in the journal
	// directory.
	ErrMissingRecoveryLog = errors.New("journal: missing recovery log")
)
