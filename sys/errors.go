package sys

import "errors"

// ErrSyncRangeNotSupported is returned by SyncRange on platforms without a
// ranged-sync syscall. Callers should fall back to a full Sync().
var ErrSyncRangeNotSupported = errors.New("ranged sync not supported")

// ErrFadviseNotSupported is returned by DontNeed on platforms without
// posix_fadvise. Callers may ignore this; it is an optional cache hint.
var ErrFadviseNotSupported = errors.New("fadvise not supported")
