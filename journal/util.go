package journal

import (
	"fmt"
	"os"
	"sort"

	"github.com/INLOpen/nexusbase/core"
)

// listJournalFiles returns the log ids of every <id_hex>.txn file in dir,
// in ascending order.
func listJournalFiles(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := core.ParseJournalFileName(e.Name()); ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// nextLogID picks the id for a newly rolled journal file: strictly greater
// than every existing id and than the current wall clock in milliseconds,
// so ids stay monotonic even across a clock jump.
func nextLogID(existingIDs []uint64, wallClockMillis int64) uint64 {
	max := uint64(wallClockMillis)
	for _, id := range existingIDs {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// errf is a small helper for wrapping a sentinel error with a formatted
// message via fmt.Errorf("%w: ...", ...).
func errf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{sentinel}, args...)...)
}
