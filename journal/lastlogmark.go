package journal

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/INLOpen/nexusbase/core"
	"github.com/INLOpen/nexusbase/sys"
)

// lastLogMark holds the highest durable LogMark, mutated only by the
// force-write stage after a successful fsync. Reads take a lock rather
// than relying on atomics because LogMark is two words wide; the
// checkpointer only ever needs an immutable snapshot.
type lastLogMark struct {
	mu   sync.RWMutex
	mark core.LogMark
}

func (m *lastLogMark) set(mark core.LogMark) {
	m.mu.Lock()
	m.mark = mark
	m.mu.Unlock()
}

// Snapshot returns an immutable copy of the current mark, the candidate
// for the next checkpoint.
func (m *lastLogMark) Snapshot() core.LogMark {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mark
}

// rollLog writes mark to lastMark in every ledger directory, fsyncing
// each. Per-directory failures are logged, not fatal; if every directory
// fails, core.ErrNoWritableLedgerDir is returned so the caller can act on
// it.
func rollLog(ledgerDirs []string, mark core.LogMark, logger *slog.Logger) error {
	data := mark.MarshalBinary()
	var wroteAny bool
	for _, dir := range ledgerDirs {
		path := filepath.Join(dir, core.LastMarkFileName)
		if err := writeMarkFile(path, data); err != nil {
			logger.Warn("failed to persist last log mark", "dir", dir, "error", err)
			continue
		}
		wroteAny = true
	}
	if !wroteAny {
		return errf(core.ErrNoWritableLedgerDir, "no ledger directory accepted the last log mark")
	}
	return nil
}

func writeMarkFile(path string, data []byte) error {
	fh, err := sys.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer fh.Close()
	if _, err := fh.Write(data); err != nil {
		return err
	}
	return fh.Sync()
}

// readLastLogMark reads lastMark from every ledger directory and returns
// the maximum under LogMark's total order. Absent, short or corrupt files
// are treated as the zero mark.
func readLastLogMark(ledgerDirs []string) core.LogMark {
	var best core.LogMark
	for _, dir := range ledgerDirs {
		path := filepath.Join(dir, core.LastMarkFileName)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		mark, ok := core.UnmarshalLogMark(data)
		if !ok {
			continue
		}
		if mark.Compare(best) > 0 {
			best = mark
		}
	}
	return best
}
