package journal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/INLOpen/nexusbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournalForCheckpoint(t *testing.T, maxBackup int) *Journal {
	t.Helper()
	journalDir := t.TempDir()
	ledgerDir := t.TempDir()
	return &Journal{
		opts: Options{
			JournalDir:        journalDir,
			LedgerDirs:        []string{ledgerDir},
			MaxBackupJournals: maxBackup,
		},
		logger:   discardLogger(),
		lastMark: &lastLogMark{},
	}
}

func touchJournalFile(t *testing.T, dir string, logID uint64) {
	t.Helper()
	jf, err := createJournalFile(dir, logID, 4096, 0)
	require.NoError(t, err)
	require.NoError(t, jf.close())
}

func TestCheckpoint_CompletedPersistsMark(t *testing.T) {
	j := newTestJournalForCheckpoint(t, 5)
	j.lastMark.set(core.LogMark{LogID: 3, Offset: 512})

	ckpt := j.RequestCheckpoint()
	assert.Equal(t, core.LogMark{LogID: 3, Offset: 512}, ckpt.Mark())

	require.NoError(t, ckpt.Completed(false))

	got := readLastLogMark(j.opts.LedgerDirs)
	assert.Equal(t, core.LogMark{LogID: 3, Offset: 512}, got)
}

func TestCheckpoint_CompletedTrueGarbageCollectsOldFiles(t *testing.T) {
	// With max_backup_journals=2, five rolled files plus the mark at
	// the sixth, expect the oldest three deleted.
	j := newTestJournalForCheckpoint(t, 2)
	for id := uint64(1); id <= 5; id++ {
		touchJournalFile(t, j.opts.JournalDir, id)
	}
	j.lastMark.set(core.LogMark{LogID: 6, Offset: 0})

	ckpt := j.RequestCheckpoint()
	require.NoError(t, ckpt.Completed(true))

	remaining, err := listJournalFiles(j.opts.JournalDir)
	require.NoError(t, err)
	assert.Equal(t, []uint64{4, 5}, remaining)
}

func TestCheckpoint_CompletedFalseDoesNotGC(t *testing.T) {
	j := newTestJournalForCheckpoint(t, 0)
	touchJournalFile(t, j.opts.JournalDir, 1)
	j.lastMark.set(core.LogMark{LogID: 2, Offset: 0})

	ckpt := j.RequestCheckpoint()
	require.NoError(t, ckpt.Completed(false))

	remaining, err := listJournalFiles(j.opts.JournalDir)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, remaining)
}

func TestGarbageCollect_MissingFileIsToleratedNotRaised(t *testing.T) {
	j := newTestJournalForCheckpoint(t, 0)
	touchJournalFile(t, j.opts.JournalDir, 1)
	touchJournalFile(t, j.opts.JournalDir, 2)
	// File 1 is removed before garbageCollect runs, so it is never listed:
	// garbageCollect must not error out and reports only the one it
	// actually removed.
	require.NoError(t, os.Remove(filepath.Join(j.opts.JournalDir, core.FormatJournalFileName(1))))

	deleted, err := j.garbageCollect(core.LogMark{LogID: 3, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, deleted)
}
