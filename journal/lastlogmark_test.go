package journal

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/INLOpen/nexusbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRollLogAndReadLastLogMark_RoundTrip(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	mark := core.LogMark{LogID: 5, Offset: 1024}
	require.NoError(t, rollLog([]string{dirA, dirB}, mark, discardLogger()))

	got := readLastLogMark([]string{dirA, dirB})
	assert.Equal(t, mark, got)
}

func TestReadLastLogMark_PicksMaximumAcrossDirs(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	require.NoError(t, writeMarkFile(filepath.Join(dirA, core.LastMarkFileName), core.LogMark{LogID: 10, Offset: 100}.MarshalBinary()))
	require.NoError(t, writeMarkFile(filepath.Join(dirB, core.LastMarkFileName), core.LogMark{LogID: 12, Offset: 50}.MarshalBinary()))

	got := readLastLogMark([]string{dirA, dirB})
	assert.Equal(t, core.LogMark{LogID: 12, Offset: 50}, got)
}

func TestReadLastLogMark_AbsentFilesYieldZeroMark(t *testing.T) {
	dir := t.TempDir()
	got := readLastLogMark([]string{dir})
	assert.True(t, got.IsZero())
}

func TestRollLog_AllDirectoriesFailedReturnsError(t *testing.T) {
	err := rollLog([]string{"/nonexistent/journal/dir/path"}, core.LogMark{LogID: 1, Offset: 1}, discardLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoWritableLedgerDir)
}

func TestLastLogMark_SnapshotIsImmutable(t *testing.T) {
	m := &lastLogMark{}
	m.set(core.LogMark{LogID: 1, Offset: 1})
	snap := m.Snapshot()
	m.set(core.LogMark{LogID: 2, Offset: 2})
	assert.Equal(t, core.LogMark{LogID: 1, Offset: 1}, snap)
	assert.Equal(t, core.LogMark{LogID: 2, Offset: 2}, m.Snapshot())
}
