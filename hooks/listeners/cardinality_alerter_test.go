package listeners

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/INLOpen/nexusbase/core"
	"github.com/INLOpen/nexusbase/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerCardinalityAlerterListener_OnEvent(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	listener := NewLedgerCardinalityAlerterListener(logger, 2)
	require.NotNil(t, listener)

	post := func(ledgerID uint64) error {
		payload := hooks.PostAppendPayload{LedgerID: ledgerID, EntryID: 0, Mark: core.LogMark{}}
		return listener.OnEvent(context.Background(), hooks.NewPostAppendEvent(payload))
	}

	require.NoError(t, post(1))
	assert.Empty(t, logBuf.String(), "should not alert below threshold")

	require.NoError(t, post(2))
	assert.Empty(t, logBuf.String(), "should not alert at threshold")

	require.NoError(t, post(3))
	assert.Contains(t, logBuf.String(), "distinct ledger count exceeded threshold")

	logBuf.Reset()
	require.NoError(t, post(4))
	assert.Empty(t, logBuf.String(), "should only alert once")
}

func TestLedgerCardinalityAlerterListener_IgnoresOtherEvents(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))
	listener := NewLedgerCardinalityAlerterListener(logger, 0)

	event := hooks.NewPostJournalRotateEvent(hooks.PostJournalRotatePayload{})
	require.NoError(t, listener.OnEvent(context.Background(), event))
	assert.Empty(t, logBuf.String())
}
