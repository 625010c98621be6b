package journal

import (
	"expvar"
	"fmt"
)

// publishExpvarInt safely publishes an expvar.Int under name, resetting it
// if a previous Journal in this process already registered it (tests open
// and close many Journals in one binary).
func publishExpvarInt(name string) *expvar.Int {
	v := expvar.Get(name)
	if v == nil {
		return expvar.NewInt(name)
	}
	if iv, ok := v.(*expvar.Int); ok {
		iv.Set(0)
		return iv
	}
	panic(fmt.Sprintf("expvar: trying to publish Int %s but variable already exists with different type %T", name, v))
}

// metrics collects the per-op and per-batch counters that describe the
// write and force-write pipelines: adaptive-grouping elisions, the reason
// each flush was triggered, and records/bytes written. Queue depths are
// not counted here; they are read through JournalQueueLength and
// ForceWriteQueueLength.
type metrics struct {
	forceWriteGroupingCount *expvar.Int // fsyncs elided by adaptive grouping
	flushMaxWaitCount       *expvar.Int // flushes triggered by the group-on-timeout latch
	flushMaxOutstandingCount *expvar.Int // flushes triggered by the byte/entry-count thresholds
	flushEmptyQueueCount    *expvar.Int // flushes triggered by flush_when_queue_empty
	recordsWritten          *expvar.Int
	bytesWritten            *expvar.Int
}

// newMetrics publishes a fresh, uniquely-named set of counters so multiple
// Journal instances in one process (as in tests) don't collide on expvar's
// process-global namespace.
func newMetrics(instanceID string) *metrics {
	prefix := "journal_" + instanceID + "_"
	return &metrics{
		forceWriteGroupingCount:  publishExpvarInt(prefix + "force_write_grouping_count"),
		flushMaxWaitCount:        publishExpvarInt(prefix + "flush_max_wait_count"),
		flushMaxOutstandingCount: publishExpvarInt(prefix + "flush_max_outstanding_count"),
		flushEmptyQueueCount:     publishExpvarInt(prefix + "flush_empty_queue_count"),
		recordsWritten:           publishExpvarInt(prefix + "records_written"),
		bytesWritten:             publishExpvarInt(prefix + "bytes_written"),
	}
}
