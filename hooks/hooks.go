package hooks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/INLOpen/nexusbase/core"
)

// EventType defines the type of a hook event.
type EventType string

// --- Event Type Constants ---
//
// The journal's pipeline stages fire these at well-defined points so
// external listeners (metrics, alerting, audit) can observe durability
// events without being wired into the write path itself.
const (
	// EventPreAppend fires synchronously inside Append, before the record
	// is enqueued onto the write queue. Returning an error from a listener
	// cancels the append.
	EventPreAppend EventType = "PreAppend"
	// EventPostAppend fires once a record's callback has been dispatched,
	// carrying its final outcome.
	EventPostAppend EventType = "PostAppend"

	// EventPostJournalRotate fires each time the writer stage opens a new
	// journal file, including the first one (OldLogID is then 0). The
	// rolled-away file is closed later by the force-write stage.
	EventPostJournalRotate EventType = "PostJournalRotate"

	// EventPostForceWrite fires after the force-write stage has resolved a
	// force-write request, whether or not it actually issued an fsync
	// (adaptive grouping may have elided it).
	EventPostForceWrite EventType = "PostForceWrite"

	// EventPostCheckpoint fires after Checkpoint.Completed persists (or
	// fails to persist) the last log mark.
	EventPostCheckpoint EventType = "PostCheckpoint"
	// EventPostGC fires after a compacting checkpoint deletes backup
	// journal files.
	EventPostGC EventType = "PostGC"

	// EventPostReplay fires once replay has finished walking every
	// recovered journal file.
	EventPostReplay EventType = "PostReplay"

	// EventPreShutdown / EventPostShutdown bracket journal shutdown.
	EventPreShutdown  EventType = "PreShutdown"
	EventPostShutdown EventType = "PostShutdown"
)

// --- HookManager Interface and Implementation ---

// HookManager defines the interface for managing and triggering hooks.
type HookManager interface {
	// Register adds a listener for a specific event type.
	Register(eventType EventType, listener HookListener)
	// Trigger fires all registered listeners for a given event.
	// It handles synchronous vs. asynchronous execution based on the event type and listener preference.
	Trigger(ctx context.Context, event HookEvent) error
	// Stop waits for all asynchronous listeners to complete. Useful for graceful shutdown.
	Stop()
}

// HookEvent is the interface that all event objects must implement.
type HookEvent interface {
	// Type returns the type of the event.
	Type() EventType
	// Payload returns the data associated with the event.
	Payload() interface{}
}

// BaseEvent provides a base implementation for HookEvent.
type BaseEvent struct {
	eventType EventType
	payload   interface{}
}

func (e *BaseEvent) Type() EventType     { return e.eventType }
func (e *BaseEvent) Payload() interface{} { return e.payload }

// AppendPayload contains the data for a PreAppend event. LedgerID and
// EntryID are already parsed out of the record's 16-byte header.
type AppendPayload struct {
	LedgerID   uint64
	EntryID    uint64
	PayloadLen int
}

// NewPreAppendEvent creates a new event for before a record is enqueued.
func NewPreAppendEvent(payload AppendPayload) HookEvent {
	return &BaseEvent{eventType: EventPreAppend, payload: payload}
}

// PostAppendPayload contains the data for a PostAppend event, fired after
// the record's callback has been dispatched.
type PostAppendPayload struct {
	LedgerID uint64
	EntryID  uint64
	Mark     core.LogMark
	Err      error
}

// NewPostAppendEvent creates a new event for after a record's callback has
// fired.
func NewPostAppendEvent(payload PostAppendPayload) HookEvent {
	return &BaseEvent{eventType: EventPostAppend, payload: payload}
}

// PostJournalRotatePayload contains information about a journal file roll.
type PostJournalRotatePayload struct {
	OldLogID uint64
	NewLogID uint64
	NewPath  string
}

// NewPostJournalRotateEvent creates an event for after the writer stage
// opens a new journal file.
func NewPostJournalRotateEvent(payload PostJournalRotatePayload) HookEvent {
	return &BaseEvent{eventType: EventPostJournalRotate, payload: payload}
}

// PostForceWritePayload contains information about a resolved force-write
// request. Synced is false when adaptive grouping elided this request's
// own fsync because a preceding marker request already covered its bytes.
type PostForceWritePayload struct {
	LogID         uint64
	StartFlushPos int64
	EndFlushPos   int64
	Synced        bool
	WaiterCount   int
}

// NewPostForceWriteEvent creates an event for after a force-write request
// is resolved.
func NewPostForceWriteEvent(payload PostForceWritePayload) HookEvent {
	return &BaseEvent{eventType: EventPostForceWrite, payload: payload}
}

// PostCheckpointPayload contains information about a completed checkpoint.
type PostCheckpointPayload struct {
	Mark    core.LogMark
	Compact bool
}

// NewPostCheckpointEvent creates an event for after a checkpoint's mark has
// been persisted.
func NewPostCheckpointEvent(payload PostCheckpointPayload) HookEvent {
	return &BaseEvent{eventType: EventPostCheckpoint, payload: payload}
}

// PostGCPayload contains information about a checkpoint's journal file
// garbage collection.
type PostGCPayload struct {
	UpToLogID uint64
	Deleted   []uint64
}

// NewPostGCEvent creates an event for after old journal files are deleted.
func NewPostGCEvent(payload PostGCPayload) HookEvent {
	return &BaseEvent{eventType: EventPostGC, payload: payload}
}

// PostReplayPayload contains information about a completed replay pass.
type PostReplayPayload struct {
	RecordsReplayed int
	FinalMark       core.LogMark
	Duration        time.Duration
}

// NewPostReplayEvent creates an event for after replay finishes.
func NewPostReplayEvent(payload PostReplayPayload) HookEvent {
	return &BaseEvent{eventType: EventPostReplay, payload: payload}
}

// ShutdownPayload is used for the pre/post shutdown events.
type ShutdownPayload struct{}

// NewPreShutdownEvent creates an event for before the journal begins
// shutting down.
func NewPreShutdownEvent() HookEvent {
	return &BaseEvent{eventType: EventPreShutdown, payload: ShutdownPayload{}}
}

// NewPostShutdownEvent creates an event for after the journal has finished
// shutting down.
func NewPostShutdownEvent() HookEvent {
	return &BaseEvent{eventType: EventPostShutdown, payload: ShutdownPayload{}}
}

// --- HookListener Interface ---

// HookListener defines the interface for components that want to listen to events.
type HookListener interface {
	// OnEvent is called by the HookManager when a registered event is triggered.
	// Returning an error from a "Pre" hook (e.g., PreAppend) can cancel the operation.
	// Errors from "Post" hooks are typically logged without affecting the main operation.
	OnEvent(ctx context.Context, event HookEvent) error

	// Priority returns the listener's priority. Lower numbers are executed first.
	Priority() int

	// IsAsync indicates if the listener should be called asynchronously for Post-events.
	IsAsync() bool
}

// listenerWithPriority wraps a listener with its priority for sorted insertion.
type listenerWithPriority struct {
	listener HookListener
	priority int
}

// DefaultHookManager is a concrete implementation of HookManager.
type DefaultHookManager struct {
	// The map stores slices of listeners, kept sorted by priority.
	listeners map[EventType][]*listenerWithPriority
	mu        sync.RWMutex
	wg        sync.WaitGroup // For tracking async listeners
	logger    *slog.Logger
}

// NewHookManager creates a new DefaultHookManager.
func NewHookManager(logger *slog.Logger) HookManager {
	if logger == nil {
		// Default to a discard logger to prevent nil panics if no logger is provided.
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DefaultHookManager{
		listeners: make(map[EventType][]*listenerWithPriority),
		logger:    logger,
	}
}

// Register adds a listener for a specific event type, maintaining priority order.
func (m *DefaultHookManager) Register(eventType EventType, listener HookListener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := &listenerWithPriority{
		listener: listener,
		priority: listener.Priority(),
	}

	// Get the existing slice of listeners for this event type.
	l := m.listeners[eventType]

	// Find the correct insertion index to maintain sorted order.
	// sort.Search finds the first index i where l[i].priority >= item.priority.
	idx := sort.Search(len(l), func(i int) bool {
		return l[i].priority >= item.priority
	})

	// Optimized insertion to reduce re-allocations.
	// Append a zero value to the slice, which might grow the slice once.
	l = append(l, nil)
	// Shift elements to make space for the new item.
	copy(l[idx+1:], l[idx:])
	// Insert the new item at the correct position.
	l[idx] = item // Insert the new item

	m.listeners[eventType] = l
}

// Trigger fires all registered listeners for a given event in priority order.
func (m *DefaultHookManager) Trigger(ctx context.Context, event HookEvent) error {
	if ctx == nil {
		ctx = context.Background()
	}
	m.mu.RLock()
	listeners, ok := m.listeners[event.Type()]
	m.mu.RUnlock()

	if !ok || len(listeners) == 0 {
		return nil
	}

	isPreHook := strings.HasPrefix(string(event.Type()), "Pre")

	for _, item := range listeners {
		isListenerAsync := item.listener.IsAsync()

		// Pre-hooks MUST be synchronous to allow for cancellation.
		// Post-hooks can be sync or async based on the listener's preference.
		if isPreHook || !isListenerAsync {
			// --- Synchronous Execution ---
			if isPreHook && isListenerAsync {
				m.logger.Warn("Listener for Pre-hook requested async execution, but Pre-hooks are always synchronous.", "event", event.Type(), "priority", item.priority)
			}

			if err := item.listener.OnEvent(ctx, event); err != nil {
				if isPreHook {
					// For Pre-hooks, the error is critical and cancels the operation.
					return fmt.Errorf("pre-hook for event %s (priority %d) failed: %w", event.Type(), item.priority, err)
				}
				// For synchronous Post-hooks, we just log the error and continue.
				m.logger.Error("Error from synchronous post-hook listener", "event", event.Type(), "priority", item.priority, "error", err)
			}
		} else {
			// --- Asynchronous Execution --- (Only for Post-hooks that return IsAsync() == true)
			m.wg.Add(1)
			// Pass item as an argument to the closure to capture its current value.
			go func(currentItem *listenerWithPriority) {
				defer m.wg.Done()
				if err := currentItem.listener.OnEvent(ctx, event); err != nil {
					m.logger.Error("Error from asynchronous post-hook listener", "event", event.Type(), "priority", currentItem.priority, "error", err)
				}
			}(item)
		}
	}
	return nil
}

// Stop waits for all asynchronous listeners to complete.
func (m *DefaultHookManager) Stop() {
	m.wg.Wait()
}
