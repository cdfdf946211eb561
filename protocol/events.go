package protocol

import "time"

// EventType identifies a ledger state transition in the audit log.
type EventType string

const (
	EventOwnershipTransferred EventType = "ownership_transferred"
	EventReviewerAdded        EventType = "reviewer_added"
	EventReviewerRemoved      EventType = "reviewer_removed"
	EventPaused               EventType = "paused"
	EventUnpaused             EventType = "unpaused"
	EventCooldownChanged      EventType = "cooldown_changed"
	EventBatchOpened          EventType = "batch_opened"
	EventBatchClosed          EventType = "batch_closed"
	EventSubmitted            EventType = "submitted"
	EventDecryptionRequested  EventType = "decryption_requested"
	EventDecryptionCompleted  EventType = "decryption_completed"
	EventDecryptionAbandoned  EventType = "decryption_abandoned"
)

// Event is one entry of the append-only audit trail. Fields that do not
// apply to a given event type are zero.
type Event struct {
	Sequence  uint64    `json:"sequence"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Actor is the hex public key of the caller that triggered the
	// transition, or empty for oracle-triggered events.
	Actor string `json:"actor,omitempty"`

	BatchID   uint64    `json:"batch_id,omitempty"`
	RequestID RequestID `json:"request_id,omitempty"`

	// Cleartext carries the published sum, set only on
	// EventDecryptionCompleted.
	Cleartext *uint64 `json:"cleartext,omitempty"`

	// Cooldown carries the new cooldown on EventCooldownChanged.
	Cooldown time.Duration `json:"cooldown,omitempty"`
}

// appendEvent records a transition in the in-memory log and forwards it to
// the sink, if any. Must be called with the ledger mutex held. Sink failures
// do not roll back ledger state.
func (l *Ledger) appendEvent(ev Event) {
	l.eventSeq++
	ev.Sequence = l.eventSeq
	ev.Timestamp = l.clock()
	l.events = append(l.events, ev)

	if l.sink != nil {
		if err := l.sink.Append(&ev); err != nil && l.log != nil {
			l.log.Error("event sink append failed", "type", ev.Type, "seq", ev.Sequence, "err", err)
		}
	}
}

// Events returns a snapshot of the audit log from the given sequence number
// (exclusive) onward.
func (l *Ledger) Events(afterSequence uint64) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, 0, len(l.events))
	for _, ev := range l.events {
		if ev.Sequence > afterSequence {
			out = append(out, ev)
		}
	}
	return out
}
