package protocol

import (
	"time"

	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/crypto"
)

// Read-only query surface. Queries take the ledger mutex so they observe
// whole operations, never a partial state change.

// Owner returns the current administrative key.
func (l *Ledger) Owner() crypto.PublicKey {
	l.mu.Lock()
	defer l.mu.Unlock()
	return crypto.NewPublicKeyFromBytes(l.owner)
}

// IsReviewer reports whether the key holds submit capability.
func (l *Ledger) IsReviewer(key crypto.PublicKey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reviewers[key.String()]
}

// Paused reports the pause switch.
func (l *Ledger) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

// Cooldown returns the per-actor throttle interval.
func (l *Ledger) Cooldown() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cooldown
}

// CurrentBatchID returns the id OpenBatch targets next, and whether that
// batch is currently open. The id advances when a batch closes.
func (l *Ledger) CurrentBatchID() (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current != nil && l.current.Open {
		return l.current.ID, true
	}
	return l.nextBatchID, false
}

// BatchInfo returns a copy of the batch record, if the id is known.
func (l *Ledger) BatchInfo(batchID uint64) (Batch, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch, exists := l.batches[batchID]
	if !exists {
		return Batch{}, false
	}
	return *batch, true
}

// HasSubmitted reports whether the reviewer has a submission in the batch.
func (l *Ledger) HasSubmitted(batchID uint64, reviewer crypto.PublicKey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, exists := l.submissions[batchID][reviewer.String()]
	return exists
}

// RequestStatus returns a copy of the decryption context for the id. Once
// the context is processed the copy carries the published cleartext.
func (l *Ledger) RequestStatus(requestID RequestID) (DecryptionContext, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	dctx, exists := l.contexts[requestID]
	if !exists {
		return DecryptionContext{}, false
	}
	return *dctx, true
}
