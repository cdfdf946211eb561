package protocol

import (
	"sort"

	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/crypto"
)

// Submit deposits an encrypted score into the given batch. The batch must be
// open, the caller must hold submit capability and the submission-class
// cooldown, and at most one submission per reviewer per batch is accepted.
// The stored ciphertext is never overwritten.
func (l *Ledger) Submit(caller crypto.PublicKey, batchID uint64, ciphertext crypto.Ciphertext) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireReviewer(caller); err != nil {
		return err
	}
	if err := l.requireNotPaused(); err != nil {
		return err
	}
	if err := l.requireCooldown(l.lastSubmission, caller); err != nil {
		return err
	}

	batch, exists := l.batches[batchID]
	if !exists || !batch.Open {
		return ErrBatchNotOpen
	}

	key := caller.String()
	if _, exists := l.submissions[batchID][key]; exists {
		return ErrDuplicateSubmission
	}

	l.submissions[batchID][key] = crypto.NewCiphertextFromBytes(ciphertext)
	batch.SubmissionCount++
	l.lastSubmission[key] = l.clock()

	l.appendEvent(Event{Type: EventSubmitted, Actor: key, BatchID: batchID})
	return nil
}

// Aggregate folds all submissions of a closed batch into a single ciphertext
// of their homomorphic sum. Iteration follows the canonical ascending
// reviewer-key order, so aggregating the same inputs twice yields
// bit-identical output.
func (l *Ledger) Aggregate(batchID uint64) (crypto.Ciphertext, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.aggregateLocked(batchID)
}

func (l *Ledger) aggregateLocked(batchID uint64) (crypto.Ciphertext, error) {
	batch, exists := l.batches[batchID]
	if !exists || !batch.Closed {
		return nil, ErrBatchNotClosed
	}

	subs := l.submissions[batchID]
	if len(subs) == 0 {
		return nil, ErrEmptyBatch
	}

	var aggregate crypto.Ciphertext
	for _, key := range sortedSubmitters(subs) {
		if aggregate == nil {
			aggregate = subs[key]
			continue
		}
		sum, err := l.engine.Add(aggregate, subs[key])
		if err != nil {
			return nil, err
		}
		aggregate = sum
	}
	return aggregate, nil
}

// sortedSubmitters returns the submitter keys of a batch in ascending order,
// the canonical iteration order for aggregation and fingerprinting.
func sortedSubmitters(subs map[string]crypto.Ciphertext) []string {
	keys := make([]string, 0, len(subs))
	for key := range subs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
