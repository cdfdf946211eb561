package protocol

import (
	"context"
	"fmt"

	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/crypto"
)

// RequestDecryption computes the aggregate of a closed, non-empty batch,
// commits to a fingerprint of the exact ciphertext set that was summed, and
// asks the oracle to decrypt. It returns the oracle-issued request id
// immediately; the cleartext arrives later through OnDecrypted. Multiple
// requests may be outstanding at once, including several for the same batch.
func (l *Ledger) RequestDecryption(ctx context.Context, caller crypto.PublicKey, batchID uint64) (RequestID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRequester(caller); err != nil {
		return 0, err
	}
	if err := l.requireNotPaused(); err != nil {
		return 0, err
	}
	if err := l.requireCooldown(l.lastRequest, caller); err != nil {
		return 0, err
	}

	aggregate, err := l.aggregateLocked(batchID)
	if err != nil {
		return 0, err
	}

	fingerprint := l.fingerprintLocked(batchID)

	requestID, err := l.oracle.RequestDecryption(ctx, []crypto.Ciphertext{aggregate})
	if err != nil {
		return 0, fmt.Errorf("oracle request failed: %w", err)
	}

	l.contexts[requestID] = &DecryptionContext{
		RequestID:   requestID,
		BatchID:     batchID,
		Fingerprint: fingerprint,
		RequestedAt: l.clock(),
	}
	l.lastRequest[caller.String()] = l.clock()

	l.appendEvent(Event{Type: EventDecryptionRequested, Actor: caller.String(), BatchID: batchID, RequestID: requestID})
	return requestID, nil
}

// OnDecrypted finalizes a decryption request. It is invoked by the oracle at
// an arbitrary later point, possibly after unrelated submissions and batches
// have been processed.
//
// The request is finalized only if the fingerprint re-derived from current
// state matches the one committed at request time and the proof verifies.
// Either failure leaves the request unprocessed, so the oracle may retry
// with the same request id; a replay after successful finalization always
// fails with ErrReplayAttempt. This is the sole path by which a cleartext
// becomes part of the public record.
func (l *Ledger) OnDecrypted(requestID RequestID, cleartext uint64, proof []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireNotPaused(); err != nil {
		return err
	}

	dctx, exists := l.contexts[requestID]
	if !exists {
		return ErrUnknownRequest
	}
	if dctx.Processed {
		return ErrReplayAttempt
	}

	if l.fingerprintLocked(dctx.BatchID) != dctx.Fingerprint {
		return ErrStateMismatch
	}

	if !l.oracle.VerifyProof(requestID, cleartext, proof) {
		return ErrDecryptionFailed
	}

	dctx.Processed = true
	dctx.Cleartext = cleartext

	published := cleartext
	l.appendEvent(Event{Type: EventDecryptionCompleted, BatchID: dctx.BatchID, RequestID: requestID, Cleartext: &published})
	return nil
}

// AbandonRequest discards an unprocessed decryption context. It is the
// owner's escape hatch for requests whose fingerprint can never match again;
// subsequent callbacks for the id fail with ErrUnknownRequest, and a fresh
// request for the same batch may be issued at any time.
func (l *Ledger) AbandonRequest(caller crypto.PublicKey, requestID RequestID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}

	dctx, exists := l.contexts[requestID]
	if !exists {
		return ErrUnknownRequest
	}
	if dctx.Processed {
		return ErrReplayAttempt
	}

	delete(l.contexts, requestID)
	l.appendEvent(Event{Type: EventDecryptionAbandoned, Actor: caller.String(), BatchID: dctx.BatchID, RequestID: requestID})
	return nil
}
