package protocol

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/crypto"
)

// closedBatchWithSum opens a batch, submits the given values from fresh
// reviewers and closes it.
func closedBatchWithSum(t *testing.T, b *testBench, values ...uint64) uint64 {
	t.Helper()

	batchID, err := b.ledger.OpenBatch(b.owner)
	require.NoError(t, err)
	for _, v := range values {
		b.submitValue(t, b.addReviewer(t), batchID, v)
	}
	_, err = b.ledger.CloseBatch(b.owner)
	require.NoError(t, err)
	return batchID
}

func TestDecryptionEndToEnd(t *testing.T) {
	b := newTestBench(t)
	batchID := closedBatchWithSum(t, b, 10, 20)

	requestID, err := b.ledger.RequestDecryption(context.Background(), b.owner, batchID)
	require.NoError(t, err)

	// The oracle received exactly the batch aggregate.
	require.Len(t, b.oracle.requests[requestID], 1)
	require.Equal(t, uint64(30), binary.BigEndian.Uint64(b.oracle.requests[requestID][0]))

	status, ok := b.ledger.RequestStatus(requestID)
	require.True(t, ok)
	require.False(t, status.Processed)
	require.Equal(t, batchID, status.BatchID)

	// Time passes; unrelated batches are processed in between.
	b.advance(5 * time.Minute)
	closedBatchWithSum(t, b, 7)

	require.NoError(t, b.ledger.OnDecrypted(requestID, 30, []byte("ok")))

	status, ok = b.ledger.RequestStatus(requestID)
	require.True(t, ok)
	require.True(t, status.Processed)
	require.Equal(t, uint64(30), status.Cleartext)

	var completed []Event
	for _, ev := range b.ledger.Events(0) {
		if ev.Type == EventDecryptionCompleted {
			completed = append(completed, ev)
		}
	}
	require.Len(t, completed, 1)
	require.Equal(t, requestID, completed[0].RequestID)
	require.Equal(t, batchID, completed[0].BatchID)
	require.NotNil(t, completed[0].Cleartext)
	require.Equal(t, uint64(30), *completed[0].Cleartext)
}

func TestReplayAttemptRejected(t *testing.T) {
	b := newTestBench(t)
	batchID := closedBatchWithSum(t, b, 10, 20)

	requestID, err := b.ledger.RequestDecryption(context.Background(), b.owner, batchID)
	require.NoError(t, err)
	require.NoError(t, b.ledger.OnDecrypted(requestID, 30, []byte("ok")))

	// Replaying the callback, with the same or a different cleartext,
	// always fails and publishes nothing new.
	require.ErrorIs(t, b.ledger.OnDecrypted(requestID, 30, []byte("ok")), ErrReplayAttempt)
	require.ErrorIs(t, b.ledger.OnDecrypted(requestID, 99, []byte("ok")), ErrReplayAttempt)

	var completed int
	for _, ev := range b.ledger.Events(0) {
		if ev.Type == EventDecryptionCompleted {
			completed++
		}
	}
	require.Equal(t, 1, completed)
}

func TestUnknownRequestRejected(t *testing.T) {
	b := newTestBench(t)
	require.ErrorIs(t, b.ledger.OnDecrypted(12345, 1, []byte("ok")), ErrUnknownRequest)
}

func TestIntegrityGuardDetectsDrift(t *testing.T) {
	b := newTestBench(t)
	batchID := closedBatchWithSum(t, b, 10, 20)

	requestID, err := b.ledger.RequestDecryption(context.Background(), b.owner, batchID)
	require.NoError(t, err)

	// Simulate drift in the targeted ciphertext set during the oracle
	// round-trip. Closed batches reject Submit, so reach into the store
	// directly, the way a laxer implementation could mutate it.
	intruder, _, _ := crypto.GenerateKeyPair()
	ct, _ := stubEngine{}.Encode(5)
	b.ledger.mu.Lock()
	b.ledger.submissions[batchID][intruder.String()] = ct
	b.ledger.mu.Unlock()

	err = b.ledger.OnDecrypted(requestID, 35, []byte("ok"))
	require.ErrorIs(t, err, ErrStateMismatch)

	// The request stays unprocessed so the oracle can retry once the set
	// matches again.
	status, ok := b.ledger.RequestStatus(requestID)
	require.True(t, ok)
	require.False(t, status.Processed)

	b.ledger.mu.Lock()
	delete(b.ledger.submissions[batchID], intruder.String())
	b.ledger.mu.Unlock()

	require.NoError(t, b.ledger.OnDecrypted(requestID, 30, []byte("ok")))

	for _, ev := range b.ledger.Events(0) {
		if ev.Type == EventDecryptionCompleted {
			require.Equal(t, uint64(30), *ev.Cleartext)
		}
	}
}

func TestInvalidProofRejected(t *testing.T) {
	b := newTestBench(t)
	batchID := closedBatchWithSum(t, b, 10, 20)

	requestID, err := b.ledger.RequestDecryption(context.Background(), b.owner, batchID)
	require.NoError(t, err)

	require.ErrorIs(t, b.ledger.OnDecrypted(requestID, 30, []byte("forged")), ErrDecryptionFailed)

	// Proof failure is retryable with the same request id.
	status, _ := b.ledger.RequestStatus(requestID)
	require.False(t, status.Processed)
	require.NoError(t, b.ledger.OnDecrypted(requestID, 30, []byte("ok")))
}

func TestFingerprintBindsInstance(t *testing.T) {
	// Two ledgers with identical state but different instance ids commit
	// to different fingerprints, so proofs cannot replay across instances.
	build := func(instanceID string) *testBench {
		owner, _, err := crypto.GenerateKeyPair()
		require.NoError(t, err)
		ledger, err := NewLedger(&LedgerConfig{InstanceID: instanceID, Cooldown: time.Minute}, owner, stubEngine{}, newStubOracle())
		require.NoError(t, err)
		b := &testBench{ledger: ledger, owner: owner, now: time.Unix(1_700_000_000, 0)}
		ledger.clock = func() time.Time { return b.now }
		return b
	}

	reviewer, _, _ := crypto.GenerateKeyPair()
	ct, _ := stubEngine{}.Encode(10)

	var fingerprints [][32]byte
	for _, instance := range []string{"instance-a", "instance-b"} {
		b := build(instance)
		require.NoError(t, b.ledger.AddReviewer(b.owner, reviewer))
		batchID, _ := b.ledger.OpenBatch(b.owner)
		require.NoError(t, b.ledger.Submit(reviewer, batchID, ct))
		_, err := b.ledger.CloseBatch(b.owner)
		require.NoError(t, err)
		fingerprints = append(fingerprints, b.ledger.fingerprintLocked(batchID))
	}

	require.NotEqual(t, fingerprints[0], fingerprints[1])
}

func TestConcurrentRequestsAreIndependent(t *testing.T) {
	b := newTestBench(t)
	batch1 := closedBatchWithSum(t, b, 10, 20)
	b.advance(2 * time.Minute)
	batch2 := closedBatchWithSum(t, b, 7)

	req1, err := b.ledger.RequestDecryption(context.Background(), b.owner, batch1)
	require.NoError(t, err)
	b.advance(2 * time.Minute)
	req2, err := b.ledger.RequestDecryption(context.Background(), b.owner, batch2)
	require.NoError(t, err)
	require.NotEqual(t, req1, req2)

	// Completion order is independent of request order.
	require.NoError(t, b.ledger.OnDecrypted(req2, 7, []byte("ok")))
	require.NoError(t, b.ledger.OnDecrypted(req1, 30, []byte("ok")))

	s1, _ := b.ledger.RequestStatus(req1)
	s2, _ := b.ledger.RequestStatus(req2)
	require.Equal(t, uint64(30), s1.Cleartext)
	require.Equal(t, uint64(7), s2.Cleartext)
}

func TestAbandonRequest(t *testing.T) {
	b := newTestBench(t)
	batchID := closedBatchWithSum(t, b, 10)

	requestID, err := b.ledger.RequestDecryption(context.Background(), b.owner, batchID)
	require.NoError(t, err)

	stranger, _, _ := crypto.GenerateKeyPair()
	require.ErrorIs(t, b.ledger.AbandonRequest(stranger, requestID), ErrNotOwner)
	require.ErrorIs(t, b.ledger.AbandonRequest(b.owner, 999), ErrUnknownRequest)

	require.NoError(t, b.ledger.AbandonRequest(b.owner, requestID))
	require.ErrorIs(t, b.ledger.OnDecrypted(requestID, 10, []byte("ok")), ErrUnknownRequest)

	// A fresh request for the same batch is always permitted.
	b.advance(2 * time.Minute)
	fresh, err := b.ledger.RequestDecryption(context.Background(), b.owner, batchID)
	require.NoError(t, err)
	require.NoError(t, b.ledger.OnDecrypted(fresh, 10, []byte("ok")))

	// Processed requests cannot be abandoned.
	require.ErrorIs(t, b.ledger.AbandonRequest(b.owner, fresh), ErrReplayAttempt)
}

func TestCallbackBlockedWhilePaused(t *testing.T) {
	b := newTestBench(t)
	batchID := closedBatchWithSum(t, b, 10)

	requestID, err := b.ledger.RequestDecryption(context.Background(), b.owner, batchID)
	require.NoError(t, err)

	require.NoError(t, b.ledger.SetPaused(b.owner, true))
	require.ErrorIs(t, b.ledger.OnDecrypted(requestID, 10, []byte("ok")), ErrPaused)

	require.NoError(t, b.ledger.SetPaused(b.owner, false))
	require.NoError(t, b.ledger.OnDecrypted(requestID, 10, []byte("ok")))
}
