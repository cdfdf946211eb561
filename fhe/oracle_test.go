package fhe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/crypto"
	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/protocol"
)

type delivery struct {
	id        protocol.RequestID
	cleartext uint64
	proof     []byte
}

// collector records callback deliveries, optionally failing the first n.
type collector struct {
	mu         sync.Mutex
	deliveries []delivery
	failFirst  int
}

func (c *collector) callback(id protocol.RequestID, cleartext uint64, proof []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failFirst > 0 {
		c.failFirst--
		return errors.New("transient delivery failure")
	}
	c.deliveries = append(c.deliveries, delivery{id, cleartext, proof})
	return nil
}

func (c *collector) snapshot() []delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]delivery(nil), c.deliveries...)
}

func newTestOracle(t *testing.T) (*PaillierEngine, *LocalOracle) {
	t.Helper()

	engine, shares, err := NewPaillierEngine(512, 2)
	require.NoError(t, err)
	oracle, err := NewLocalOracle(engine.PublicKey(), shares, nil)
	require.NoError(t, err)
	return engine, oracle
}

func TestLocalOracleDeliversCleartextAndProof(t *testing.T) {
	engine, oracle := newTestOracle(t)
	sink := &collector{}
	oracle.SetCallback(sink.callback)

	a, err := engine.Encode(10)
	require.NoError(t, err)
	b, err := engine.Encode(20)
	require.NoError(t, err)
	sum, err := engine.Add(a, b)
	require.NoError(t, err)

	id, err := oracle.RequestDecryption(context.Background(), []crypto.Ciphertext{sum})
	require.NoError(t, err)
	oracle.Wait()

	got := sink.snapshot()
	require.Len(t, got, 1)
	require.Equal(t, id, got[0].id)
	require.Equal(t, uint64(30), got[0].cleartext)
	require.True(t, oracle.VerifyProof(id, 30, got[0].proof))

	// The proof binds both the request id and the cleartext.
	require.False(t, oracle.VerifyProof(id, 31, got[0].proof))
	require.False(t, oracle.VerifyProof(id+1, 30, got[0].proof))
}

func TestLocalOracleRetriesDelivery(t *testing.T) {
	engine, oracle := newTestOracle(t)
	sink := &collector{failFirst: 2}
	oracle.SetCallback(sink.callback)

	ct, err := engine.Encode(5)
	require.NoError(t, err)

	id, err := oracle.RequestDecryption(context.Background(), []crypto.Ciphertext{ct})
	require.NoError(t, err)
	oracle.Wait()

	got := sink.snapshot()
	require.Len(t, got, 1)
	require.Equal(t, id, got[0].id)
	require.Equal(t, uint64(5), got[0].cleartext)
}

func TestLocalOracleSumsMultipleCiphertexts(t *testing.T) {
	engine, oracle := newTestOracle(t)
	sink := &collector{}
	oracle.SetCallback(sink.callback)

	a, err := engine.Encode(11)
	require.NoError(t, err)
	b, err := engine.Encode(31)
	require.NoError(t, err)

	_, err = oracle.RequestDecryption(context.Background(), []crypto.Ciphertext{a, b})
	require.NoError(t, err)
	oracle.Wait()

	got := sink.snapshot()
	require.Len(t, got, 1)
	require.Equal(t, uint64(42), got[0].cleartext)
}

func TestLocalOracleRequiresCallback(t *testing.T) {
	engine, oracle := newTestOracle(t)

	ct, err := engine.Encode(1)
	require.NoError(t, err)

	_, err = oracle.RequestDecryption(context.Background(), []crypto.Ciphertext{ct})
	require.Error(t, err)

	_, err = oracle.RequestDecryption(context.Background(), nil)
	require.Error(t, err)
}

func TestLocalOracleAgainstLedger(t *testing.T) {
	engine, shares, err := NewPaillierEngine(512, 2)
	require.NoError(t, err)
	oracle, err := NewLocalOracle(engine.PublicKey(), shares, nil)
	require.NoError(t, err)

	owner, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	ledger, err := protocol.NewLedger(&protocol.LedgerConfig{InstanceID: "oracle-e2e", Cooldown: time.Millisecond}, owner, engine, oracle)
	require.NoError(t, err)
	oracle.SetCallback(ledger.OnDecrypted)

	r1, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	r2, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, ledger.AddReviewer(owner, r1))
	require.NoError(t, ledger.AddReviewer(owner, r2))

	batchID, err := ledger.OpenBatch(owner)
	require.NoError(t, err)

	ct1, err := engine.Encode(10)
	require.NoError(t, err)
	ct2, err := engine.Encode(20)
	require.NoError(t, err)
	require.NoError(t, ledger.Submit(r1, batchID, ct1))
	require.NoError(t, ledger.Submit(r2, batchID, ct2))

	_, err = ledger.CloseBatch(owner)
	require.NoError(t, err)

	requestID, err := ledger.RequestDecryption(context.Background(), owner, batchID)
	require.NoError(t, err)
	oracle.Wait()

	status, ok := ledger.RequestStatus(requestID)
	require.True(t, ok)
	require.True(t, status.Processed)
	require.Equal(t, uint64(30), status.Cleartext)
}
