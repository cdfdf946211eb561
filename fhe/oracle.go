package fhe

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/niclabs/tcpaillier"
	"golang.org/x/crypto/sha3"

	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/crypto"
	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/protocol"
)

// Callback delivers a completed decryption to the ledger. Implementations
// must be safe for concurrent use; the ledger's OnDecrypted qualifies.
type Callback func(id protocol.RequestID, cleartext uint64, proof []byte) error

// LocalOracle is a decryption oracle running in-process. It holds the
// threshold Paillier key shares, performs decryption on its own goroutine and
// delivers the result through the registered callback, retrying delivery
// with exponential backoff. Every proof is an Ed25519 signature over the
// (request id, cleartext) pair, so a proof for one request can never
// finalize another.
type LocalOracle struct {
	pk         *tcpaillier.PubKey
	shares     []*tcpaillier.KeyShare
	signingKey crypto.PrivateKey
	publicKey  crypto.PublicKey
	log        *slog.Logger

	// maxElapsed bounds callback delivery retries per request.
	maxElapsed time.Duration

	mu       sync.Mutex
	nextID   protocol.RequestID
	callback Callback
	wg       sync.WaitGroup
}

// NewLocalOracle creates an oracle around the given key material. A fresh
// Ed25519 signing key is generated for proofs.
func NewLocalOracle(pk *tcpaillier.PubKey, shares []*tcpaillier.KeyShare, log *slog.Logger) (*LocalOracle, error) {
	if pk == nil || len(shares) == 0 {
		return nil, errors.New("oracle requires a public key and at least one key share")
	}
	if log == nil {
		log = slog.Default()
	}

	publicKey, signingKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	return &LocalOracle{
		pk:         pk,
		shares:     shares,
		signingKey: signingKey,
		publicKey:  publicKey,
		log:        log,
		maxElapsed: 30 * time.Second,
		nextID:     1,
	}, nil
}

// PublicKey returns the key that signs decryption proofs and callbacks.
func (o *LocalOracle) PublicKey() crypto.PublicKey {
	return o.publicKey
}

// SigningKey returns the oracle's private key, used by the service layer to
// sign callback envelopes.
func (o *LocalOracle) SigningKey() crypto.PrivateKey {
	return o.signingKey
}

// SetCallback registers the delivery target. Must be set before the first
// RequestDecryption.
func (o *LocalOracle) SetCallback(cb Callback) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.callback = cb
}

// RequestDecryption assigns a request id and schedules asynchronous
// decryption. When multiple ciphertexts are supplied their cleartexts are
// summed into the single delivered value.
func (o *LocalOracle) RequestDecryption(ctx context.Context, ciphertexts []crypto.Ciphertext) (protocol.RequestID, error) {
	if len(ciphertexts) == 0 {
		return 0, errors.New("no ciphertexts to decrypt")
	}

	o.mu.Lock()
	if o.callback == nil {
		o.mu.Unlock()
		return 0, errors.New("no callback registered")
	}
	id := o.nextID
	o.nextID++
	cb := o.callback
	o.mu.Unlock()

	cts := make([]crypto.Ciphertext, len(ciphertexts))
	for i, ct := range ciphertexts {
		cts[i] = crypto.NewCiphertextFromBytes(ct)
	}

	o.wg.Add(1)
	go o.decryptAndDeliver(ctx, id, cts, cb)

	return id, nil
}

func (o *LocalOracle) decryptAndDeliver(ctx context.Context, id protocol.RequestID, cts []crypto.Ciphertext, cb Callback) {
	defer o.wg.Done()

	var total uint64
	for _, ct := range cts {
		cleartext, err := decryptWithShares(o.pk, o.shares, ct)
		if err != nil {
			o.log.Error("oracle decryption failed", "request_id", id, "err", err)
			return
		}
		total += cleartext
	}

	proof, err := o.signProof(id, total)
	if err != nil {
		o.log.Error("oracle proof signing failed", "request_id", id, "err", err)
		return
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = o.maxElapsed

	err = backoff.Retry(func() error {
		return cb(id, total, proof)
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		o.log.Error("oracle callback delivery gave up", "request_id", id, "err", err)
	}
}

// Wait blocks until all in-flight decryptions have been delivered or given
// up. Used by tests and graceful shutdown.
func (o *LocalOracle) Wait() {
	o.wg.Wait()
}

// VerifyProof checks the Ed25519 proof signature for the request.
func (o *LocalOracle) VerifyProof(id protocol.RequestID, cleartext uint64, proof []byte) bool {
	return crypto.Signature(proof).Verify(o.publicKey, proofDigest(id, cleartext))
}

func (o *LocalOracle) signProof(id protocol.RequestID, cleartext uint64) ([]byte, error) {
	sig, err := crypto.Sign(o.signingKey, proofDigest(id, cleartext))
	if err != nil {
		return nil, fmt.Errorf("sign proof: %w", err)
	}
	return sig.Bytes(), nil
}

// proofDigest binds a request id and cleartext into the signed statement.
func proofDigest(id protocol.RequestID, cleartext uint64) []byte {
	h := sha3.New256()
	h.Write([]byte("paillier-decryption-proof-v1"))

	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(id))
	binary.BigEndian.PutUint64(buf[8:], cleartext)
	h.Write(buf[:])

	return h.Sum(nil)
}
