package protocol

import (
	"context"

	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/crypto"
)

// RequestID identifies an outstanding decryption request. Ids are issued by
// the oracle and are only meaningful to the oracle instance that issued them.
type RequestID uint64

// Engine performs homomorphic arithmetic on opaque ciphertexts. The ledger
// never inspects ciphertext contents; it only folds them with Add and hands
// them to the oracle for revealing.
type Engine interface {
	// Encode encrypts a cleartext value into a fresh ciphertext.
	Encode(value uint64) (crypto.Ciphertext, error)

	// Add homomorphically adds two ciphertexts, producing a ciphertext of
	// the sum. Must be deterministic: adding the same inputs yields the
	// same output bytes.
	Add(a, b crypto.Ciphertext) (crypto.Ciphertext, error)
}

// DecryptionOracle is the external, trusted-but-verifiable service that
// decrypts aggregates off the ledger. RequestDecryption returns immediately
// with a request id; the cleartext arrives later through an independent
// callback to Ledger.OnDecrypted. The oracle holds no ledger state and is
// trusted only to the extent its proofs verify.
type DecryptionOracle interface {
	// RequestDecryption schedules asynchronous decryption of the given
	// ciphertexts and returns the id the eventual callback will carry.
	RequestDecryption(ctx context.Context, ciphertexts []crypto.Ciphertext) (RequestID, error)

	// VerifyProof checks that proof attests to cleartext being the correct
	// decryption for the given request id.
	VerifyProof(id RequestID, cleartext uint64, proof []byte) bool
}

// EventSink receives every appended ledger event. Sink failures are logged
// but never roll back ledger state.
type EventSink interface {
	Append(ev *Event) error
}
