// Package fhe provides the homomorphic encryption collaborators the ledger
// is parameterized over.
//
// The ledger treats ciphertexts as opaque bytes and depends only on the
// protocol.Engine and protocol.DecryptionOracle interfaces. This package
// supplies:
//
//   - PaillierEngine: an additively-homomorphic engine backed by threshold
//     Paillier (github.com/niclabs/tcpaillier). Addition of ciphertexts is
//     deterministic, which the ledger's fingerprint protocol relies on.
//   - LocalOracle: a decryption oracle holding the threshold key shares. It
//     decrypts off the caller's path and delivers the cleartext through an
//     asynchronous signed callback, retrying delivery with exponential
//     backoff. Proofs are Ed25519 signatures binding (request id, cleartext)
//     to the oracle's key.
//   - MockOracle: a controllable oracle for tests that never decrypts and
//     lets the test drive callback timing and proof validity.
//
// Retry policy lives here, on the oracle side: the ledger itself never
// retries anything.
package fhe
