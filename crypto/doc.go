// Package crypto provides the cryptographic primitives for the review ledger.
//
// This package implements the low-level operations shared by the protocol and
// service layers:
//
//   - Digital signatures (Ed25519) for caller authentication and oracle
//     decryption proofs
//   - Opaque homomorphic ciphertext handling with hex wire encoding
//
// Ciphertexts are deliberately opaque here: the ledger stores, compares and
// forwards them without interpreting their contents. All homomorphic
// arithmetic lives in the fhe package.
package crypto
