// Package protocol implements the ledger-resident aggregation protocol for
// encrypted peer-review scores.
//
// Reviewers deposit opaque, homomorphically-encrypted scores into time-boxed
// review batches. Once a batch is closed an authorized party may request that
// the encrypted sum be revealed; an external decryption oracle later delivers
// the cleartext asynchronously together with a proof. The hard part is not
// the homomorphic arithmetic (that lives behind the Engine interface) but
// keeping the public record consistent across the gap between "request
// decryption" and "receive decryption", during which other transactions may
// mutate the data whose sum was requested.
//
// # Commit/verify protocol
//
// RequestDecryption computes the batch aggregate, fingerprints the exact
// ciphertext set it summed (together with the ledger instance identity, to
// prevent cross-instance replay) and stores the fingerprint alongside the
// oracle-issued request id. When the oracle calls back with a cleartext and
// proof, OnDecrypted re-derives the fingerprint from current state and
// compares it to the committed one before verifying the proof. Only if both
// checks pass is the request marked processed and the cleartext published,
// exactly once. A failed check leaves the request unprocessed so the oracle
// can retry; a request whose fingerprint can never match again can be
// abandoned by the owner.
//
// # Serialization model
//
// The Ledger serializes every state-mutating operation under a single mutex:
// at most one operation executes at a time and runs to completion. The only
// asynchronous boundary is the oracle round-trip. Multiple outstanding
// decryption requests are supported; each carries its own commitment and
// processed flag and may complete in any order.
//
// # Guards
//
// Every mutating operation composes explicit precondition checks before any
// state changes: capability (owner / reviewer / requester), pause switch,
// per-actor cooldown, and batch lifecycle state. All failures are typed
// sentinel errors and leave the ledger untouched.
package protocol
