package services

import (
	"time"

	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/protocol"
)

// Wire types for the ledger HTTP service. Every state-mutating request
// travels inside a protocol.Signed envelope; the recovered signer is the
// caller identity the ledger checks capabilities against.

// TargetKeyRequest addresses administrative operations at a public key:
// ownership transfer and reviewer add/remove.
type TargetKeyRequest struct {
	// TargetKey is the hex-encoded public key the operation applies to.
	TargetKey string `json:"target_key"`
}

// SetPausedRequest flips the pause switch.
type SetPausedRequest struct {
	Paused bool `json:"paused"`
}

// SetCooldownRequest updates the per-actor throttle interval.
type SetCooldownRequest struct {
	CooldownSeconds uint64 `json:"cooldown_seconds"`
}

// BatchLifecycleRequest opens or closes a batch. It carries no payload; the
// envelope exists so lifecycle calls are signed like every other mutation.
type BatchLifecycleRequest struct {
	// Note is an optional free-form audit annotation, not interpreted.
	Note string `json:"note,omitempty"`
}

// SubmitRequest deposits an encrypted score into an open batch.
type SubmitRequest struct {
	BatchID uint64 `json:"batch_id"`
	// Ciphertext is the hex-encoded opaque ciphertext.
	Ciphertext string `json:"ciphertext"`
}

// DecryptionRequest asks for a closed batch's aggregate to be revealed.
type DecryptionRequest struct {
	BatchID uint64 `json:"batch_id"`
}

// AbandonRequest discards an unprocessed decryption context.
type AbandonRequest struct {
	RequestID protocol.RequestID `json:"request_id"`
}

// DecryptionCallback is the oracle's asynchronous result delivery. The
// envelope must be signed by the configured oracle key.
type DecryptionCallback struct {
	RequestID protocol.RequestID `json:"request_id"`
	Cleartext uint64             `json:"cleartext"`
	Proof     []byte             `json:"proof"`
}

// MutationResponse acknowledges a state-mutating call.
type MutationResponse struct {
	Success bool `json:"success"`

	// BatchID is set by batch lifecycle operations.
	BatchID uint64 `json:"batch_id,omitempty"`

	// RequestID is set by decryption request issuance.
	RequestID protocol.RequestID `json:"request_id,omitempty"`
}

// StatusResponse is the ledger's administrative read surface.
type StatusResponse struct {
	Owner            string        `json:"owner"`
	Paused           bool          `json:"paused"`
	Cooldown         time.Duration `json:"cooldown,string"`
	CurrentBatchID   uint64        `json:"current_batch_id"`
	CurrentBatchOpen bool          `json:"current_batch_open"`
}

// RequestStatusResponse reports a decryption context. Cleartext is present
// only once the request is processed.
type RequestStatusResponse struct {
	RequestID protocol.RequestID `json:"request_id"`
	BatchID   uint64             `json:"batch_id"`
	Processed bool               `json:"processed"`
	Cleartext *uint64            `json:"cleartext,omitempty"`
}

// ReviewerStatusResponse reports whether a key holds the reviewer
// capability.
type ReviewerStatusResponse struct {
	Key      string `json:"key"`
	Reviewer bool   `json:"reviewer"`
}

// SubmissionStatusResponse reports whether a reviewer has already deposited
// a ciphertext into a batch. The ciphertext itself is never returned.
type SubmissionStatusResponse struct {
	BatchID   uint64 `json:"batch_id"`
	Key       string `json:"key"`
	Submitted bool   `json:"submitted"`
}

// EventsResponse is a page of the append-only audit log.
type EventsResponse struct {
	Events []protocol.Event `json:"events"`
}
