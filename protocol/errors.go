package protocol

import "errors"

// Capability errors: the caller lacks the required role.
var (
	ErrNotOwner     = errors.New("caller is not the owner")
	ErrNotReviewer  = errors.New("caller is not an authorized reviewer")
	ErrNotRequester = errors.New("caller is not an authorized requester")
)

// Lifecycle errors: the operation is valid but the ledger is not in a state
// that accepts it.
var (
	ErrPaused              = errors.New("ledger is paused")
	ErrBatchNotOpen        = errors.New("batch is not open")
	ErrBatchAlreadyOpen    = errors.New("a batch is already open")
	ErrBatchNotClosed      = errors.New("batch is not closed")
	ErrDuplicateSubmission = errors.New("reviewer already submitted to this batch")
	ErrEmptyBatch          = errors.New("batch has no submissions")
)

// Throttle error: recoverable by retrying after the cooldown elapses.
var ErrCooldownActive = errors.New("cooldown active")

// ErrCooldownUnchanged rejects a no-op cooldown update.
var ErrCooldownUnchanged = errors.New("cooldown value unchanged")

// Protocol integrity errors, surfaced from the asynchronous callback path.
// StateMismatch and DecryptionFailed leave the request unprocessed so the
// oracle may retry with the same request id.
var (
	ErrUnknownRequest   = errors.New("unknown decryption request")
	ErrReplayAttempt    = errors.New("decryption request already processed")
	ErrStateMismatch    = errors.New("ledger state changed since decryption was requested")
	ErrDecryptionFailed = errors.New("decryption proof verification failed")
)
