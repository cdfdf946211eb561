package protocol

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/crypto"
)

// DefaultCooldown applies when the configuration does not specify one.
const DefaultCooldown = time.Minute

// Batch is a bounded submission window. A batch is created Open and the
// Open -> Closed transition is one-way; at most one batch is Open at a time.
type Batch struct {
	ID              uint64 `json:"id"`
	Open            bool   `json:"open"`
	Closed          bool   `json:"closed"`
	SubmissionCount uint32 `json:"submission_count"`
}

// DecryptionContext tracks one outstanding decryption request. It transitions
// unprocessed -> processed exactly once and never reverts.
type DecryptionContext struct {
	RequestID   RequestID `json:"request_id"`
	BatchID     uint64    `json:"batch_id"`
	Fingerprint [32]byte  `json:"fingerprint"`
	Processed   bool      `json:"processed"`

	// Cleartext is the published sum, valid once Processed is true.
	Cleartext uint64 `json:"cleartext"`

	RequestedAt time.Time `json:"requested_at"`
}

// Ledger owns all protocol state: the reviewer registry, throttle timestamps,
// the batch table, the submission store and the decryption contexts. State is
// mutated exclusively through the guarded operations below; a single mutex
// serializes them, so every operation runs to completion before the next
// begins.
type Ledger struct {
	config *LedgerConfig
	engine Engine
	oracle DecryptionOracle
	sink   EventSink
	log    *slog.Logger

	mu    sync.Mutex
	clock func() time.Time

	owner     crypto.PublicKey
	reviewers map[string]bool
	paused    bool
	cooldown  time.Duration

	// Throttle timestamps, one map per action class.
	lastSubmission map[string]time.Time
	lastRequest    map[string]time.Time

	// nextBatchID is the id OpenBatch will use; it advances when the
	// current batch closes.
	nextBatchID uint64
	current     *Batch
	batches     map[uint64]*Batch
	submissions map[uint64]map[string]crypto.Ciphertext

	contexts map[RequestID]*DecryptionContext

	events   []Event
	eventSeq uint64
}

// NewLedger creates a ledger owned by the given key. The engine and oracle
// are required collaborators; the event sink and logger are optional and can
// be attached with SetEventSink and SetLogger before first use.
func NewLedger(config *LedgerConfig, owner crypto.PublicKey, engine Engine, oracle DecryptionOracle) (*Ledger, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if len(owner) == 0 {
		return nil, errors.New("owner cannot be empty")
	}
	if engine == nil {
		return nil, errors.New("engine cannot be nil")
	}
	if oracle == nil {
		return nil, errors.New("oracle cannot be nil")
	}

	cooldown := config.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	return &Ledger{
		config:         config,
		engine:         engine,
		oracle:         oracle,
		clock:          time.Now,
		owner:          owner,
		reviewers:      make(map[string]bool),
		cooldown:       cooldown,
		lastSubmission: make(map[string]time.Time),
		lastRequest:    make(map[string]time.Time),
		nextBatchID:    1,
		batches:        make(map[uint64]*Batch),
		submissions:    make(map[uint64]map[string]crypto.Ciphertext),
		contexts:       make(map[RequestID]*DecryptionContext),
	}, nil
}

// SetEventSink attaches a sink that receives every appended event.
func (l *Ledger) SetEventSink(sink EventSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = sink
}

// SetLogger attaches a structured logger for non-fatal diagnostics.
func (l *Ledger) SetLogger(log *slog.Logger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log = log
}

// Precondition guards. Each returns a typed error and is composed, in order,
// before any state change; callers hold the ledger mutex.

func (l *Ledger) requireOwner(caller crypto.PublicKey) error {
	if !l.owner.Equal(caller) {
		return ErrNotOwner
	}
	return nil
}

func (l *Ledger) requireNotPaused() error {
	if l.paused {
		return ErrPaused
	}
	return nil
}

func (l *Ledger) requireReviewer(caller crypto.PublicKey) error {
	if !l.reviewers[caller.String()] {
		return ErrNotReviewer
	}
	return nil
}

// requireRequester grants request capability to reviewers and the owner.
func (l *Ledger) requireRequester(caller crypto.PublicKey) error {
	if !l.reviewers[caller.String()] && !l.owner.Equal(caller) {
		return ErrNotRequester
	}
	return nil
}

func (l *Ledger) requireCooldown(lastAction map[string]time.Time, caller crypto.PublicKey) error {
	last, seen := lastAction[caller.String()]
	if seen && l.clock().Before(last.Add(l.cooldown)) {
		return ErrCooldownActive
	}
	return nil
}

// TransferOwnership reassigns the administrative capability. The owner always
// exists: transferring to an empty key is rejected.
func (l *Ledger) TransferOwnership(caller, newOwner crypto.PublicKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if len(newOwner) == 0 {
		return errors.New("new owner cannot be empty")
	}

	l.owner = crypto.NewPublicKeyFromBytes(newOwner)
	l.appendEvent(Event{Type: EventOwnershipTransferred, Actor: newOwner.String()})
	return nil
}

// AddReviewer grants submit capability to the given key.
func (l *Ledger) AddReviewer(caller, reviewer crypto.PublicKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}

	l.reviewers[reviewer.String()] = true
	l.appendEvent(Event{Type: EventReviewerAdded, Actor: reviewer.String()})
	return nil
}

// RemoveReviewer revokes submit capability from the given key.
func (l *Ledger) RemoveReviewer(caller, reviewer crypto.PublicKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}

	delete(l.reviewers, reviewer.String())
	l.appendEvent(Event{Type: EventReviewerRemoved, Actor: reviewer.String()})
	return nil
}

// SetPaused flips the pause switch. Pausing blocks every submission,
// lifecycle, request and callback operation but not administrative ones.
func (l *Ledger) SetPaused(caller crypto.PublicKey, paused bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}

	l.paused = paused
	evType := EventPaused
	if !paused {
		evType = EventUnpaused
	}
	l.appendEvent(Event{Type: evType, Actor: caller.String()})
	return nil
}

// SetCooldown updates the per-actor throttle interval. Zero, negative and
// no-op values are rejected.
func (l *Ledger) SetCooldown(caller crypto.PublicKey, cooldown time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if cooldown <= 0 {
		return errors.New("cooldown must be positive")
	}
	if cooldown == l.cooldown {
		return ErrCooldownUnchanged
	}

	l.cooldown = cooldown
	l.appendEvent(Event{Type: EventCooldownChanged, Actor: caller.String(), Cooldown: cooldown})
	return nil
}

// OpenBatch opens the batch at the current pointer. A batch id is reserved
// when the previous batch closes and only ever opens once.
func (l *Ledger) OpenBatch(caller crypto.PublicKey) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return 0, err
	}
	if err := l.requireNotPaused(); err != nil {
		return 0, err
	}
	if l.current != nil && l.current.Open {
		return 0, ErrBatchAlreadyOpen
	}

	batch := &Batch{ID: l.nextBatchID, Open: true}
	l.current = batch
	l.batches[batch.ID] = batch
	l.submissions[batch.ID] = make(map[string]crypto.Ciphertext)

	l.appendEvent(Event{Type: EventBatchOpened, Actor: caller.String(), BatchID: batch.ID})
	return batch.ID, nil
}

// CloseBatch closes the current batch and advances the pointer so a
// subsequent OpenBatch targets a fresh id. Closed batches never reopen.
func (l *Ledger) CloseBatch(caller crypto.PublicKey) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return 0, err
	}
	if err := l.requireNotPaused(); err != nil {
		return 0, err
	}
	if l.current == nil || !l.current.Open {
		return 0, ErrBatchNotOpen
	}

	l.current.Open = false
	l.current.Closed = true
	closedID := l.current.ID
	l.nextBatchID++

	l.appendEvent(Event{Type: EventBatchClosed, Actor: caller.String(), BatchID: closedID})
	return closedID, nil
}
