package fhe

import (
	"context"
	"sync"

	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/crypto"
	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/protocol"
)

// MockOracle implements protocol.DecryptionOracle for testing. It never
// decrypts: the test drives callback timing itself and decides which proofs
// verify. Behavior can be customized by setting the function fields.
type MockOracle struct {
	mu     sync.Mutex
	nextID protocol.RequestID

	// Requests records the ciphertexts handed to RequestDecryption, by id.
	Requests map[protocol.RequestID][]crypto.Ciphertext

	// RequestFunc, if set, overrides RequestDecryption.
	RequestFunc func(ctx context.Context, ciphertexts []crypto.Ciphertext) (protocol.RequestID, error)

	// VerifyFunc decides proof validity. The default accepts exactly the
	// proof returned by ValidProof.
	VerifyFunc func(id protocol.RequestID, cleartext uint64, proof []byte) bool
}

// NewMockOracle creates a mock oracle with default behavior.
func NewMockOracle() *MockOracle {
	return &MockOracle{
		nextID:   1,
		Requests: make(map[protocol.RequestID][]crypto.Ciphertext),
	}
}

// ValidProof is the proof accepted by the default VerifyFunc.
func ValidProof() []byte {
	return []byte("mock-proof-valid")
}

// RequestDecryption records the request and returns a fresh id.
func (m *MockOracle) RequestDecryption(ctx context.Context, ciphertexts []crypto.Ciphertext) (protocol.RequestID, error) {
	if m.RequestFunc != nil {
		return m.RequestFunc(ctx, ciphertexts)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++

	cts := make([]crypto.Ciphertext, len(ciphertexts))
	for i, ct := range ciphertexts {
		cts[i] = crypto.NewCiphertextFromBytes(ct)
	}
	m.Requests[id] = cts

	return id, nil
}

// VerifyProof applies VerifyFunc, or the default exact-match check.
func (m *MockOracle) VerifyProof(id protocol.RequestID, cleartext uint64, proof []byte) bool {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(id, cleartext, proof)
	}
	return string(proof) == string(ValidProof())
}

// PlainEngine implements protocol.Engine without encryption: the ciphertext
// is a big-endian encoding of the running sum. Only for tests, where it
// makes aggregates easy to assert against.
type PlainEngine struct{}

// Encode returns the value as an 8-byte big-endian ciphertext.
func (PlainEngine) Encode(value uint64) (crypto.Ciphertext, error) {
	ct := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		ct[i] = byte(value)
		value >>= 8
	}
	return crypto.Ciphertext(ct), nil
}

// Add sums the two encoded values.
func (PlainEngine) Add(a, b crypto.Ciphertext) (crypto.Ciphertext, error) {
	return PlainEngine{}.Encode(DecodePlain(a) + DecodePlain(b))
}

// DecodePlain recovers the value from a PlainEngine ciphertext.
func DecodePlain(ct crypto.Ciphertext) uint64 {
	var v uint64
	for _, b := range ct {
		v = v<<8 | uint64(b)
	}
	return v
}
