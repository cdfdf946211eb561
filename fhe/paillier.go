package fhe

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/niclabs/tcpaillier"

	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/crypto"
)

// DefaultKeyBits is the Paillier modulus size used when the configuration
// does not specify one. 512 is fine for tests; deployments should use 2048.
const DefaultKeyBits = 512

// PaillierEngine implements protocol.Engine over threshold Paillier.
// Ciphertexts are big-endian byte encodings of the Paillier ciphertext
// integer. Add multiplies ciphertexts under the modulus without
// re-randomizing, so it is deterministic with respect to its inputs.
type PaillierEngine struct {
	pk *tcpaillier.PubKey
}

// NewPaillierEngine generates a fresh threshold Paillier key split into n
// shares with threshold n, and returns the engine together with the shares.
// The shares belong to the decryption oracle; the ledger side only ever sees
// the public key.
func NewPaillierEngine(bitSize int, n uint8) (*PaillierEngine, []*tcpaillier.KeyShare, error) {
	if bitSize <= 0 {
		bitSize = DefaultKeyBits
	}
	if n == 0 {
		return nil, nil, errors.New("at least one key share is required")
	}

	shares, pk, err := tcpaillier.NewKey(bitSize, 1, n, n)
	if err != nil {
		return nil, nil, fmt.Errorf("paillier key generation: %w", err)
	}
	return &PaillierEngine{pk: pk}, shares, nil
}

// NewPaillierEngineFromKey wraps an existing public key.
func NewPaillierEngineFromKey(pk *tcpaillier.PubKey) *PaillierEngine {
	return &PaillierEngine{pk: pk}
}

// PublicKey returns the underlying Paillier public key.
func (e *PaillierEngine) PublicKey() *tcpaillier.PubKey {
	return e.pk
}

// Encode encrypts a cleartext value into a fresh ciphertext. Encryption is
// randomized: encoding the same value twice yields different ciphertexts.
func (e *PaillierEngine) Encode(value uint64) (crypto.Ciphertext, error) {
	ct, _, err := e.pk.Encrypt(new(big.Int).SetUint64(value))
	if err != nil {
		return nil, fmt.Errorf("paillier encrypt: %w", err)
	}
	return crypto.NewCiphertextFromBytes(ct.Bytes()), nil
}

// Add homomorphically adds two ciphertexts.
func (e *PaillierEngine) Add(a, b crypto.Ciphertext) (crypto.Ciphertext, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, errors.New("cannot add empty ciphertext")
	}

	sum, err := e.pk.Add(new(big.Int).SetBytes(a.Bytes()), new(big.Int).SetBytes(b.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("paillier add: %w", err)
	}
	return crypto.NewCiphertextFromBytes(sum.Bytes()), nil
}

// decryptWithShares performs the full threshold decryption of a ciphertext.
func decryptWithShares(pk *tcpaillier.PubKey, shares []*tcpaillier.KeyShare, ct crypto.Ciphertext) (uint64, error) {
	c := new(big.Int).SetBytes(ct.Bytes())

	partials := make([]*tcpaillier.DecryptionShare, len(shares))
	for i, share := range shares {
		partial, err := share.PartialDecrypt(c)
		if err != nil {
			return 0, fmt.Errorf("partial decrypt (share %d): %w", i, err)
		}
		partials[i] = partial
	}

	plaintext, err := pk.CombineShares(partials...)
	if err != nil {
		return 0, fmt.Errorf("combine shares: %w", err)
	}
	if !plaintext.IsUint64() {
		return 0, errors.New("decrypted value out of range")
	}
	return plaintext.Uint64(), nil
}
