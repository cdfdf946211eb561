package crypto

import (
	"bytes"
	"encoding/hex"
)

// Ciphertext is an opaque homomorphically-encrypted value. The ledger never
// inspects its contents; all arithmetic goes through the injected engine and
// all revealing goes through the decryption oracle. The byte representation
// is canonical: two ciphertexts are the same value for fingerprinting
// purposes iff their bytes are identical.
type Ciphertext []byte

// NewCiphertextFromBytes creates a Ciphertext from a byte slice.
// The input is copied to ensure immutability.
func NewCiphertextFromBytes(data []byte) Ciphertext {
	ct := make([]byte, len(data))
	copy(ct, data)
	return Ciphertext(ct)
}

// NewCiphertextFromString creates a Ciphertext from a hex-encoded string.
func NewCiphertextFromString(data string) (Ciphertext, error) {
	rawBytes, err := hex.DecodeString(data)
	if err != nil {
		return nil, err
	}
	return NewCiphertextFromBytes(rawBytes), nil
}

// Bytes returns the ciphertext as a byte slice.
func (ct Ciphertext) Bytes() []byte {
	return ct
}

// Equal compares two ciphertexts byte for byte.
func (ct Ciphertext) Equal(other Ciphertext) bool {
	return bytes.Equal(ct, other)
}

// String returns a hex-encoded representation of the ciphertext.
func (ct Ciphertext) String() string {
	return hex.EncodeToString(ct)
}
