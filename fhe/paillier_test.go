package fhe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/crypto"
)

func TestPaillierAdditionRoundTrip(t *testing.T) {
	engine, shares, err := NewPaillierEngine(512, 2)
	require.NoError(t, err)
	require.Len(t, shares, 2)

	a, err := engine.Encode(10)
	require.NoError(t, err)
	b, err := engine.Encode(20)
	require.NoError(t, err)

	// Encryption is randomized, addition is not.
	require.NotEqual(t, a, b)
	sum1, err := engine.Add(a, b)
	require.NoError(t, err)
	sum2, err := engine.Add(a, b)
	require.NoError(t, err)
	require.Equal(t, sum1, sum2)

	cleartext, err := decryptWithShares(engine.PublicKey(), shares, sum1)
	require.NoError(t, err)
	require.Equal(t, uint64(30), cleartext)
}

func TestPaillierAddRejectsEmptyCiphertext(t *testing.T) {
	engine, _, err := NewPaillierEngine(512, 1)
	require.NoError(t, err)

	ct, err := engine.Encode(1)
	require.NoError(t, err)

	_, err = engine.Add(nil, ct)
	require.Error(t, err)
	_, err = engine.Add(ct, nil)
	require.Error(t, err)
}

func TestPaillierFoldManyValues(t *testing.T) {
	engine, shares, err := NewPaillierEngine(512, 3)
	require.NoError(t, err)

	values := []uint64{3, 14, 15, 92, 65}

	var expected uint64
	var aggregate crypto.Ciphertext
	for _, v := range values {
		enc, err := engine.Encode(v)
		require.NoError(t, err)
		expected += v

		if aggregate == nil {
			aggregate = enc
			continue
		}
		aggregate, err = engine.Add(aggregate, enc)
		require.NoError(t, err)
	}

	cleartext, err := decryptWithShares(engine.PublicKey(), shares, aggregate)
	require.NoError(t, err)
	require.Equal(t, expected, cleartext)
}
