package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/crypto"
)

type envelopePayload struct {
	BatchID uint64 `json:"batch_id"`
	Note    string `json:"note"`
}

func TestSignedRecover(t *testing.T) {
	pubKey, privKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	signed, err := NewSigned(privKey, &envelopePayload{BatchID: 3, Note: "close"})
	require.NoError(t, err)

	obj, signer, err := signed.Recover()
	require.NoError(t, err)
	require.True(t, pubKey.Equal(signer))
	require.Equal(t, uint64(3), obj.BatchID)
}

func TestSignedRecoverRejectsTampering(t *testing.T) {
	_, privKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	signed, err := NewSigned(privKey, &envelopePayload{BatchID: 3})
	require.NoError(t, err)

	signed.Object.BatchID = 4
	_, _, err = signed.Recover()
	require.Error(t, err)
}

func TestSignedRecoverRejectsKeySubstitution(t *testing.T) {
	_, privKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	otherPub, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	signed, err := NewSigned(privKey, &envelopePayload{BatchID: 1})
	require.NoError(t, err)

	// The signature covers the signer's key, so swapping it must fail
	// verification rather than reattribute the operation.
	signed.PublicKey = otherPub
	_, _, err = signed.Recover()
	require.Error(t, err)
}

func TestSignedSurvivesJSONRoundTrip(t *testing.T) {
	pubKey, privKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	signed, err := NewSigned(privKey, &envelopePayload{BatchID: 7, Note: "open"})
	require.NoError(t, err)

	data, err := json.Marshal(signed)
	require.NoError(t, err)

	decoded, err := UnmarshalMessage[Signed[envelopePayload]](data)
	require.NoError(t, err)

	obj, signer, err := decoded.Recover()
	require.NoError(t, err)
	require.True(t, pubKey.Equal(signer))
	require.Equal(t, uint64(7), obj.BatchID)
}
