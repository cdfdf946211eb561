package protocol

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// fingerprintLocked computes the commitment fingerprint for a batch: a
// SHA3-256 digest over the ledger instance identity, the batch id and the
// ordered (submitter, ciphertext) set. The instance identity prevents a
// proof obtained against one deployment from finalizing a request on
// another. Must be called with the ledger mutex held.
//
// The digest is length-prefixed per field so distinct submission sets can
// never serialize to the same byte stream.
func (l *Ledger) fingerprintLocked(batchID uint64) [32]byte {
	h := sha3.New256()

	writeBytes := func(b []byte) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(b)))
		h.Write(n[:])
		h.Write(b)
	}

	writeBytes([]byte(l.config.InstanceID))

	var id [8]byte
	binary.BigEndian.PutUint64(id[:], batchID)
	h.Write(id[:])

	subs := l.submissions[batchID]
	for _, key := range sortedSubmitters(subs) {
		writeBytes([]byte(key))
		writeBytes(subs[key].Bytes())
	}

	var fp [32]byte
	h.Sum(fp[:0])
	return fp
}
