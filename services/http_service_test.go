package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/crypto"
	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/fhe"
	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/protocol"
)

type serviceBench struct {
	router chi.Router
	ledger *protocol.Ledger
	oracle *fhe.MockOracle

	ownerKey     crypto.PrivateKey
	reviewerKey  crypto.PrivateKey
	reviewerPub  crypto.PublicKey
	oracleKey    crypto.PrivateKey
	oraclePubKey crypto.PublicKey
}

func setupTestService(t *testing.T) *serviceBench {
	t.Helper()

	ownerPub, ownerKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	reviewerPub, reviewerKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	oraclePub, oracleKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	oracle := fhe.NewMockOracle()
	ledger, err := protocol.NewLedger(&protocol.LedgerConfig{
		InstanceID: "service-test",
		Cooldown:   time.Millisecond,
	}, ownerPub, fhe.PlainEngine{}, oracle)
	require.NoError(t, err)

	require.NoError(t, ledger.AddReviewer(ownerPub, reviewerPub))

	service := NewLedgerService(ledger, oraclePub, nil)
	router := chi.NewRouter()
	service.RegisterRoutes(router)

	return &serviceBench{
		router:       router,
		ledger:       ledger,
		oracle:       oracle,
		ownerKey:     ownerKey,
		reviewerKey:  reviewerKey,
		reviewerPub:  reviewerPub,
		oracleKey:    oracleKey,
		oraclePubKey: oraclePub,
	}
}

func postSigned[T any](t *testing.T, router chi.Router, path string, key crypto.PrivateKey, obj *T) *httptest.ResponseRecorder {
	t.Helper()

	signed, err := protocol.NewSigned(key, obj)
	require.NoError(t, err)
	body, err := json.Marshal(signed)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeMutation(t *testing.T, w *httptest.ResponseRecorder) *MutationResponse {
	t.Helper()
	var resp MutationResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return &resp
}

func encodeScore(t *testing.T, value uint64) string {
	t.Helper()
	ct, err := fhe.PlainEngine{}.Encode(value)
	require.NoError(t, err)
	return ct.String()
}

func TestSubmitOverHTTP(t *testing.T) {
	bench := setupTestService(t)

	w := postSigned(t, bench.router, "/batches/open", bench.ownerKey, &BatchLifecycleRequest{})
	require.Equal(t, http.StatusOK, w.Code)
	opened := decodeMutation(t, w)
	require.Equal(t, uint64(1), opened.BatchID)

	w = postSigned(t, bench.router, "/submissions", bench.reviewerKey, &SubmitRequest{
		BatchID:    opened.BatchID,
		Ciphertext: encodeScore(t, 7),
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, decodeMutation(t, w).Success)

	// One ciphertext per reviewer per batch.
	time.Sleep(2 * time.Millisecond)
	w = postSigned(t, bench.router, "/submissions", bench.reviewerKey, &SubmitRequest{
		BatchID:    opened.BatchID,
		Ciphertext: encodeScore(t, 9),
	})
	require.Equal(t, http.StatusConflict, w.Code)

	outsiderKey := newKey(t)
	w = postSigned(t, bench.router, "/submissions", outsiderKey, &SubmitRequest{
		BatchID:    opened.BatchID,
		Ciphertext: encodeScore(t, 1),
	})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func newKey(t *testing.T) crypto.PrivateKey {
	t.Helper()
	_, key, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return key
}

func TestAdminRoutesRequireOwnerSignature(t *testing.T) {
	bench := setupTestService(t)

	targetPub, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	w := postSigned(t, bench.router, "/admin/add-reviewer", bench.reviewerKey, &TargetKeyRequest{
		TargetKey: targetPub.String(),
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = postSigned(t, bench.router, "/admin/add-reviewer", bench.ownerKey, &TargetKeyRequest{
		TargetKey: targetPub.String(),
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, bench.ledger.IsReviewer(targetPub))
}

func TestTamperedEnvelopeRejected(t *testing.T) {
	bench := setupTestService(t)

	signed, err := protocol.NewSigned(bench.ownerKey, &SetPausedRequest{Paused: true})
	require.NoError(t, err)
	signed.Object.Paused = false

	body, err := json.Marshal(signed)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/admin/pause", strings.NewReader(string(body)))
	w := httptest.NewRecorder()
	bench.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.False(t, bench.ledger.Paused())
}

func TestCooldownOverHTTP(t *testing.T) {
	bench := setupTestService(t)

	w := postSigned(t, bench.router, "/admin/cooldown", bench.ownerKey, &SetCooldownRequest{
		CooldownSeconds: 3600,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = postSigned(t, bench.router, "/batches/open", bench.ownerKey, &BatchLifecycleRequest{})
	require.Equal(t, http.StatusOK, w.Code)

	w = postSigned(t, bench.router, "/submissions", bench.reviewerKey, &SubmitRequest{
		BatchID: 1, Ciphertext: encodeScore(t, 5),
	})
	require.Equal(t, http.StatusOK, w.Code)

	// The hour-long cooldown is still running, so the error surfaces as a
	// throttle status rather than the duplicate conflict.
	w = postSigned(t, bench.router, "/submissions", bench.reviewerKey, &SubmitRequest{
		BatchID: 1, Ciphertext: encodeScore(t, 5),
	})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
}

func closedBatchOverHTTP(t *testing.T, bench *serviceBench, value uint64) protocol.RequestID {
	t.Helper()

	w := postSigned(t, bench.router, "/batches/open", bench.ownerKey, &BatchLifecycleRequest{})
	require.Equal(t, http.StatusOK, w.Code)
	batchID := decodeMutation(t, w).BatchID

	w = postSigned(t, bench.router, "/submissions", bench.reviewerKey, &SubmitRequest{
		BatchID: batchID, Ciphertext: encodeScore(t, value),
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = postSigned(t, bench.router, "/batches/close", bench.ownerKey, &BatchLifecycleRequest{})
	require.Equal(t, http.StatusOK, w.Code)

	w = postSigned(t, bench.router, "/decryption-requests", bench.reviewerKey, &DecryptionRequest{
		BatchID: batchID,
	})
	require.Equal(t, http.StatusOK, w.Code)
	return decodeMutation(t, w).RequestID
}

func TestOracleCallbackAuthentication(t *testing.T) {
	bench := setupTestService(t)
	requestID := closedBatchOverHTTP(t, bench, 30)

	callback := &DecryptionCallback{
		RequestID: requestID,
		Cleartext: 30,
		Proof:     fhe.ValidProof(),
	}

	// Only the configured oracle key may deliver results.
	w := postSigned(t, bench.router, "/oracle/callback", bench.ownerKey, callback)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = postSigned(t, bench.router, "/oracle/callback", bench.oracleKey, callback)
	require.Equal(t, http.StatusOK, w.Code)

	status, ok := bench.ledger.RequestStatus(requestID)
	require.True(t, ok)
	require.True(t, status.Processed)
	require.Equal(t, uint64(30), status.Cleartext)

	// Redelivery of a processed request is rejected.
	w = postSigned(t, bench.router, "/oracle/callback", bench.oracleKey, callback)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestUnknownRequestOverHTTP(t *testing.T) {
	bench := setupTestService(t)

	w := postSigned(t, bench.router, "/oracle/callback", bench.oracleKey, &DecryptionCallback{
		RequestID: 999,
		Cleartext: 1,
		Proof:     fhe.ValidProof(),
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusAndQueryRoutes(t *testing.T) {
	bench := setupTestService(t)
	requestID := closedBatchOverHTTP(t, bench, 12)

	req := httptest.NewRequest("GET", "/status", nil)
	w := httptest.NewRecorder()
	bench.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var status StatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	require.False(t, status.Paused)
	// Batch 1 closed, so the pointer has advanced to the next target.
	require.Equal(t, uint64(2), status.CurrentBatchID)
	require.False(t, status.CurrentBatchOpen)

	req = httptest.NewRequest("GET", "/batches/1", nil)
	w = httptest.NewRecorder()
	bench.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var batch protocol.Batch
	require.NoError(t, json.NewDecoder(w.Body).Decode(&batch))
	require.True(t, batch.Closed)
	require.Equal(t, uint32(1), batch.SubmissionCount)

	req = httptest.NewRequest("GET", fmt.Sprintf("/requests/%d", requestID), nil)
	w = httptest.NewRecorder()
	bench.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var reqStatus RequestStatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&reqStatus))
	require.False(t, reqStatus.Processed)
	require.Nil(t, reqStatus.Cleartext)

	req = httptest.NewRequest("GET", "/batches/42", nil)
	w = httptest.NewRecorder()
	bench.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)

	req = httptest.NewRequest("GET", "/reviewers/"+bench.reviewerPub.String(), nil)
	w = httptest.NewRecorder()
	bench.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var reviewer ReviewerStatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&reviewer))
	require.True(t, reviewer.Reviewer)

	req = httptest.NewRequest("GET", "/batches/1/submissions/"+bench.reviewerPub.String(), nil)
	w = httptest.NewRecorder()
	bench.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var submission SubmissionStatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&submission))
	require.True(t, submission.Submitted)
}

func TestEventsRouteCursor(t *testing.T) {
	bench := setupTestService(t)
	closedBatchOverHTTP(t, bench, 3)

	req := httptest.NewRequest("GET", "/events", nil)
	w := httptest.NewRecorder()
	bench.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var all EventsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&all))
	require.NotEmpty(t, all.Events)

	cursor := all.Events[len(all.Events)-2].Sequence
	req = httptest.NewRequest("GET", fmt.Sprintf("/events?after=%d", cursor), nil)
	w = httptest.NewRecorder()
	bench.router.ServeHTTP(w, req)

	var tail EventsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&tail))
	require.Len(t, tail.Events, 1)
	require.Greater(t, tail.Events[0].Sequence, cursor)
}

func TestEventStoreReceivesLedgerEvents(t *testing.T) {
	bench := setupTestService(t)

	store := NewInMemoryEventStore()
	bench.ledger.SetEventSink(store)

	closedBatchOverHTTP(t, bench, 8)

	stored, err := store.LoadAll()
	require.NoError(t, err)
	require.NotEmpty(t, stored)

	types := make([]protocol.EventType, 0, len(stored))
	for _, ev := range stored {
		types = append(types, ev.Type)
	}
	require.Contains(t, types, protocol.EventBatchOpened)
	require.Contains(t, types, protocol.EventSubmitted)
	require.Contains(t, types, protocol.EventBatchClosed)
	require.Contains(t, types, protocol.EventDecryptionRequested)
}
