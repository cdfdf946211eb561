package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/crypto"
	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/metrics"
	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/protocol"
)

// LedgerService exposes a protocol.Ledger over HTTP. Mutations arrive as
// signed envelopes; the recovered signer is the caller the ledger checks.
// The oracle callback route additionally requires the envelope to be signed
// by the configured oracle key.
type LedgerService struct {
	ledger    *protocol.Ledger
	oracleKey crypto.PublicKey
	log       *slog.Logger
}

// NewLedgerService wraps a ledger for HTTP exposure. oracleKey is the only
// identity allowed to deliver decryption results.
func NewLedgerService(ledger *protocol.Ledger, oracleKey crypto.PublicKey, log *slog.Logger) *LedgerService {
	if log == nil {
		log = slog.Default()
	}
	return &LedgerService{
		ledger:    ledger,
		oracleKey: oracleKey,
		log:       log,
	}
}

// RegisterRoutes registers the ledger's HTTP routes.
func (s *LedgerService) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Recoverer)

	r.Post("/admin/transfer-ownership", s.handleTransferOwnership)
	r.Post("/admin/add-reviewer", s.handleAddReviewer)
	r.Post("/admin/remove-reviewer", s.handleRemoveReviewer)
	r.Post("/admin/pause", s.handleSetPaused)
	r.Post("/admin/cooldown", s.handleSetCooldown)
	r.Post("/admin/abandon-request", s.handleAbandonRequest)

	r.Post("/batches/open", s.handleOpenBatch)
	r.Post("/batches/close", s.handleCloseBatch)
	r.Post("/submissions", s.handleSubmit)
	r.Post("/decryption-requests", s.handleRequestDecryption)
	r.Post("/oracle/callback", s.handleOracleCallback)

	r.Get("/status", s.handleStatus)
	r.Get("/reviewers/{key}", s.handleGetReviewer)
	r.Get("/batches/{batchID}", s.handleGetBatch)
	r.Get("/batches/{batchID}/submissions/{key}", s.handleGetSubmission)
	r.Get("/requests/{requestID}", s.handleGetRequest)
	r.Get("/events", s.handleGetEvents)
}

// recoverSigned decodes a signed envelope from the request body and verifies
// its signature, returning the payload and the signer's identity.
func recoverSigned[T any](r *http.Request) (*T, crypto.PublicKey, error) {
	var signedReq protocol.Signed[T]
	if err := json.NewDecoder(r.Body).Decode(&signedReq); err != nil {
		return nil, nil, fmt.Errorf("malformed request: %w", err)
	}
	obj, signer, err := signedReq.Recover()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid signature: %w", err)
	}
	if obj == nil {
		return nil, nil, errors.New("missing request object")
	}
	return obj, signer, nil
}

// writeLedgerError maps protocol errors onto HTTP status codes.
func writeLedgerError(w http.ResponseWriter, err error) {
	metrics.RejectedOperationsTotal.WithLabelValues(rejectionReason(err)).Inc()

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, protocol.ErrNotOwner),
		errors.Is(err, protocol.ErrNotReviewer),
		errors.Is(err, protocol.ErrNotRequester):
		status = http.StatusForbidden
	case errors.Is(err, protocol.ErrCooldownActive):
		status = http.StatusTooManyRequests
	case errors.Is(err, protocol.ErrPaused),
		errors.Is(err, protocol.ErrBatchNotOpen),
		errors.Is(err, protocol.ErrBatchAlreadyOpen),
		errors.Is(err, protocol.ErrBatchNotClosed),
		errors.Is(err, protocol.ErrDuplicateSubmission),
		errors.Is(err, protocol.ErrEmptyBatch),
		errors.Is(err, protocol.ErrReplayAttempt),
		errors.Is(err, protocol.ErrStateMismatch):
		status = http.StatusConflict
	case errors.Is(err, protocol.ErrUnknownRequest):
		status = http.StatusNotFound
	case errors.Is(err, protocol.ErrCooldownUnchanged):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrNotOwner),
		errors.Is(err, protocol.ErrNotReviewer),
		errors.Is(err, protocol.ErrNotRequester):
		return "capability"
	case errors.Is(err, protocol.ErrCooldownActive):
		return "cooldown"
	case errors.Is(err, protocol.ErrPaused):
		return "paused"
	case errors.Is(err, protocol.ErrReplayAttempt):
		return "replay"
	case errors.Is(err, protocol.ErrStateMismatch):
		return "state_mismatch"
	default:
		return "other"
	}
}

func (s *LedgerService) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	req, signer, err := recoverSigned[TargetKeyRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	target, err := crypto.NewPublicKeyFromString(req.TargetKey)
	if err != nil {
		http.Error(w, "invalid target key", http.StatusBadRequest)
		return
	}
	if err := s.ledger.TransferOwnership(signer, target); err != nil {
		writeLedgerError(w, err)
		return
	}
	json.NewEncoder(w).Encode(&MutationResponse{Success: true})
}

func (s *LedgerService) handleAddReviewer(w http.ResponseWriter, r *http.Request) {
	req, signer, err := recoverSigned[TargetKeyRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	target, err := crypto.NewPublicKeyFromString(req.TargetKey)
	if err != nil {
		http.Error(w, "invalid target key", http.StatusBadRequest)
		return
	}
	if err := s.ledger.AddReviewer(signer, target); err != nil {
		writeLedgerError(w, err)
		return
	}
	json.NewEncoder(w).Encode(&MutationResponse{Success: true})
}

func (s *LedgerService) handleRemoveReviewer(w http.ResponseWriter, r *http.Request) {
	req, signer, err := recoverSigned[TargetKeyRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	target, err := crypto.NewPublicKeyFromString(req.TargetKey)
	if err != nil {
		http.Error(w, "invalid target key", http.StatusBadRequest)
		return
	}
	if err := s.ledger.RemoveReviewer(signer, target); err != nil {
		writeLedgerError(w, err)
		return
	}
	json.NewEncoder(w).Encode(&MutationResponse{Success: true})
}

func (s *LedgerService) handleSetPaused(w http.ResponseWriter, r *http.Request) {
	req, signer, err := recoverSigned[SetPausedRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.ledger.SetPaused(signer, req.Paused); err != nil {
		writeLedgerError(w, err)
		return
	}
	json.NewEncoder(w).Encode(&MutationResponse{Success: true})
}

func (s *LedgerService) handleSetCooldown(w http.ResponseWriter, r *http.Request) {
	req, signer, err := recoverSigned[SetCooldownRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cooldown := time.Duration(req.CooldownSeconds) * time.Second
	if err := s.ledger.SetCooldown(signer, cooldown); err != nil {
		writeLedgerError(w, err)
		return
	}
	json.NewEncoder(w).Encode(&MutationResponse{Success: true})
}

func (s *LedgerService) handleAbandonRequest(w http.ResponseWriter, r *http.Request) {
	req, signer, err := recoverSigned[AbandonRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.ledger.AbandonRequest(signer, req.RequestID); err != nil {
		writeLedgerError(w, err)
		return
	}
	json.NewEncoder(w).Encode(&MutationResponse{Success: true})
}

func (s *LedgerService) handleOpenBatch(w http.ResponseWriter, r *http.Request) {
	_, signer, err := recoverSigned[BatchLifecycleRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	batchID, err := s.ledger.OpenBatch(signer)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	json.NewEncoder(w).Encode(&MutationResponse{Success: true, BatchID: batchID})
}

func (s *LedgerService) handleCloseBatch(w http.ResponseWriter, r *http.Request) {
	_, signer, err := recoverSigned[BatchLifecycleRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	batchID, err := s.ledger.CloseBatch(signer)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	json.NewEncoder(w).Encode(&MutationResponse{Success: true, BatchID: batchID})
}

func (s *LedgerService) handleSubmit(w http.ResponseWriter, r *http.Request) {
	req, signer, err := recoverSigned[SubmitRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ciphertext, err := crypto.NewCiphertextFromString(req.Ciphertext)
	if err != nil {
		http.Error(w, "invalid ciphertext encoding", http.StatusBadRequest)
		return
	}
	if err := s.ledger.Submit(signer, req.BatchID, ciphertext); err != nil {
		writeLedgerError(w, err)
		return
	}
	metrics.SubmissionsTotal.Inc()
	json.NewEncoder(w).Encode(&MutationResponse{Success: true, BatchID: req.BatchID})
}

func (s *LedgerService) handleRequestDecryption(w http.ResponseWriter, r *http.Request) {
	req, signer, err := recoverSigned[DecryptionRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	requestID, err := s.ledger.RequestDecryption(r.Context(), signer, req.BatchID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	metrics.DecryptionRequestsTotal.Inc()
	json.NewEncoder(w).Encode(&MutationResponse{Success: true, BatchID: req.BatchID, RequestID: requestID})
}

func (s *LedgerService) handleOracleCallback(w http.ResponseWriter, r *http.Request) {
	req, signer, err := recoverSigned[DecryptionCallback](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !signer.Equal(s.oracleKey) {
		http.Error(w, "callback not signed by decryption oracle", http.StatusForbidden)
		return
	}
	if err := s.ledger.OnDecrypted(req.RequestID, req.Cleartext, req.Proof); err != nil {
		s.log.Warn("rejected oracle callback",
			"requestID", uint64(req.RequestID), "err", err)
		metrics.OracleCallbacksTotal.WithLabelValues("rejected").Inc()
		writeLedgerError(w, err)
		return
	}
	metrics.OracleCallbacksTotal.WithLabelValues("accepted").Inc()
	json.NewEncoder(w).Encode(&MutationResponse{Success: true, RequestID: req.RequestID})
}

func (s *LedgerService) handleStatus(w http.ResponseWriter, r *http.Request) {
	currentID, open := s.ledger.CurrentBatchID()
	json.NewEncoder(w).Encode(&StatusResponse{
		Owner:            s.ledger.Owner().String(),
		Paused:           s.ledger.Paused(),
		Cooldown:         s.ledger.Cooldown(),
		CurrentBatchID:   currentID,
		CurrentBatchOpen: open,
	})
}

func (s *LedgerService) handleGetReviewer(w http.ResponseWriter, r *http.Request) {
	key, err := crypto.NewPublicKeyFromString(chi.URLParam(r, "key"))
	if err != nil {
		http.Error(w, "invalid public key", http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(&ReviewerStatusResponse{
		Key:      key.String(),
		Reviewer: s.ledger.IsReviewer(key),
	})
}

func (s *LedgerService) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	batchID, err := strconv.ParseUint(chi.URLParam(r, "batchID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}
	key, err := crypto.NewPublicKeyFromString(chi.URLParam(r, "key"))
	if err != nil {
		http.Error(w, "invalid public key", http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(&SubmissionStatusResponse{
		BatchID:   batchID,
		Key:       key.String(),
		Submitted: s.ledger.HasSubmitted(batchID, key),
	})
}

func (s *LedgerService) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := strconv.ParseUint(chi.URLParam(r, "batchID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}
	batch, ok := s.ledger.BatchInfo(batchID)
	if !ok {
		http.Error(w, "batch not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(batch)
}

func (s *LedgerService) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "requestID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid request id", http.StatusBadRequest)
		return
	}
	status, ok := s.ledger.RequestStatus(protocol.RequestID(id))
	if !ok {
		http.Error(w, "request not found", http.StatusNotFound)
		return
	}
	resp := &RequestStatusResponse{
		RequestID: status.RequestID,
		BatchID:   status.BatchID,
		Processed: status.Processed,
	}
	if status.Processed {
		resp.Cleartext = &status.Cleartext
	}
	json.NewEncoder(w).Encode(resp)
}

func (s *LedgerService) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	var after uint64
	if raw := r.URL.Query().Get("after"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid after cursor", http.StatusBadRequest)
			return
		}
		after = parsed
	}
	json.NewEncoder(w).Encode(&EventsResponse{Events: s.ledger.Events(after)})
}
