/*
# Ledger Services Package

The services package exposes the core review ledger over HTTP and persists
its audit log.

## Components

### LedgerService (`http_service.go`)

Wraps `protocol.Ledger` with a chi router. Every state-mutating request is a
`protocol.Signed` envelope; the recovered signer is the caller identity the
ledger checks capabilities against. Endpoints:

  - `POST /admin/transfer-ownership` - hand the owner role to another key
  - `POST /admin/add-reviewer` - grant the reviewer capability
  - `POST /admin/remove-reviewer` - revoke the reviewer capability
  - `POST /admin/pause` - pause or resume batch operations
  - `POST /admin/cooldown` - update the per-actor throttle interval
  - `POST /admin/abandon-request` - discard a stuck decryption request
  - `POST /batches/open` - open the next review batch
  - `POST /batches/close` - close the current batch
  - `POST /submissions` - deposit an encrypted score
  - `POST /decryption-requests` - ask for a closed batch's aggregate
  - `POST /oracle/callback` - oracle result delivery (oracle key only)
  - `GET /status`, `/reviewers/{key}`, `/batches/{id}`,
    `/batches/{id}/submissions/{key}`, `/requests/{id}`, `/events` - reads

Protocol errors map onto HTTP status codes: capability failures are 403,
throttle violations are 429, lifecycle and integrity conflicts are 409.

### Event stores (`event_store.go`)

`PostgresEventStore` persists the audit log via lib/pq; `InMemoryEventStore`
is its database-free twin for tests and single-process runs. Both implement
`protocol.EventSink`, so either can be attached with `Ledger.SetEventSink`.

## Usage

	ledger := protocol.NewLedger(config, ownerKey, engine, oracle)
	service := services.NewLedgerService(ledger, oracle.PublicKey(), log)

	router := chi.NewRouter()
	service.RegisterRoutes(router)
	http.ListenAndServe(addr, router)

## Security Notes

- Ed25519 signatures authenticate every mutation
- The oracle callback route rejects envelopes not signed by the oracle key
- Replay and state-drift rejection happens inside the ledger, not here
*/
package services
