// Package cmd provides the CLI commands for the review ledger.
//
// # Commands
//
// ledgerd: Runs the complete aggregation service in one process: the review
// ledger, the threshold Paillier engine, the local decryption oracle and the
// HTTP API with optional Prometheus metrics and Postgres audit persistence.
//
//	go run ./cmd/ledgerd --config=ledgerd.yaml
//	go run ./cmd/ledgerd --addr=:8080 --instance=prod-1
//
// ledger-cli: Signs and submits operations against a running ledgerd: batch
// lifecycle, encrypted score submission and decryption requests.
//
//	go run ./cmd/ledger-cli open -u http://localhost:8080 -k owner.key
//	go run ./cmd/ledger-cli submit -u http://localhost:8080 -k reviewer.key -b 1 -c <ciphertext>
//	go run ./cmd/ledger-cli reveal -u http://localhost:8080 -k reviewer.key -b 1
//
// # Configuration
//
// ledgerd accepts YAML configuration via --config; command-line flags
// override config file values. ledger-cli is configured entirely by flags.
package cmd
