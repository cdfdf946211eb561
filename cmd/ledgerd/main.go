// Command ledgerd runs the encrypted review aggregation service.
//
// The daemon wires together the review ledger, a threshold Paillier
// encryption engine, an in-process decryption oracle and the HTTP API.
// Reviewers submit encrypted scores into batches over HTTP; once a batch is
// closed, any reviewer or the owner can ask for its aggregate sum to be
// revealed, and the oracle delivers the cleartext back through the signed
// callback route.
//
// # Usage
//
//	go run ./cmd/ledgerd --config=ledgerd.yaml
//	go run ./cmd/ledgerd --addr=:8080 --instance=prod-1 --cooldown=30s
//
// # Configuration File
//
// Create a YAML file with daemon settings:
//
//	http_addr: ":8080"
//	metrics_addr: ":9090"
//	instance_id: "prod-1"
//	cooldown: 1m
//	key_bits: 512
//	key_shares: 2
//	postgres:
//	  host: localhost
//	  port: 5432
//	  user: ledger
//	  password: secret
//	  database: ledger
//
// Command-line flags override config file values.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/api/httpserver"
	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/common"
	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/crypto"
	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/fhe"
	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/protocol"
	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/services"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file")
		addr        = flag.String("addr", "", "HTTP listen address")
		metricsAddr = flag.String("metrics-addr", "", "Prometheus listen address")
		instanceID  = flag.String("instance", "", "Instance identifier bound into decryption fingerprints")
		cooldown    = flag.Duration("cooldown", 0, "Per-actor throttle interval")
		ownerKeyHex = flag.String("owner-key", "", "Initial owner public key (hex, defaults to the daemon key)")
		keyBits     = flag.Int("key-bits", 0, "Paillier modulus size")
		enablePprof = flag.Bool("pprof", false, "Enable the pprof API")
	)
	flag.Parse()

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *instanceID != "" {
		cfg.InstanceID = *instanceID
	}
	if *cooldown != 0 {
		cfg.Cooldown = *cooldown
	}
	if *ownerKeyHex != "" {
		cfg.OwnerKey = *ownerKeyHex
	}
	if *keyBits != 0 {
		cfg.KeyBits = *keyBits
	}
	if *enablePprof {
		cfg.EnablePprof = true
	}

	if err := run(cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfiguration(configPath string) (*common.Config, error) {
	if configPath != "" {
		return common.LoadConfig(configPath)
	}
	return common.DefaultConfig(), nil
}

func run(cfg *common.Config) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", common.PackageName)

	signingKey, err := loadOrGenerateSigningKey(cfg.SigningKey)
	if err != nil {
		return fmt.Errorf("signing key: %w", err)
	}
	daemonKey, err := signingKey.PublicKey()
	if err != nil {
		return err
	}

	ownerKey := daemonKey
	if cfg.OwnerKey != "" {
		ownerKey, err = crypto.NewPublicKeyFromString(cfg.OwnerKey)
		if err != nil {
			return fmt.Errorf("owner key: %w", err)
		}
	}
	log.Info("Ledger identity", "daemonKey", daemonKey.String(), "ownerKey", ownerKey.String())

	log.Info("Generating threshold Paillier key", "bits", cfg.KeyBits, "shares", cfg.KeyShares)
	engine, shares, err := fhe.NewPaillierEngine(cfg.KeyBits, cfg.KeyShares)
	if err != nil {
		return fmt.Errorf("paillier setup: %w", err)
	}

	oracle, err := fhe.NewLocalOracle(engine.PublicKey(), shares, log)
	if err != nil {
		return fmt.Errorf("oracle setup: %w", err)
	}

	ledger, err := protocol.NewLedger(&protocol.LedgerConfig{
		InstanceID: cfg.InstanceID,
		Cooldown:   cfg.Cooldown,
	}, ownerKey, engine, oracle)
	if err != nil {
		return fmt.Errorf("ledger setup: %w", err)
	}
	ledger.SetLogger(log)
	oracle.SetCallback(ledger.OnDecrypted)

	if cfg.Postgres != nil {
		store, err := services.NewPostgresEventStore(cfg.Postgres)
		if err != nil {
			return fmt.Errorf("event store setup: %w", err)
		}
		defer store.Close()
		ledger.SetEventSink(store)
		log.Info("Audit log persistence enabled", "database", cfg.Postgres.Database)
	}

	service := services.NewLedgerService(ledger, oracle.PublicKey(), log)

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cfg.HTTPAddr,
		MetricsAddr:              cfg.MetricsAddr,
		EnablePprof:              cfg.EnablePprof,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, service)
	if err != nil {
		return fmt.Errorf("server setup: %w", err)
	}

	srv.RunInBackground()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	srv.Shutdown()
	oracle.Wait()
	return nil
}

func loadOrGenerateSigningKey(hexKey string) (crypto.PrivateKey, error) {
	if hexKey != "" {
		keyBytes, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("invalid hex: %w", err)
		}
		return crypto.NewPrivateKeyFromBytes(keyBytes), nil
	}
	_, privKey, err := crypto.GenerateKeyPair()
	return privKey, err
}
