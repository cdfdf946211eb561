// Package common holds shared configuration for the review ledger binaries.
package common

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/services"
)

// PackageName is the metrics namespace and service identifier.
const PackageName = "review_ledger"

// Config is the YAML configuration for the ledger daemon.
type Config struct {
	// HTTPAddr is the address the ledger API listens on.
	HTTPAddr string `yaml:"http_addr"`

	// MetricsAddr is the address of the Prometheus endpoint. Empty disables
	// the metrics server.
	MetricsAddr string `yaml:"metrics_addr"`

	// InstanceID names this deployment; it is bound into every decryption
	// fingerprint so results cannot migrate between instances.
	InstanceID string `yaml:"instance_id"`

	// Cooldown is the per-actor throttle interval.
	Cooldown time.Duration `yaml:"cooldown"`

	// OwnerKey is the hex-encoded Ed25519 public key of the initial owner.
	// Empty generates a fresh owner key pair at startup.
	OwnerKey string `yaml:"owner_key"`

	// SigningKey is the hex-encoded Ed25519 private key the daemon signs
	// with. Empty generates a fresh key at startup.
	SigningKey string `yaml:"signing_key"`

	// KeyBits is the Paillier modulus size.
	KeyBits int `yaml:"key_bits"`

	// KeyShares is the number of decryption key shares held by the oracle.
	KeyShares uint8 `yaml:"key_shares"`

	// EnablePprof exposes the pprof API under /debug.
	EnablePprof bool `yaml:"enable_pprof"`

	// Postgres configures audit log persistence. A nil section keeps the
	// log in memory only.
	Postgres *services.PostgresConfig `yaml:"postgres"`
}

// DefaultConfig returns a configuration suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:   ":8080",
		InstanceID: "local",
		Cooldown:   time.Minute,
		KeyBits:    512,
		KeyShares:  2,
	}
}

// LoadConfig reads a YAML configuration file, filling unset fields from
// DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http_addr cannot be empty")
	}
	if cfg.KeyBits < 512 {
		return nil, fmt.Errorf("key_bits must be at least 512")
	}
	if cfg.KeyShares == 0 {
		return nil, fmt.Errorf("key_shares must be at least 1")
	}

	return cfg, nil
}
