package protocol

import "time"

// LedgerConfig provides construction parameters for a Ledger.
type LedgerConfig struct {
	// InstanceID distinguishes this ledger deployment. It is mixed into
	// every commitment fingerprint so a decryption proof obtained against
	// one instance can never finalize a request on another.
	InstanceID string `json:"instance_id"`

	// Cooldown is the minimum interval between two actions of the same
	// class (submission or decryption request) by the same actor.
	Cooldown time.Duration `json:"cooldown,string"`
}
