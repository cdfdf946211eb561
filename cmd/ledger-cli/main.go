// Command ledger-cli signs and submits operations against a running ledgerd.
//
// Every mutating command reads an Ed25519 private key from a file, signs the
// request envelope and posts it to the daemon. Use keygen to create a key:
//
//	ledger-cli keygen -o reviewer.key
//	ledger-cli open -u http://localhost:8080 -k owner.key
//	ledger-cli submit -u http://localhost:8080 -k reviewer.key -b 1 -c <hex>
//	ledger-cli reveal -u http://localhost:8080 -k reviewer.key -b 1
//	ledger-cli status -u http://localhost:8080
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/crypto"
	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/protocol"
	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/services"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "keygen":
		err = runKeygen(args)
	case "open":
		err = runLifecycle(args, "/batches/open")
	case "close":
		err = runLifecycle(args, "/batches/close")
	case "submit":
		err = runSubmit(args)
	case "reveal":
		err = runReveal(args)
	case "add-reviewer":
		err = runTargetKey(args, "/admin/add-reviewer")
	case "remove-reviewer":
		err = runTargetKey(args, "/admin/remove-reviewer")
	case "transfer-ownership":
		err = runTargetKey(args, "/admin/transfer-ownership")
	case "pause":
		err = runPause(args, true)
	case "unpause":
		err = runPause(args, false)
	case "status":
		err = runStatus(args)
	case "events":
		err = runEvents(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`ledger-cli - review ledger operations

Usage:
  ledger-cli <command> [options]

Commands:
  keygen              Generate a signing key file
  open                Open the next review batch (owner)
  close               Close the current batch (owner)
  submit              Submit an encrypted score to a batch (reviewer)
  reveal              Request decryption of a closed batch's aggregate
  add-reviewer        Grant the reviewer capability (owner)
  remove-reviewer     Revoke the reviewer capability (owner)
  transfer-ownership  Hand the owner role to another key (owner)
  pause / unpause     Toggle the pause switch (owner)
  status              Show ledger status
  events              Show the audit log

Run 'ledger-cli <command> --help' for command-specific options.`)
}

func loadKey(path string) (crypto.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	keyBytes, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid key hex: %w", err)
	}
	return crypto.NewPrivateKeyFromBytes(keyBytes), nil
}

func postSigned[T any](url, path string, key crypto.PrivateKey, obj *T) (*services.MutationResponse, error) {
	signed, err := protocol.NewSigned(key, obj)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(signed)
	if err != nil {
		return nil, err
	}

	resp, err := http.Post(url+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("daemon returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out services.MutationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func runKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	out := fs.String("o", "ledger.key", "Output key file")
	fs.Parse(args)

	pubKey, privKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, []byte(hex.EncodeToString(privKey.Bytes())), 0o600); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\nPublic key: %s\n", *out, pubKey.String())
	return nil
}

func runLifecycle(args []string, path string) error {
	fs := flag.NewFlagSet("lifecycle", flag.ExitOnError)
	url := fs.String("u", "http://localhost:8080", "Daemon URL")
	keyPath := fs.String("k", "", "Signing key file")
	fs.Parse(args)

	key, err := loadKey(*keyPath)
	if err != nil {
		return err
	}

	resp, err := postSigned(*url, path, key, &services.BatchLifecycleRequest{})
	if err != nil {
		return err
	}
	fmt.Printf("Batch %d\n", resp.BatchID)
	return nil
}

func runSubmit(args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	url := fs.String("u", "http://localhost:8080", "Daemon URL")
	keyPath := fs.String("k", "", "Signing key file")
	batchID := fs.Uint64("b", 0, "Batch id")
	ciphertext := fs.String("c", "", "Hex-encoded encrypted score")
	fs.Parse(args)

	key, err := loadKey(*keyPath)
	if err != nil {
		return err
	}
	if *ciphertext == "" {
		return fmt.Errorf("-c is required")
	}

	_, err = postSigned(*url, "/submissions", key, &services.SubmitRequest{
		BatchID:    *batchID,
		Ciphertext: *ciphertext,
	})
	if err != nil {
		return err
	}
	fmt.Println("Submission accepted")
	return nil
}

func runReveal(args []string) error {
	fs := flag.NewFlagSet("reveal", flag.ExitOnError)
	url := fs.String("u", "http://localhost:8080", "Daemon URL")
	keyPath := fs.String("k", "", "Signing key file")
	batchID := fs.Uint64("b", 0, "Batch id")
	fs.Parse(args)

	key, err := loadKey(*keyPath)
	if err != nil {
		return err
	}

	resp, err := postSigned(*url, "/decryption-requests", key, &services.DecryptionRequest{
		BatchID: *batchID,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Decryption request %d issued; poll /requests/%d for the result\n",
		resp.RequestID, resp.RequestID)
	return nil
}

func runTargetKey(args []string, path string) error {
	fs := flag.NewFlagSet("target-key", flag.ExitOnError)
	url := fs.String("u", "http://localhost:8080", "Daemon URL")
	keyPath := fs.String("k", "", "Signing key file")
	target := fs.String("t", "", "Target public key (hex)")
	fs.Parse(args)

	key, err := loadKey(*keyPath)
	if err != nil {
		return err
	}
	if *target == "" {
		return fmt.Errorf("-t is required")
	}

	_, err = postSigned(*url, path, key, &services.TargetKeyRequest{TargetKey: *target})
	if err != nil {
		return err
	}
	fmt.Println("OK")
	return nil
}

func runPause(args []string, paused bool) error {
	fs := flag.NewFlagSet("pause", flag.ExitOnError)
	url := fs.String("u", "http://localhost:8080", "Daemon URL")
	keyPath := fs.String("k", "", "Signing key file")
	fs.Parse(args)

	key, err := loadKey(*keyPath)
	if err != nil {
		return err
	}

	_, err = postSigned(*url, "/admin/pause", key, &services.SetPausedRequest{Paused: paused})
	if err != nil {
		return err
	}
	fmt.Println("OK")
	return nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	url := fs.String("u", "http://localhost:8080", "Daemon URL")
	fs.Parse(args)

	resp, err := http.Get(*url + "/status")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var status services.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return err
	}

	fmt.Printf("Owner:    %s\n", status.Owner)
	fmt.Printf("Paused:   %v\n", status.Paused)
	fmt.Printf("Cooldown: %s\n", status.Cooldown)
	if status.CurrentBatchOpen {
		fmt.Printf("Batch:    %d (open)\n", status.CurrentBatchID)
	} else {
		fmt.Printf("Batch:    none open (next: %d)\n", status.CurrentBatchID)
	}
	return nil
}

func runEvents(args []string) error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	url := fs.String("u", "http://localhost:8080", "Daemon URL")
	after := fs.Uint64("after", 0, "Only events after this sequence number")
	fs.Parse(args)

	resp, err := http.Get(fmt.Sprintf("%s/events?after=%d", *url, *after))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var events services.EventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return err
	}

	for _, ev := range events.Events {
		line := fmt.Sprintf("%6d  %-24s", ev.Sequence, ev.Type)
		if ev.BatchID != 0 {
			line += fmt.Sprintf("  batch=%d", ev.BatchID)
		}
		if ev.RequestID != 0 {
			line += fmt.Sprintf("  request=%d", ev.RequestID)
		}
		if ev.Cleartext != nil {
			line += fmt.Sprintf("  sum=%d", *ev.Cleartext)
		}
		if ev.Actor != "" {
			line += fmt.Sprintf("  actor=%s", ev.Actor[:8])
		}
		fmt.Println(line)
	}
	return nil
}
