package core

// Wallet implementation for the node's transaction cryptography.
//
// Features
// --------
//   * Ed25519 key-pairs only.
//   * Address derivation: "0x" + first 40 hex chars of SHA-256(public key).
//   * BIP-39 mnemonic backup/restore layered on top of the plain keypair API.
//   * logrus logging, no placeholders.
//
// Import hygiene: wallet depends only on common + crypto/log libraries. It
// does not import chain, vm or network to stay at the lowest tier.

import (
	"crypto/ed25519"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	bip39 "github.com/tyler-smith/go-bip39"
)

func SetWalletLogger(l *log.Logger) { walletLogger = l }

var walletLogger = log.New()

// Wallet holds an Ed25519 keypair and its derived address.
type Wallet struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
	Addr    Address
}

// pubKeyToAddress derives the spec address scheme: "0x" + first 40 hex chars
// of SHA-256(pubkey). No RIPEMD-160 step and no HD derivation are involved.
func pubKeyToAddress(pub ed25519.PublicKey) Address {
	sum := sha256.Sum256(pub)
	return Address("0x" + hex.EncodeToString(sum[:])[:40])
}

// NewWallet samples a fresh Ed25519 keypair (spec §4.2 new_wallet()).
func NewWallet() (*Wallet, error) {
	pub, priv, err := ed25519.GenerateKey(crand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	w := &Wallet{Private: priv, Public: pub, Addr: pubKeyToAddress(pub)}
	walletLogger.WithField("address", string(w.Addr)).Info("wallet: new keypair generated")
	return w, nil
}

// NewWalletFromMnemonic restores a wallet deterministically from a BIP-39
// recovery phrase. This is a supplement to new_wallet(), not a replacement:
// the spec's required API samples random entropy directly.
func NewWalletFromMnemonic(mnemonic, passphrase string) (*Wallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid mnemonic checksum")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	if len(seed) < ed25519.SeedSize {
		return nil, errors.New("derived seed too short")
	}
	priv := ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])
	pub := priv.Public().(ed25519.PublicKey)
	w := &Wallet{Private: priv, Public: pub, Addr: pubKeyToAddress(pub)}
	walletLogger.WithField("address", string(w.Addr)).Info("wallet: restored from mnemonic")
	return w, nil
}

// NewMnemonic generates a fresh 128-bit-entropy BIP-39 phrase, for callers
// that want a human-recoverable backup in addition to the raw keypair.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", fmt.Errorf("entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// Sign signs tx's canonical hash and attaches (signature, public key).
// Spec §4.2 sign(tx, private_key).
func (w *Wallet) Sign(tx *Transaction) error {
	if tx == nil {
		return errors.New("nil transaction")
	}
	h := tx.CanonicalHash()
	tx.Signature = ed25519.Sign(w.Private, h[:])
	tx.PublicKey = append([]byte(nil), w.Public...)
	walletLogger.WithFields(log.Fields{"tx": tx.ID, "sender": string(w.Addr)}).Debug("wallet: signed transaction")
	return nil
}

// Verify checks tx's signature and sender/pubkey binding. System
// transactions (sender == "system") skip both checks (spec §4.2).
func Verify(tx *Transaction) error {
	if tx.Sender == SystemSender {
		return nil
	}
	if len(tx.Signature) != ed25519.SignatureSize || len(tx.PublicKey) != ed25519.PublicKeySize {
		return newErr(ErrInvalidSignature, "missing or malformed signature", nil)
	}
	h := tx.CanonicalHash()
	if !ed25519.Verify(tx.PublicKey, h[:], tx.Signature) {
		return newErr(ErrInvalidSignature, "signature verification failed", nil)
	}
	if pubKeyToAddress(tx.PublicKey) != Address(tx.Sender) {
		return newErr(ErrAddressMismatch, "public key does not hash to sender", nil)
	}
	return nil
}

// Wipe zeroes a byte slice in-place (best-effort, the GC may retain copies).
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
