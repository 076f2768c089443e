// Package wallet implements the signing primitives the node consumes at
// arm's length: secp256k1 key generation, address derivation and
// transaction signing.
package wallet

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/ripemd160" //lint:ignore SA1019 deliberate: bitcoin-style hash160 needs this exact digest

	"github.com/ledgerline/node/tx"
)

// Wallet holds a secp256k1 keypair and derives the node's address from
// it. The zero value is not usable; build with New or Load.
type Wallet struct {
	priv *secp256k1.PrivateKey
}

// New generates a fresh keypair.
func New() (*Wallet, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("wallet: generate key: %w", err)
	}
	return &Wallet{priv: priv}, nil
}

// Load reconstructs a Wallet from a hex-encoded private key scalar, used
// to keep a stable node address across a process restart within a test
// or a single run.
func Load(hexKey string) (*Wallet, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("wallet: decode key: %w", err)
	}
	priv := secp256k1.PrivKeyFromBytes(raw)
	return &Wallet{priv: priv}, nil
}

// PrivateKeyHex exposes the raw scalar for persistence between restarts.
// Never logged.
func (w *Wallet) PrivateKeyHex() string {
	return hex.EncodeToString(w.priv.Serialize())
}

// PublicKeyHex returns the hex-encoded compressed public key, the form
// transactions carry as sender_public_key.
func (w *Wallet) PublicKeyHex() string {
	return hex.EncodeToString(w.priv.PubKey().SerializeCompressed())
}

// Address derives the miner/recipient address: RIPEMD-160(SHA-256(pubkey)).
func Address(publicKeyHex string) (string, error) {
	pubKeyBytes, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return "", fmt.Errorf("wallet: decode public key: %w", err)
	}
	sha := sha256.Sum256(pubKeyBytes)
	ripe := ripemd160.New()
	if _, err := ripe.Write(sha[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(ripe.Sum(nil)), nil
}

// Address returns this wallet's own address.
func (w *Wallet) Address() (string, error) {
	return Address(w.PublicKeyHex())
}

// SignTransaction sets SenderPublicKey to this wallet's key and fills in
// ID and Signature, signing the SHA-256 digest of the transaction's
// canonical fields.
func (w *Wallet) SignTransaction(t tx.Transaction) (tx.Transaction, error) {
	t.SenderPublicKey = w.PublicKeyHex()
	digest, err := t.Hash()
	if err != nil {
		return tx.Transaction{}, err
	}
	digestBytes, err := hex.DecodeString(digest)
	if err != nil {
		return tx.Transaction{}, err
	}
	sig := ecdsa.Sign(w.priv, digestBytes)
	t.ID = digest
	t.Signature = hex.EncodeToString(sig.Serialize())
	return t, nil
}

// MarshalIdentity renders the wallet's public identity (never the
// private key) for logging/debugging.
func (w *Wallet) MarshalIdentity() (string, error) {
	addr, err := w.Address()
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(struct {
		PublicKey string `json:"public_key"`
		Address   string `json:"address"`
	}{PublicKey: w.PublicKeyHex(), Address: addr})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
