// Package tx defines the signed value-transfer transaction and its
// canonical hashing / signature verification contract.
package tx

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Transaction is a value transfer from the holder of SenderPublicKey to
// RecipientAddress. All fields are comparable so a Transaction can sit in
// a mempool set keyed by value rather than by a derived id.
type Transaction struct {
	SenderPublicKey  string `json:"sender_public_key"`
	RecipientAddress string `json:"recipient_address"`
	Amount           uint64 `json:"amount"`
	Timestamp        int64  `json:"timestamp"`
	ID               string `json:"id"`
	Signature        string `json:"signature"`
}

// hashable is the payload Hash covers: id and signature are excluded.
// VerifySignature checks Signature against this hash and does not compare
// it with ID. A block's hash covers the full Transaction, id and
// signature included.
type hashable struct {
	SenderPublicKey  string `json:"sender_public_key"`
	RecipientAddress string `json:"recipient_address"`
	Amount           uint64 `json:"amount"`
	Timestamp        int64  `json:"timestamp"`
}

// Hash returns the SHA-256 (lowercase hex) of the transaction's
// canonical fields, excluding id and signature.
func (t Transaction) Hash() (string, error) {
	payload, err := json.Marshal(hashable{
		SenderPublicKey:  t.SenderPublicKey,
		RecipientAddress: t.RecipientAddress,
		Amount:           t.Amount,
		Timestamp:        t.Timestamp,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

var (
	ErrMalformedSignature = errors.New("tx: malformed signature")
	ErrMalformedPublicKey = errors.New("tx: malformed sender public key")
)

// VerifySignature checks that Signature is a valid ECDSA/secp256k1
// signature over Hash(), produced by the private key matching
// SenderPublicKey.
func (t Transaction) VerifySignature() (bool, error) {
	digest, err := t.Hash()
	if err != nil {
		return false, err
	}
	digestBytes, err := hex.DecodeString(digest)
	if err != nil {
		return false, err
	}
	pubKeyBytes, err := hex.DecodeString(t.SenderPublicKey)
	if err != nil {
		return false, ErrMalformedPublicKey
	}
	pubKey, err := secp256k1.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false, ErrMalformedPublicKey
	}
	sigBytes, err := hex.DecodeString(t.Signature)
	if err != nil {
		return false, ErrMalformedSignature
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false, ErrMalformedSignature
	}
	return sig.Verify(digestBytes, pubKey), nil
}
