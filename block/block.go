// Package block defines the chain's immutable unit of agreement and its
// proof-of-work contract: canonical serialization, hashing, and mining.
package block

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync/atomic"

	"github.com/ledgerline/node/tx"
)

// GenesisPreviousHash is the previous-block-hash sentinel for index 0.
const GenesisPreviousHash = "0"

// Block is a mined, immutable entry in the chain. Zero value is not a
// usable block; construct with Mine or decode one off the wire.
type Block struct {
	Index             uint64           `json:"index"`
	Timestamp         int64            `json:"timestamp"`
	Transactions      []tx.Transaction `json:"transactions"`
	MinerAddress      string           `json:"miner_address"`
	PreviousBlockHash string           `json:"previous_block_hash"`
	Nonce             uint64           `json:"nonce"`
	Difficulty        int              `json:"difficulty"`
	Hash              string           `json:"hash"`
}

// hashable is the fixed-field-order payload that gets SHA-256'd. Field
// order here is the wire contract: {index, timestamp, transactions,
// miner_address, previous_block_hash, nonce, difficulty}.
type hashable struct {
	Index             uint64           `json:"index"`
	Timestamp         int64            `json:"timestamp"`
	Transactions      []tx.Transaction `json:"transactions"`
	MinerAddress      string           `json:"miner_address"`
	PreviousBlockHash string           `json:"previous_block_hash"`
	Nonce             uint64           `json:"nonce"`
	Difficulty        int              `json:"difficulty"`
}

func (b *Block) canonicalJSON() ([]byte, error) {
	return json.Marshal(hashable{
		Index:             b.Index,
		Timestamp:         b.Timestamp,
		Transactions:      b.Transactions,
		MinerAddress:      b.MinerAddress,
		PreviousBlockHash: b.PreviousBlockHash,
		Nonce:             b.Nonce,
		Difficulty:        b.Difficulty,
	})
}

// Recompute returns the SHA-256 hash (lowercase hex) of the block's
// canonical serialization, independent of the Hash field already stored
// on it. Used both to mine and to validate.
func (b *Block) Recompute() (string, error) {
	payload, err := b.canonicalJSON()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// SatisfiesDifficulty reports whether hash has the required number of
// leading '0' hex characters.
func SatisfiesDifficulty(hash string, difficulty int) bool {
	if len(hash) < difficulty {
		return false
	}
	return hash[:difficulty] == strings.Repeat("0", difficulty)
}

// Valid reports whether the block's stored Hash matches its
// recomputation and satisfies its own difficulty. It does not check
// chain linkage; that is the chain store's job.
func (b *Block) Valid() bool {
	recomputed, err := b.Recompute()
	if err != nil {
		return false
	}
	return recomputed == b.Hash && SatisfiesDifficulty(b.Hash, b.Difficulty)
}

// Mine searches for a nonce starting at 0 that satisfies difficulty,
// checking enabled between attempts so a caller can cancel cooperatively.
// It returns the mined block and true on success, or a zero Block and
// false if enabled flips to false before a valid nonce is found.
func Mine(index uint64, timestamp int64, transactions []tx.Transaction, minerAddress, previousBlockHash string, difficulty int, enabled *atomic.Bool) (Block, bool) {
	b := Block{
		Index:             index,
		Timestamp:         timestamp,
		Transactions:      transactions,
		MinerAddress:      minerAddress,
		PreviousBlockHash: previousBlockHash,
		Difficulty:        difficulty,
	}
	for nonce := uint64(0); ; nonce++ {
		if nonce%4096 == 0 && !enabled.Load() {
			return Block{}, false
		}
		b.Nonce = nonce
		hash, err := b.Recompute()
		if err != nil {
			return Block{}, false
		}
		if SatisfiesDifficulty(hash, difficulty) {
			b.Hash = hash
			return b, true
		}
	}
}

// Equal compares two blocks by their wire representation.
func Equal(a, b Block) bool {
	aj, err1 := json.Marshal(a)
	bj, err2 := json.Marshal(b)
	if err1 != nil || err2 != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}
