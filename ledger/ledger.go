// Package ledger defines the abstract balance/reward bookkeeping
// interface the core consumes, plus two concrete implementations:
// an in-memory one for tests and a goleveldb-backed one for a running
// node. The core never depends on the concrete type, only on Ledger.
package ledger

import (
	"errors"

	"github.com/holiman/uint256"
)

// ErrNotFound is returned by lookups that find nothing: an unknown
// address or a block hash with no recorded reward.
var ErrNotFound = errors.New("ledger: not found")

// MiningReward records that recipient may claim Amount once the chain
// reaches BlockUnlockedAt, keyed by the hash of the block that earned
// it. Keying by hash, not index, makes reward application idempotent
// across receive-then-splice.
type MiningReward struct {
	BlockHash       string
	Recipient       string
	Amount          *uint256.Int
	BlockUnlockedAt uint64
}

// Ledger is the operations interface the core consumes. Implementations
// must make UpsertBalanceDelta and SaveMiningReward safe to call
// concurrently from multiple goroutines (the node applies balance
// updates and reward bookkeeping as fire-and-forget background work).
type Ledger interface {
	GetBalance(address string) (*uint256.Int, error)
	UpdateBalance(address string, delta *uint256.Int, negative bool) error
	UpsertBalanceDelta(address string, delta *uint256.Int, negative bool) error
	SaveMiningReward(reward MiningReward) error
	GetMiningRewardAt(blockHash string) (MiningReward, error)
	Close() error
}
