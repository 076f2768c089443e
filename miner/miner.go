// Package miner runs the proof-of-work search loop: snapshot the chain
// tip and mempool, search for a satisfying nonce off the calling
// goroutine's critical section, and hand the result back via a
// callback. It knows nothing about peers, forks or the node mutex —
// those are the node package's job — which is what lets the CPU-bound
// search run without holding any lock.
package miner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ledgerline/node/block"
	"github.com/ledgerline/node/metrics"
	"github.com/ledgerline/node/tx"
)

// ChainView is the minimal read-only view of the chain the miner needs
// to build a candidate block.
type ChainView interface {
	// TipForMining returns the current tip hash (GenesisPreviousHash if
	// the chain is empty) and the index the next block must use.
	TipForMining() (previousHash string, nextIndex uint64)
}

// MempoolView is the minimal read-only view of the mempool the miner
// needs.
type MempoolView interface {
	Snapshot() []tx.Transaction
}

// Result is delivered to OnMined once a nonce search succeeds.
type Result struct {
	Block        block.Block
	Transactions []tx.Transaction
}

// Loop owns the long-running mining goroutine for one node.
type Loop struct {
	Enabled      *atomic.Bool
	MinerAddress string
	Difficulty   int
	Chain        ChainView
	Mempool      MempoolView
	OnMined      func(Result)

	// IdlePoll is how long the loop sleeps between checks while mining
	// is disabled.
	IdlePoll time.Duration
}

// Run blocks until ctx is done, repeatedly snapshotting the chain tip
// and mempool, searching for a nonce, and handing a mined block to
// OnMined, or abandoning the search if Enabled flips false mid-search.
func (l *Loop) Run(ctx context.Context) {
	idle := l.IdlePoll
	if idle <= 0 {
		idle = 200 * time.Millisecond
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !l.Enabled.Load() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idle):
			}
			continue
		}

		previousHash, nextIndex := l.Chain.TipForMining()
		txs := l.Mempool.Snapshot()

		mined, ok := block.Mine(nextIndex, time.Now().Unix(), txs, l.MinerAddress, previousHash, l.Difficulty, l.Enabled)
		if !ok {
			// Abandoned: mining was disabled mid-search. The node
			// decides, via Enabled, whether to re-arm; we just loop
			// back and re-check.
			continue
		}

		metrics.BlocksMined.Inc()
		l.OnMined(Result{Block: mined, Transactions: txs})
	}
}
