package node

import (
	"github.com/ledgerline/node/block"
	"github.com/ledgerline/node/metrics"
	"github.com/ledgerline/node/p2p"
	"github.com/ledgerline/node/store"
)

// handleGenesisBlock is the new-node catch-up entry point: the
// first GenesisBlock received unlocks the chain and replays anything
// that arrived early into pending_blocks.
func (n *Node) handleGenesisBlock(msg p2p.Message) {
	if msg.GenesisBlock == nil {
		return
	}
	n.mu.Lock()
	if len(n.chain.Chain) != 0 {
		n.mu.Unlock()
		return
	}
	n.chain.AppendWithoutValidation(*msg.GenesisBlock)
	n.blockchainLocked.Store(false)
	n.miningEnabled.Store(true)
	pending := n.chain.PendingBlocks
	n.chain.PendingBlocks = nil
	n.mu.Unlock()

	n.scheduleRewardAndBalances(*msg.GenesisBlock)
	for _, b := range pending {
		n.receiveBlock(b)
	}
}

// handleBlockMined routes an inbound mined block either into
// pending_blocks (while the chain is still locked) or through
// classification.
func (n *Node) handleBlockMined(msg p2p.Message) {
	if msg.Block == nil {
		return
	}
	if n.blockchainLocked.Load() {
		n.mu.Lock()
		n.chain.PendingBlocks = append(n.chain.PendingBlocks, *msg.Block)
		n.mu.Unlock()
		return
	}
	n.receiveBlock(*msg.Block)
}

// receiveBlock is the receive pipeline: classify, apply the
// classification's effect, and trigger reconciliation when a threshold
// is crossed.
func (n *Node) receiveBlock(b block.Block) {
	n.mu.Lock()
	classification := n.chain.Accept(b)
	if classification == store.Valid {
		n.chain.AbsorbOrphans()
	}
	n.mu.Unlock()

	switch classification {
	case store.Valid:
		n.pool.RemoveMany(b.Transactions)
		n.scheduleRewardAndBalances(b)
	case store.Fork:
		metrics.ForksObserved.Inc()
		n.maybeTriggerForkResolution()
	case store.Orphan:
		metrics.OrphansObserved.Inc()
		n.maybeTriggerOrphanHealing()
	case store.Invalid:
		// discarded; never surfaced to the caller
	}
}
