package node

import (
	"github.com/ledgerline/node/log"
	"github.com/ledgerline/node/miner"
	"github.com/ledgerline/node/p2p"
)

// onMined is the mining loop's success callback: append
// without re-validation, drop included transactions from the mempool,
// schedule the reward/balance side effects, and broadcast.
func (n *Node) onMined(result miner.Result) {
	n.mu.Lock()
	n.chain.AppendWithoutValidation(result.Block)
	if result.Block.Index == 0 {
		n.blockchainLocked.Store(false)
	}
	n.mu.Unlock()

	n.pool.RemoveMany(result.Transactions)
	n.scheduleRewardAndBalances(result.Block)

	links := n.peers.Links()
	mined := result.Block
	if mined.Index == 0 {
		p2p.Broadcast(links, p2p.Message{Type: p2p.TypeGenesisBlock, From: n.SelfAddress, GenesisBlock: &mined})
	} else {
		p2p.Broadcast(links, p2p.Message{Type: p2p.TypeBlockMined, From: n.SelfAddress, Block: &mined})
	}
	log.Info("node: mined block", "index", mined.Index, "hash", mined.Hash)
}
