package node

import (
	"github.com/ledgerline/node/block"
	"github.com/ledgerline/node/log"
	"github.com/ledgerline/node/p2p"
)

// maybeTriggerOrphanHealing implements the orphan-healing path: once 5
// orphans have accumulated, ask every peer for the gap's missing
// indexes. This heals gaps; it never replaces a chain prefix.
func (n *Node) maybeTriggerOrphanHealing() {
	n.mu.Lock()
	if len(n.chain.OrphanBlocks) < orphanTriggerThreshold {
		n.mu.Unlock()
		return
	}
	missing := n.chain.MissingIndexesForOrphans()
	links := n.peers.Links()
	n.mu.Unlock()

	if len(missing) == 0 {
		return
	}
	log.Info("node: requesting missing blocks", "indexes", missing)
	p2p.Broadcast(links, p2p.Message{Type: p2p.TypeMissingBlocksRequest, From: n.SelfAddress, Indexes: missing})
}

// handleMissingBlocksRequest replies only if this node actually holds
// any of the requested indexes; otherwise it stays silent and lets the
// requester's own retry/timeout cadence govern progress.
func (n *Node) handleMissingBlocksRequest(link *p2p.Link, msg p2p.Message) {
	wanted := make(map[uint64]bool, len(msg.Indexes))
	for _, idx := range msg.Indexes {
		wanted[idx] = true
	}
	n.mu.Lock()
	var found []block.Block
	for _, b := range n.chain.Chain {
		if wanted[b.Index] {
			found = append(found, b)
		}
	}
	n.mu.Unlock()
	if len(found) == 0 {
		return
	}
	if err := link.Send(p2p.Message{Type: p2p.TypeMissingBlocksResponse, From: n.SelfAddress, Blocks: found}); err != nil {
		log.Warn("node: failed to reply with missing blocks", "peer", msg.From, "error", err)
	}
}

// handleMissingBlocksResponse inserts any block whose index isn't yet
// present, re-sorts the chain, absorbs any orphans that are now
// contiguous, and re-enables mining.
func (n *Node) handleMissingBlocksResponse(msg p2p.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.chain.InsertMissingAndSort(msg.Blocks)
	n.chain.AbsorbOrphans()
	n.miningEnabled.Store(true)
}
