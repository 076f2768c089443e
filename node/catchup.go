package node

import (
	"context"
	"time"

	"github.com/ledgerline/node/block"
	"github.com/ledgerline/node/log"
	"github.com/ledgerline/node/p2p"
)

// AwaitGenesisOrFullChain implements the late-joiner fallback: if
// genesis hasn't arrived after genesisWaitAttempts tries at
// genesisWaitInterval each, fall back to a FullChainRequest against the
// bootstrap peer.
func (n *Node) AwaitGenesisOrFullChain(bootstrapAddress string) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for i := 0; i < genesisWaitAttempts; i++ {
			if !n.blockchainLocked.Load() {
				return
			}
			select {
			case <-n.ctx.Done():
				return
			case <-time.After(genesisWaitInterval):
			}
		}
		if !n.blockchainLocked.Load() {
			return
		}
		n.fullChainCatchUp(bootstrapAddress)
	}()
}

func (n *Node) fullChainCatchUp(bootstrapAddress string) {
	link, ok := n.peers.Get(bootstrapAddress)
	if !ok {
		log.Warn("node: no link to bootstrap peer for full-chain catch-up", "peer", bootstrapAddress)
		return
	}
	ctx, cancel := context.WithTimeout(n.ctx, n.requestTimeout)
	defer cancel()
	reply, err := link.SendExpectResponse(ctx, p2p.Message{Type: p2p.TypeFullChainRequest, From: n.SelfAddress})
	if err != nil {
		log.Warn("node: full-chain request failed", "peer", bootstrapAddress, "error", err)
		return
	}

	n.mu.Lock()
	n.chain.Chain = reply.Blocks
	pending := n.chain.PendingBlocks
	n.chain.PendingBlocks = nil
	n.blockchainLocked.Store(false)
	n.miningEnabled.Store(true)
	n.mu.Unlock()

	for _, b := range orderedByExtension(n.chain.Chain, pending) {
		n.receiveBlock(b)
	}
}

// orderedByExtension returns only the pending blocks that, applied in
// index order, each extend the chain by exactly one, matching the
// "appended in order" rule for pending blocks left over from before the
// full chain arrived.
func orderedByExtension(chain []block.Block, pending []block.Block) []block.Block {
	nextIndex := uint64(0)
	if len(chain) > 0 {
		nextIndex = chain[len(chain)-1].Index + 1
	}
	byIndex := make(map[uint64]block.Block, len(pending))
	for _, b := range pending {
		byIndex[b.Index] = b
	}
	var ordered []block.Block
	for {
		b, ok := byIndex[nextIndex]
		if !ok {
			break
		}
		ordered = append(ordered, b)
		nextIndex++
	}
	return ordered
}

func (n *Node) handleFullChainRequest(link *p2p.Link, msg p2p.Message) {
	n.mu.Lock()
	blocksCopy := append([]block.Block(nil), n.chain.Chain...)
	n.mu.Unlock()
	if err := link.Reply(msg, p2p.Message{Type: p2p.TypeFullChainResponse, From: n.SelfAddress, Blocks: blocksCopy}); err != nil {
		log.Warn("node: failed to reply with full chain", "peer", msg.From, "error", err)
	}
}
