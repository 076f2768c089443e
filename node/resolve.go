package node

import (
	"context"
	"time"

	"github.com/ledgerline/node/block"
	"github.com/ledgerline/node/log"
	"github.com/ledgerline/node/metrics"
	"github.com/ledgerline/node/p2p"
)

// maybeTriggerForkResolution implements the trigger and length phase of
// fork resolution. It is safe to call on every Fork classification: the
// invalid-blocks threshold and the in-flight guard make repeated calls a
// no-op once a resolution is already running.
func (n *Node) maybeTriggerForkResolution() {
	n.mu.Lock()
	if n.resolutionInFlight || len(n.chain.InvalidBlocks) < forkTriggerThreshold {
		n.mu.Unlock()
		return
	}
	n.resolutionInFlight = true
	n.resolutionGen++
	gen := n.resolutionGen
	n.lengthResponses = make(map[string]uint64)
	n.maxPeerChainLength = nil
	n.miningEnabled.Store(false)
	links := n.peers.Links()
	n.mu.Unlock()

	metrics.ResolutionsTriggered.Inc()
	log.Info("node: fork resolution triggered", "invalid_blocks", forkTriggerThreshold, "peers", len(links))
	p2p.Broadcast(links, p2p.Message{Type: p2p.TypeChainLengthRequest, From: n.SelfAddress})

	go func() {
		select {
		case <-time.After(lengthPhaseTimeout):
		case <-n.ctx.Done():
			return
		}
		n.afterLengthPhase(gen)
	}()
}

func (n *Node) handleChainLengthRequest(link *p2p.Link, msg p2p.Message) {
	reply := p2p.Message{Type: p2p.TypeChainLengthResponse, From: n.SelfAddress, Length: uint64(n.ChainLen())}
	if err := link.Send(reply); err != nil {
		log.Warn("node: failed to reply to chain length request", "peer", msg.From, "error", err)
	}
}

func (n *Node) handleChainLengthResponse(msg p2p.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.resolutionInFlight {
		return // late response for a resolution that already concluded
	}
	n.lengthResponses[msg.From] = msg.Length
	if n.maxPeerChainLength == nil || msg.Length > n.maxPeerChainLength.Length {
		n.maxPeerChainLength = &maxPeerChainLength{PeerAddress: msg.From, Length: msg.Length}
	}
}

// afterLengthPhase runs once the 10-second length-wait timer fires. If no
// peer claimed a longer chain, mining resumes; otherwise it advances to
// the hash-overlap phase against the winning peer.
func (n *Node) afterLengthPhase(gen uint64) {
	n.mu.Lock()
	if n.resolutionGen != gen {
		n.mu.Unlock()
		return // a later resolution has already superseded this timer
	}
	ownLen := len(n.chain.Chain)
	winner := n.maxPeerChainLength
	n.mu.Unlock()

	if winner == nil || int(winner.Length) <= ownLen {
		n.abandonResolution(gen)
		return
	}

	n.mu.Lock()
	hashes := n.chain.HashesTipFirst()
	n.mu.Unlock()

	link, ok := n.peers.Get(winner.PeerAddress)
	if !ok {
		n.abandonResolution(gen)
		return
	}

	ctx, cancel := context.WithTimeout(n.ctx, n.requestTimeout)
	defer cancel()
	reply, err := link.SendExpectResponse(ctx, p2p.Message{Type: p2p.TypeBlockHashesRequest, From: n.SelfAddress, Hashes: hashes})
	if err != nil {
		log.Warn("node: hash-overlap request failed", "peer", winner.PeerAddress, "error", err)
		n.abandonResolution(gen)
		return
	}
	n.continueFetchPhase(gen, winner.PeerAddress, reply)
}

// handleBlockHashesRequest is the recipient side of the hash-overlap
// phase: scan for the first hash we know and reply with everything from
// there to our own tip, inclusive of the common hash. No response is
// sent when nothing overlaps.
func (n *Node) handleBlockHashesRequest(link *p2p.Link, msg p2p.Message) {
	n.mu.Lock()
	commonIndex := -1
	for _, h := range msg.Hashes {
		if idx, ok := n.chain.IndexOfHash(h); ok {
			commonIndex = idx
			break
		}
	}
	var hashes []string
	if commonIndex >= 0 {
		hashes = make([]string, 0, len(n.chain.Chain)-commonIndex)
		for i := commonIndex; i < len(n.chain.Chain); i++ {
			hashes = append(hashes, n.chain.Chain[i].Hash)
		}
	}
	n.mu.Unlock()

	if commonIndex < 0 {
		return
	}
	if err := link.Reply(msg, p2p.Message{
		Type:        p2p.TypeBlockHashesResponse,
		From:        n.SelfAddress,
		Hashes:      hashes,
		CommonIndex: commonIndex,
	}); err != nil {
		log.Warn("node: failed to reply with block hashes", "peer", msg.From, "error", err)
	}
}

// continueFetchPhase implements the fetch phase: verify the reply came
// from the peer we asked, satisfy what we can from invalid_blocks, and
// request the remainder via GetBlocks.
func (n *Node) continueFetchPhase(gen uint64, expectedFrom string, reply p2p.Message) {
	if reply.From != expectedFrom {
		log.Warn("node: fork resolution reply from unexpected peer, discarding", "expected", expectedFrom, "got", reply.From)
		n.abandonResolution(gen)
		return
	}
	if len(reply.Hashes) == 0 {
		n.abandonResolution(gen)
		return
	}

	n.mu.Lock()
	var localAtCommon string
	if reply.CommonIndex >= 0 && reply.CommonIndex < len(n.chain.Chain) {
		localAtCommon = n.chain.Chain[reply.CommonIndex].Hash
	}
	n.mu.Unlock()
	// The first hash is the peer's chain[common_index], which both ends
	// must agree on; a mismatch means the negotiation went stale.
	if localAtCommon == "" || reply.Hashes[0] != localAtCommon {
		log.Warn("node: common hash mismatch in fork resolution, abandoning", "peer", expectedFrom, "common_index", reply.CommonIndex)
		n.abandonResolution(gen)
		return
	}
	remaining := reply.Hashes[1:]

	n.mu.Lock()
	byHash := make(map[string]block.Block, len(n.chain.InvalidBlocks))
	for _, b := range n.chain.InvalidBlocks {
		byHash[b.Hash] = b
	}
	n.mu.Unlock()

	var locallyHeld []block.Block
	var need []string
	for _, h := range remaining {
		if b, ok := byHash[h]; ok {
			locallyHeld = append(locallyHeld, b)
		} else {
			need = append(need, h)
		}
	}

	fetched := locallyHeld
	if len(need) > 0 {
		link, ok := n.peers.Get(expectedFrom)
		if !ok {
			n.abandonResolution(gen)
			return
		}
		ctx, cancel := context.WithTimeout(n.ctx, n.requestTimeout)
		defer cancel()
		blockList, err := link.SendExpectResponse(ctx, p2p.Message{Type: p2p.TypeGetBlocks, From: n.SelfAddress, Hashes: need})
		if err != nil {
			log.Warn("node: fork resolution block fetch failed", "peer", expectedFrom, "error", err)
			n.abandonResolution(gen)
			return
		}
		fetched = append(fetched, blockList.Blocks...)
	}

	n.spliceResolution(gen, reply.CommonIndex, fetched)
}

func (n *Node) handleGetBlocks(link *p2p.Link, msg p2p.Message) {
	wanted := make(map[string]bool, len(msg.Hashes))
	for _, h := range msg.Hashes {
		wanted[h] = true
	}
	n.mu.Lock()
	var found []block.Block
	for _, b := range n.chain.Chain {
		if wanted[b.Hash] {
			found = append(found, b)
		}
	}
	for _, b := range n.chain.InvalidBlocks {
		if wanted[b.Hash] {
			found = append(found, b)
		}
	}
	n.mu.Unlock()
	if err := link.Reply(msg, p2p.Message{Type: p2p.TypeBlockList, From: n.SelfAddress, Blocks: found}); err != nil {
		log.Warn("node: failed to reply with block list", "peer", msg.From, "error", err)
	}
}

// spliceResolution replaces Chain from commonIndex+1 onward and
// re-arms mining.
func (n *Node) spliceResolution(gen uint64, commonIndex int, candidates []block.Block) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.resolutionGen != gen {
		return
	}
	n.chain.SpliceFrom(commonIndex, candidates)
	n.resolutionInFlight = false
	n.maxPeerChainLength = nil
	n.miningEnabled.Store(true)
	log.Info("node: fork resolution spliced", "new_length", len(n.chain.Chain))
}

// abandonResolution clears resolution state and re-enables mining
// without touching the chain, used for every fork-resolution failure
// path.
func (n *Node) abandonResolution(gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.resolutionGen != gen {
		return
	}
	n.resolutionInFlight = false
	n.maxPeerChainLength = nil
	n.miningEnabled.Store(true)
}
