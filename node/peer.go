package node

import (
	"net"
	"time"

	"github.com/ledgerline/node/block"
	"github.com/ledgerline/node/log"
	"github.com/ledgerline/node/metrics"
	"github.com/ledgerline/node/p2p"
)

// handleInbound wraps a freshly accepted connection in a Link. The
// peer's address isn't known until its first message (every message
// carries `from`), so the link is registered in the peer table lazily,
// the first time dispatch sees a From we don't already know.
func (n *Node) handleInbound(conn net.Conn) {
	link := p2p.NewLink("", conn)
	link.Serve(func(msg p2p.Message) {
		n.ensurePeerRegistered(msg.From, link)
		n.dispatch(link, msg)
	})
}

// ensurePeerRegistered adds link to the peer table under address the
// first time it's seen, skipping self.
func (n *Node) ensurePeerRegistered(address string, link *p2p.Link) {
	if address == "" || n.peerSelfCheck(address) {
		return
	}
	link.PeerAddress = address
	if n.peers.Put(address, link) {
		metrics.PeersConnected.Inc()
		log.Info("node: peer registered", "peer", address)
	}
}

// Dial connects to address, registers the resulting link, and returns it.
// Duplicate concurrent dials to the same address are suppressed before
// the TCP connect attempt; a dial to an address already in the peer
// table is a no-op.
func (n *Node) Dial(address string) (*p2p.Link, error) {
	if n.peerSelfCheck(address) || n.peers.Has(address) {
		return nil, nil
	}
	if !n.dialing.Add(address) {
		return nil, nil
	}
	defer n.dialing.Remove(address)

	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, err
	}
	link := p2p.NewLink(address, conn)
	link.Serve(func(msg p2p.Message) {
		n.ensurePeerRegistered(msg.From, link)
		n.dispatch(link, msg)
	})
	if n.peers.Put(address, link) {
		metrics.PeersConnected.Inc()
		log.Info("node: dialed peer", "peer", address)
	}
	return link, nil
}

// DialWithRetry retries Dial with a fixed backoff indefinitely, used
// only for the initial bootstrap peer.
func (n *Node) DialWithRetry(address string) *p2p.Link {
	for {
		link, err := n.Dial(address)
		if err == nil && link != nil {
			return link
		}
		if err == nil && link == nil {
			// already connected or self; nothing to retry
			return nil
		}
		log.Warn("node: bootstrap dial failed, retrying", "peer", address, "error", err)
		select {
		case <-n.ctx.Done():
			return nil
		case <-time.After(reconnectBackoff):
		}
	}
}

// Bootstrap performs the peer-discovery handshake: dial the
// bootstrap peer, announce ourselves, then dial every address it tells
// us about.
func (n *Node) Bootstrap(bootstrapAddress string) {
	link := n.DialWithRetry(bootstrapAddress)
	if link == nil {
		return
	}
	if err := link.Send(p2p.Message{Type: p2p.TypePeerConnectionRequest, From: n.SelfAddress}); err != nil {
		log.Warn("node: failed to send connection request", "peer", bootstrapAddress, "error", err)
	}
}

// handlePeerConnectionRequest implements the recipient side: dial
// the requester back (establishing the reverse half) and reply with our
// current peer set.
func (n *Node) handlePeerConnectionRequest(link *p2p.Link, msg p2p.Message) {
	if msg.From != "" && !n.peerSelfCheck(msg.From) {
		if _, err := n.Dial(msg.From); err != nil {
			log.Warn("node: failed to dial back connection requester", "peer", msg.From, "error", err)
		}
	}
	known := n.peers.Addresses()
	if err := link.Reply(msg, p2p.Message{
		Type:           p2p.TypePeerConnectionResponse,
		From:           n.SelfAddress,
		KnownAddresses: known,
	}); err != nil {
		log.Warn("node: failed to reply to connection request", "peer", msg.From, "error", err)
	}

	if !n.blockchainLocked.Load() {
		n.sendGenesis(link)
	}
}

func (n *Node) sendGenesis(link *p2p.Link) {
	n.mu.Lock()
	var genesis block.Block
	ok := len(n.chain.Chain) > 0
	if ok {
		genesis = n.chain.Chain[0]
	}
	n.mu.Unlock()
	if !ok {
		return
	}
	if err := link.Send(p2p.Message{Type: p2p.TypeGenesisBlock, From: n.SelfAddress, GenesisBlock: &genesis}); err != nil {
		log.Warn("node: failed to send genesis to new peer", "peer", link.PeerAddress, "error", err)
	}
}

// handlePeerConnectionResponse implements the requester side: dial every
// known address we don't already have, skipping self, and announce
// ourselves on each new link so the remote end registers us in turn.
func (n *Node) handlePeerConnectionResponse(msg p2p.Message) {
	for _, addr := range msg.KnownAddresses {
		if n.peerSelfCheck(addr) || n.peers.Has(addr) {
			continue
		}
		link, err := n.Dial(addr)
		if err != nil {
			log.Warn("node: transitive dial failed", "peer", addr, "error", err)
			continue
		}
		if link == nil {
			continue
		}
		if err := link.Send(p2p.Message{Type: p2p.TypePeerConnectionRequest, From: n.SelfAddress}); err != nil {
			log.Warn("node: failed to announce to transitive peer", "peer", addr, "error", err)
		}
	}
}
