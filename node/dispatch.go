package node

import (
	"github.com/ledgerline/node/log"
	"github.com/ledgerline/node/p2p"
)

// dispatch routes one inbound frame to its handler by Type. Request/
// response replies are already intercepted by the Link before reaching
// here (see p2p.Link.deliverToWaiter), so everything that arrives at
// dispatch is either a pushed notification or an unsolicited request
// this node must answer.
func (n *Node) dispatch(link *p2p.Link, msg p2p.Message) {
	switch msg.Type {
	case p2p.TypePeerConnectionRequest:
		n.handlePeerConnectionRequest(link, msg)
	case p2p.TypePeerConnectionResponse:
		n.handlePeerConnectionResponse(msg)
	case p2p.TypeGenesisBlock:
		n.handleGenesisBlock(msg)
	case p2p.TypeBlockMined:
		n.handleBlockMined(msg)
	case p2p.TypeChainLengthRequest:
		n.handleChainLengthRequest(link, msg)
	case p2p.TypeChainLengthResponse:
		n.handleChainLengthResponse(msg)
	case p2p.TypeBlockHashesRequest:
		n.handleBlockHashesRequest(link, msg)
	case p2p.TypeGetBlocks:
		n.handleGetBlocks(link, msg)
	case p2p.TypeFullChainRequest:
		n.handleFullChainRequest(link, msg)
	case p2p.TypeMissingBlocksRequest:
		n.handleMissingBlocksRequest(link, msg)
	case p2p.TypeMissingBlocksResponse:
		n.handleMissingBlocksResponse(msg)
	default:
		log.Debug("node: ignoring frame with no handler", "type", msg.Type, "from", msg.From)
	}
}
