// Package p2p implements the peer wire protocol: one JSON object per
// line over a reliable byte stream, framed messages tagged by type, and
// the request/response pattern a handful of fork-resolution exchanges
// need on top of that push-style transport.
package p2p

import "github.com/ledgerline/node/block"

// Message types exchanged between peers.
const (
	TypePeerConnectionRequest  = "PeerConnectionRequest"
	TypePeerConnectionResponse = "PeerConnectionResponse"
	TypeGenesisBlock           = "GenesisBlock"
	TypeBlockMined             = "BlockMined"
	TypeChainLengthRequest     = "ChainLengthRequest"
	TypeChainLengthResponse    = "ChainLengthResponse"
	TypeBlockHashesRequest     = "BlockHashesRequest"
	TypeBlockHashesResponse    = "BlockHashesResponse"
	TypeGetBlocks              = "GetBlocks"
	TypeBlockList              = "BlockList"
	TypeFullChainRequest       = "FullChainRequest"
	TypeFullChainResponse      = "FullChainResponse"
	TypeMissingBlocksRequest   = "MissingBlocksRequest"
	TypeMissingBlocksResponse  = "MissingBlocksResponse"
)

// Message is the single envelope every wire frame unmarshals into. Only
// the fields relevant to Type are populated; the rest are zero and
// omitted on the wire. CorrelationID is ledgerline's own addition, used
// to match a synchronous reply to its waiter without blocking the rest
// of the link.
type Message struct {
	Type          string `json:"type"`
	From          string `json:"from"`
	CorrelationID string `json:"correlation_id,omitempty"`

	KnownAddresses []string      `json:"known_addresses,omitempty"`
	GenesisBlock   *block.Block  `json:"genesis_block,omitempty"`
	Block          *block.Block  `json:"block,omitempty"`
	Length         uint64        `json:"length,omitempty"`
	Hashes         []string      `json:"hashes,omitempty"`
	CommonIndex    int           `json:"common_index,omitempty"`
	Blocks         []block.Block `json:"blocks,omitempty"`
	Indexes        []uint64      `json:"indexes,omitempty"`
}
