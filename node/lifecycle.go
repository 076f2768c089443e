package node

// Open starts this node as the chain's opener: genesis doesn't need to
// be fetched, so mining is enabled immediately and the regular mining
// loop mines block 0 itself (an empty chain always classifies as Valid,
// see store.ChainStore.Classify).
func (n *Node) Open() {
	n.blockchainLocked.Store(false)
	n.miningEnabled.Store(true)
}

// Join bootstraps this node from an existing peer: it dials the peer,
// performs the discovery handshake, and waits for genesis to arrive
// (falling back to a full-chain request). Mining stays disabled
// until the chain unlocks.
func (n *Node) Join(bootstrapAddress string) {
	n.Bootstrap(bootstrapAddress)
	n.AwaitGenesisOrFullChain(bootstrapAddress)
}
