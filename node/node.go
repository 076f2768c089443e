// Package node aggregates every other component into the running node
// described below: the wallet, chain store, mempool, peer table and
// fork-resolution state, all mutated under one mutex, plus the
// orchestration (dispatcher, mining loop wiring, peer discovery, fork
// resolution, catch-up) that the rest of the components don't own
// themselves.
package node

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/holiman/uint256"

	"github.com/ledgerline/node/block"
	"github.com/ledgerline/node/ledger"
	"github.com/ledgerline/node/log"
	"github.com/ledgerline/node/mempool"
	"github.com/ledgerline/node/miner"
	"github.com/ledgerline/node/p2p"
	"github.com/ledgerline/node/store"
	"github.com/ledgerline/node/wallet"
)

// maxPeerChainLength tracks the longest chain length any peer has claimed:
// nil means "no resolution in flight".
type maxPeerChainLength struct {
	PeerAddress string
	Length      uint64
}

// Node is the per-process blockchain participant. chain and the
// fork-resolution fields (maxPeerChainLength, lengthResponses,
// resolutionInFlight, resolutionGen) are mutated only while mu is held;
// pool and peers carry their own locks and are also used outside mu.
type Node struct {
	mu sync.Mutex

	SelfAddress string
	Wallet      *wallet.Wallet
	Ledger      ledger.Ledger

	chain *store.ChainStore
	pool  *mempool.Mempool
	peers *p2p.Table

	miningEnabled    atomic.Bool
	blockchainLocked atomic.Bool

	maxPeerChainLength *maxPeerChainLength
	lengthResponses    map[string]uint64
	resolutionInFlight bool
	resolutionGen      uint64

	difficulty   int
	rewardAmount *uint256.Int

	listener net.Listener

	requestTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	dialing mapset.Set[string] // suppresses duplicate concurrent dials
}

// Options configures a new Node.
type Options struct {
	SelfAddress  string
	Wallet       *wallet.Wallet
	Ledger       ledger.Ledger
	Difficulty   int
	RewardAmount *uint256.Int
}

// New constructs a Node. The chain starts empty and locked; callers pick
// Open (mine genesis) or Join (bootstrap from a peer) to unlock it.
func New(opts Options) *Node {
	n := &Node{
		SelfAddress:     opts.SelfAddress,
		Wallet:          opts.Wallet,
		Ledger:          opts.Ledger,
		chain:           store.New(),
		pool:            mempool.New(),
		peers:           p2p.NewTable(),
		difficulty:      opts.Difficulty,
		rewardAmount:    opts.RewardAmount,
		lengthResponses: make(map[string]uint64),
		dialing:         mapset.NewSet[string](),
		requestTimeout:  defaultRequestTimeout,
	}
	n.miningEnabled.Store(false)
	n.blockchainLocked.Store(true)
	return n
}

// Listen binds the node's TCP listener. Failure here is fatal.
func (n *Node) Listen() error {
	ln, err := net.Listen("tcp", n.SelfAddress)
	if err != nil {
		log.Crit("node: failed to bind listener", "address", n.SelfAddress, "error", err)
	}
	n.listener = ln
	return nil
}

// Start begins accepting connections and running the mining loop.
// Callers should have already called Listen; Open or Join (which runs
// Bootstrap) comes after Start, since both rely on the context it sets.
func (n *Node) Start(ctx context.Context) {
	n.ctx, n.cancel = context.WithCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.acceptLoop()
	}()

	minerAddress, err := n.Wallet.Address()
	if err != nil {
		log.Crit("node: failed to derive miner address", "error", err)
	}
	loop := &miner.Loop{
		Enabled:      &n.miningEnabled,
		MinerAddress: minerAddress,
		Difficulty:   n.difficulty,
		Chain:        chainView{n},
		Mempool:      n.pool,
		OnMined:      n.onMined,
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		loop.Run(n.ctx)
	}()
}

// Close stops the node's background goroutines and closes its listener
// and every peer link.
func (n *Node) Close() error {
	if n.cancel != nil {
		n.cancel()
	}
	if n.listener != nil {
		_ = n.listener.Close()
	}
	for _, link := range n.peers.Links() {
		_ = link.Close()
	}
	n.wg.Wait()
	return n.Ledger.Close()
}

func (n *Node) acceptLoop() {
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			select {
			case <-n.ctx.Done():
				return
			default:
				log.Warn("node: accept failed", "error", err)
				return
			}
		}
		go n.handleInbound(conn)
	}
}

// chainView adapts Node to miner.ChainView without exposing the whole
// node to the miner package.
type chainView struct{ n *Node }

func (c chainView) TipForMining() (string, uint64) {
	c.n.mu.Lock()
	defer c.n.mu.Unlock()
	tip, ok := c.n.chain.Tip()
	if !ok {
		return block.GenesisPreviousHash, 0
	}
	return tip.Hash, tip.Index + 1
}

// SetMiningEnabled flips the cooperative-cancellation flag the mining
// loop samples between nonce trials.
func (n *Node) SetMiningEnabled(enabled bool) {
	n.miningEnabled.Store(enabled)
}

// ChainLen returns the current chain length (exported for tests/metrics).
func (n *Node) ChainLen() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.chain.Chain)
}

// BlockAt returns a copy of the block at index i, for tests.
func (n *Node) BlockAt(i int) (block.Block, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if i < 0 || i >= len(n.chain.Chain) {
		return block.Block{}, false
	}
	return n.chain.Chain[i], true
}

func (n *Node) peerSelfCheck(address string) bool {
	return address == n.SelfAddress
}

// Peers returns a snapshot of the peer table's addresses.
func (n *Node) Peers() []string {
	return n.peers.Addresses()
}

// Mempool exposes the node's pending-transaction pool to the ingress
// HTTP handler.
func (n *Node) Mempool() *mempool.Mempool {
	return n.pool
}
