package node_test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/kylelemons/godebug/pretty"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ledgerline/node/block"
	"github.com/ledgerline/node/ledger"
	"github.com/ledgerline/node/node"
	"github.com/ledgerline/node/p2p"
	"github.com/ledgerline/node/wallet"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestNode(t *testing.T, address string) *node.Node {
	t.Helper()
	w, err := wallet.New()
	require.NoError(t, err)
	n := node.New(node.Options{
		SelfAddress:  address,
		Wallet:       w,
		Ledger:       ledger.NewMemory(),
		Difficulty:   block.TestDifficulty,
		RewardAmount: uint256.NewInt(50),
	})
	require.NoError(t, n.Listen())
	t.Cleanup(func() { _ = n.Close() })
	return n
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, cond(), "condition never became true within %s", timeout)
}

// requireChainsEqual diffs two nodes' chains block by block, up to n
// blocks, printing a structural diff on mismatch rather than just the
// first differing field.
func requireChainsEqual(t *testing.T, a, b *node.Node, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		ab, ok := a.BlockAt(i)
		require.True(t, ok)
		bb, ok := b.BlockAt(i)
		require.True(t, ok)
		if diff := pretty.Compare(ab, bb); diff != "" {
			t.Fatalf("chains diverge at index %d:\n%s", i, diff)
		}
	}
}

// dialRawLink opens a bare p2p link to address without going through a
// Node's peer table, used to inject synthetic frames a real peer would
// never send (e.g. a deliberately forked block) straight at dispatch.
func dialRawLink(t *testing.T, address string) *p2p.Link {
	t.Helper()
	conn, err := net.Dial("tcp", address)
	require.NoError(t, err)
	link := p2p.NewLink(address, conn)
	t.Cleanup(func() { _ = link.Close() })
	link.Serve(func(p2p.Message) {})
	return link
}

func TestOpenMinesGenesis(t *testing.T) {
	n := newTestNode(t, "127.0.0.1:18901")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n.Start(ctx)
	n.Open()

	eventually(t, 5*time.Second, func() bool { return n.ChainLen() >= 1 })
	genesis, ok := n.BlockAt(0)
	require.True(t, ok)
	require.Equal(t, uint64(0), genesis.Index)
}

func TestJoinBootstrapsGenesisFromPeer(t *testing.T) {
	opener := newTestNode(t, "127.0.0.1:18902")
	joiner := newTestNode(t, "127.0.0.1:18903")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opener.Start(ctx)
	joiner.Start(ctx)

	opener.Open()
	eventually(t, 5*time.Second, func() bool { return opener.ChainLen() >= 1 })

	joiner.Join(opener.SelfAddress)
	eventually(t, 5*time.Second, func() bool { return joiner.ChainLen() >= 1 })

	openerGenesis, ok := opener.BlockAt(0)
	require.True(t, ok)
	joinerGenesis, ok := joiner.BlockAt(0)
	require.True(t, ok)
	require.Equal(t, openerGenesis.Hash, joinerGenesis.Hash)
}

func TestTwoNodesConvergeOnMinedBlocks(t *testing.T) {
	opener := newTestNode(t, "127.0.0.1:18904")
	joiner := newTestNode(t, "127.0.0.1:18905")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opener.Start(ctx)
	joiner.Start(ctx)

	opener.Open()
	eventually(t, 5*time.Second, func() bool { return opener.ChainLen() >= 1 })

	joiner.Join(opener.SelfAddress)
	eventually(t, 5*time.Second, func() bool { return joiner.ChainLen() >= 1 })

	// Only the opener mines further blocks; the joiner should pick them
	// up purely from the BlockMined broadcast, with no mining of its own.
	joiner.SetMiningEnabled(false)
	eventually(t, 10*time.Second, func() bool { return opener.ChainLen() >= 2 })
	opener.SetMiningEnabled(false)
	stableLen := opener.ChainLen()
	eventually(t, 10*time.Second, func() bool { return joiner.ChainLen() >= stableLen })

	requireChainsEqual(t, opener, joiner, stableLen)
}

func TestTransitivePeerDiscovery(t *testing.T) {
	a := newTestNode(t, "127.0.0.1:18910")
	b := newTestNode(t, "127.0.0.1:18911")
	c := newTestNode(t, "127.0.0.1:18912")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx)
	b.Start(ctx)
	c.Start(ctx)

	a.Open()
	eventually(t, 5*time.Second, func() bool { return a.ChainLen() >= 1 })

	b.Join(a.SelfAddress)
	eventually(t, 5*time.Second, func() bool { return len(a.Peers()) >= 1 })

	// C only ever hears about B through A's connection response.
	c.Join(a.SelfAddress)
	eventually(t, 5*time.Second, func() bool {
		peers := c.Peers()
		hasA, hasB := false, false
		for _, addr := range peers {
			hasA = hasA || addr == a.SelfAddress
			hasB = hasB || addr == b.SelfAddress
		}
		return hasA && hasB
	})
	require.NotContains(t, c.Peers(), c.SelfAddress)
}

// TestOrphanHealingFetchesMissingBlocks joins a node against a peer that
// is already several blocks ahead: every fresh BlockMined broadcast lands
// as an orphan until five of them accumulate, at which point the gap is
// fetched via MissingBlocksRequest and the chain becomes contiguous.
func TestOrphanHealingFetchesMissingBlocks(t *testing.T) {
	opener := newTestNode(t, "127.0.0.1:18913")
	joiner := newTestNode(t, "127.0.0.1:18914")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opener.Start(ctx)
	joiner.Start(ctx)

	opener.Open()
	eventually(t, 30*time.Second, func() bool { return opener.ChainLen() >= 6 })

	joiner.Join(opener.SelfAddress)
	eventually(t, 5*time.Second, func() bool { return joiner.ChainLen() >= 1 })
	joiner.SetMiningEnabled(false)

	// The opener keeps mining; the joiner only has genesis, so each new
	// broadcast is a gap block until orphan healing back-fills 1..5.
	eventually(t, 60*time.Second, func() bool { return joiner.ChainLen() >= 7 })

	openerB5, ok := opener.BlockAt(5)
	require.True(t, ok)
	joinerB5, ok := joiner.BlockAt(5)
	require.True(t, ok)
	require.Equal(t, openerB5.Hash, joinerB5.Hash)

	openerB6, ok := opener.BlockAt(6)
	require.True(t, ok)
	joinerB6, ok := joiner.BlockAt(6)
	require.True(t, ok)
	require.Equal(t, openerB6.Hash, joinerB6.Hash)
}

// TestForkResolutionSplicesInLongerPeerChain: a node accumulates five
// rejected blocks at the same height and must replace its prefix with
// the longer chain a peer actually has, once it learns that peer's chain
// is longer.
func TestForkResolutionSplicesInLongerPeerChain(t *testing.T) {
	opener := newTestNode(t, "127.0.0.1:18906")
	joiner := newTestNode(t, "127.0.0.1:18907")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opener.Start(ctx)
	joiner.Start(ctx)

	opener.Open()
	eventually(t, 5*time.Second, func() bool { return opener.ChainLen() >= 1 })

	joiner.Join(opener.SelfAddress)
	eventually(t, 5*time.Second, func() bool { return joiner.ChainLen() >= 1 })

	// Let the opener mine ahead a little so its chain is strictly longer
	// than anything the joiner will see from the fork frames below.
	eventually(t, 10*time.Second, func() bool { return opener.ChainLen() >= 3 })
	opener.SetMiningEnabled(false)
	stableLen := opener.ChainLen()

	genesis, ok := joiner.BlockAt(0)
	require.True(t, ok)

	// Disabled so the joiner's own mining can't race the injected forks
	// for block 1 and change what the classifier sees as the tip; fork
	// resolution re-enables mining itself once it splices.
	joiner.SetMiningEnabled(false)

	// A fake peer link into the joiner, used purely to deliver forged
	// BlockMined frames at index 1 that don't chain from the genesis the
	// joiner actually has — a real peer would never send these, but the
	// classifier can't tell the difference, which is the point.
	fake := dialRawLink(t, joiner.SelfAddress)
	enabled := &atomic.Bool{}
	enabled.Store(true)
	for i := 0; i < 5; i++ {
		forked, ok := block.Mine(1, genesis.Timestamp+int64(i)+1, nil, "attacker", "not-"+genesis.Hash, block.TestDifficulty, enabled)
		require.True(t, ok)
		require.NoError(t, fake.Send(p2p.Message{Type: p2p.TypeBlockMined, From: "127.0.0.1:19999", Block: &forked}))
	}

	// The 5th fork crosses the trigger threshold inside the joiner and
	// starts a resolution round against the opener (its only real peer),
	// which outlasts the 10-second length-phase timer before splicing.
	eventually(t, 20*time.Second, func() bool { return joiner.ChainLen() >= stableLen })
	requireChainsEqual(t, opener, joiner, stableLen)
}
