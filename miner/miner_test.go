package miner_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/node/block"
	"github.com/ledgerline/node/miner"
	"github.com/ledgerline/node/tx"
)

type fixedChain struct {
	previousHash string
	nextIndex    uint64
}

func (f fixedChain) TipForMining() (string, uint64) { return f.previousHash, f.nextIndex }

type fixedMempool struct{ txs []tx.Transaction }

func (f fixedMempool) Snapshot() []tx.Transaction { return f.txs }

func TestLoopMinesAndInvokesCallback(t *testing.T) {
	enabled := &atomic.Bool{}
	enabled.Store(true)

	results := make(chan miner.Result, 1)
	loop := &miner.Loop{
		Enabled:      enabled,
		MinerAddress: "miner-addr",
		Difficulty:   1,
		Chain:        fixedChain{previousHash: block.GenesisPreviousHash, nextIndex: 0},
		Mempool:      fixedMempool{},
		OnMined:      func(r miner.Result) { results <- r },
		IdlePoll:     10 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go loop.Run(ctx)

	select {
	case r := <-results:
		require.True(t, r.Block.Valid())
		require.Equal(t, "miner-addr", r.Block.MinerAddress)
	case <-ctx.Done():
		t.Fatal("timed out waiting for a mined block")
	}
}

func TestLoopIdlesWhileDisabled(t *testing.T) {
	enabled := &atomic.Bool{}
	enabled.Store(false)

	results := make(chan miner.Result, 1)
	loop := &miner.Loop{
		Enabled:      enabled,
		MinerAddress: "miner-addr",
		Difficulty:   1,
		Chain:        fixedChain{previousHash: block.GenesisPreviousHash, nextIndex: 0},
		Mempool:      fixedMempool{},
		OnMined:      func(r miner.Result) { results <- r },
		IdlePoll:     10 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	go loop.Run(ctx)

	select {
	case <-results:
		t.Fatal("mining loop produced a block while disabled")
	case <-ctx.Done():
	}
}
