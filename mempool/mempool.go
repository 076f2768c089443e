// Package mempool holds the set of transactions seen but not yet
// included in an accepted block.
package mempool

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ledgerline/node/metrics"
	"github.com/ledgerline/node/tx"
)

// Mempool is a concurrency-safe, unordered set of pending transactions.
type Mempool struct {
	mu  sync.Mutex
	set mapset.Set[tx.Transaction]
}

// New returns an empty mempool.
func New() *Mempool {
	return &Mempool{set: mapset.NewSet[tx.Transaction]()}
}

// Add pushes t into the set. No dedup beyond value equality.
func (m *Mempool) Add(t tx.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set.Add(t)
	metrics.MempoolSize.Set(float64(m.set.Cardinality()))
}

// Snapshot returns a copy of the current pending set, safe for a miner
// to search over without racing future Add/RemoveMany calls.
func (m *Mempool) Snapshot() []tx.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set.ToSlice()
}

// RemoveMany retains only transactions not present in included, called
// after a block (self-mined or received) is accepted.
func (m *Mempool) RemoveMany(included []tx.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range included {
		m.set.Remove(t)
	}
	metrics.MempoolSize.Set(float64(m.set.Cardinality()))
}

// Len reports the number of pending transactions.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set.Cardinality()
}
