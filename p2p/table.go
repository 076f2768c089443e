package p2p

import "sync"

// Table is the node's peer-address -> link mapping. Keys are unique;
// entries are added on successful connect and never automatically
// evicted.
type Table struct {
	mu    sync.RWMutex
	peers map[string]*Link
}

// NewTable returns an empty peer table.
func NewTable() *Table {
	return &Table{peers: make(map[string]*Link)}
}

// Put registers link under address, idempotently: a second Put for an
// address already present is a no-op on the table (the caller is
// responsible for not leaking the now-orphaned link). A live link for
// an address is never silently replaced.
func (t *Table) Put(address string, link *Link) (inserted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.peers[address]; exists {
		return false
	}
	t.peers[address] = link
	return true
}

// Get returns the link for address, if any.
func (t *Table) Get(address string) (*Link, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	l, ok := t.peers[address]
	return l, ok
}

// Has reports whether address is already a known peer, used to suppress
// duplicate dial attempts before the TCP connect.
func (t *Table) Has(address string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.peers[address]
	return ok
}

// Remove drops address from the table. Closing a link does not call it.
func (t *Table) Remove(address string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, address)
}

// Addresses returns a snapshot of every known peer address.
func (t *Table) Addresses() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.peers))
	for addr := range t.peers {
		out = append(out, addr)
	}
	return out
}

// Links returns a snapshot of every known peer link, for broadcast.
func (t *Table) Links() []*Link {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Link, 0, len(t.peers))
	for _, l := range t.peers {
		out = append(out, l)
	}
	return out
}

// Len reports the number of known peers.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers)
}
