package ledger

import (
	"sync"

	"github.com/holiman/uint256"
)

// Memory is an in-process Ledger, used by tests and by nodes started
// without a persistence backend. Safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	balances map[string]*uint256.Int
	rewards  map[string]MiningReward
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		balances: make(map[string]*uint256.Int),
		rewards:  make(map[string]MiningReward),
	}
}

func (m *Memory) GetBalance(address string) (*uint256.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[address]
	if !ok {
		return nil, ErrNotFound
	}
	return new(uint256.Int).Set(bal), nil
}

func (m *Memory) UpdateBalance(address string, delta *uint256.Int, negative bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[address]
	if !ok {
		return ErrNotFound
	}
	m.balances[address] = applyDelta(bal, delta, negative)
	return nil
}

func (m *Memory) UpsertBalanceDelta(address string, delta *uint256.Int, negative bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[address]
	if !ok {
		bal = uint256.NewInt(0)
	}
	m.balances[address] = applyDelta(bal, delta, negative)
	return nil
}

func (m *Memory) SaveMiningReward(reward MiningReward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rewards[reward.BlockHash]; exists {
		return nil // idempotent per block hash
	}
	m.rewards[reward.BlockHash] = reward
	return nil
}

func (m *Memory) GetMiningRewardAt(blockHash string) (MiningReward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reward, ok := m.rewards[blockHash]
	if !ok {
		return MiningReward{}, ErrNotFound
	}
	return reward, nil
}

func (m *Memory) Close() error { return nil }

func applyDelta(balance, delta *uint256.Int, negative bool) *uint256.Int {
	out := new(uint256.Int)
	if negative {
		out.Sub(balance, delta)
	} else {
		out.Add(balance, delta)
	}
	return out
}
