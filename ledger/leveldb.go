package ledger

import (
	"encoding/json"

	"github.com/holiman/uint256"
	"github.com/syndtr/goleveldb/leveldb"
)

const (
	balancePrefix = "bal:"
	rewardPrefix  = "rwd:"
)

// LevelDB is the reference Ledger implementation backed by
// go-ethereum's own key-value store. Balances are stored as 0x-prefixed
// hex strings under "bal:<address>"; rewards are stored as JSON under
// "rwd:<block_hash>" so SaveMiningReward can dedupe idempotently.
type LevelDB struct {
	db *leveldb.DB
}

// OpenLevelDB opens (creating if absent) a goleveldb database at path.
func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) GetBalance(address string) (*uint256.Int, error) {
	raw, err := l.db.Get([]byte(balancePrefix+address), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	bal, err := decodeBalance(raw)
	if err != nil {
		return nil, err
	}
	return bal, nil
}

func (l *LevelDB) UpdateBalance(address string, delta *uint256.Int, negative bool) error {
	key := []byte(balancePrefix + address)
	raw, err := l.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	bal, err := decodeBalance(raw)
	if err != nil {
		return err
	}
	return l.db.Put(key, encodeBalance(applyDelta(bal, delta, negative)), nil)
}

func (l *LevelDB) UpsertBalanceDelta(address string, delta *uint256.Int, negative bool) error {
	key := []byte(balancePrefix + address)
	raw, err := l.db.Get(key, nil)
	var bal *uint256.Int
	switch {
	case err == leveldb.ErrNotFound:
		bal = uint256.NewInt(0)
	case err != nil:
		return err
	default:
		bal, err = decodeBalance(raw)
		if err != nil {
			return err
		}
	}
	return l.db.Put(key, encodeBalance(applyDelta(bal, delta, negative)), nil)
}

func (l *LevelDB) SaveMiningReward(reward MiningReward) error {
	key := []byte(rewardPrefix + reward.BlockHash)
	if _, err := l.db.Get(key, nil); err == nil {
		return nil // idempotent per block hash
	}
	encoded, err := json.Marshal(rewardWire{
		BlockHash:       reward.BlockHash,
		Recipient:       reward.Recipient,
		Amount:          reward.Amount.Hex(),
		BlockUnlockedAt: reward.BlockUnlockedAt,
	})
	if err != nil {
		return err
	}
	return l.db.Put(key, encoded, nil)
}

func (l *LevelDB) GetMiningRewardAt(blockHash string) (MiningReward, error) {
	raw, err := l.db.Get([]byte(rewardPrefix+blockHash), nil)
	if err == leveldb.ErrNotFound {
		return MiningReward{}, ErrNotFound
	}
	if err != nil {
		return MiningReward{}, err
	}
	var wire rewardWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return MiningReward{}, err
	}
	amount, err := uint256.FromHex(wire.Amount)
	if err != nil {
		return MiningReward{}, err
	}
	return MiningReward{
		BlockHash:       wire.BlockHash,
		Recipient:       wire.Recipient,
		Amount:          amount,
		BlockUnlockedAt: wire.BlockUnlockedAt,
	}, nil
}

func (l *LevelDB) Close() error { return l.db.Close() }

type rewardWire struct {
	BlockHash       string `json:"block_hash"`
	Recipient       string `json:"recipient"`
	Amount          string `json:"amount"`
	BlockUnlockedAt uint64 `json:"block_unlocked_at"`
}

func encodeBalance(b *uint256.Int) []byte {
	return []byte(b.Hex())
}

func decodeBalance(raw []byte) (*uint256.Int, error) {
	return uint256.FromHex(string(raw))
}
