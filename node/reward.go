package node

import (
	"github.com/holiman/uint256"

	"github.com/ledgerline/node/block"
	"github.com/ledgerline/node/ledger"
	"github.com/ledgerline/node/log"
	"github.com/ledgerline/node/wallet"
)

// scheduleRewardAndBalances applies the side effects of an accepted
// block, self-mined or received: record the miner's reward and
// asynchronously adjust sender/recipient balances for every included
// transaction. Both are fire-and-forget; failures are logged, never
// surfaced.
func (n *Node) scheduleRewardAndBalances(b block.Block) {
	go func() {
		reward := ledger.MiningReward{
			BlockHash:       b.Hash,
			Recipient:       b.MinerAddress,
			Amount:          n.rewardAmount,
			BlockUnlockedAt: b.Index + rewardUnlockDelayBlocks,
		}
		if err := n.Ledger.SaveMiningReward(reward); err != nil {
			log.Error("node: failed to save mining reward", "block", b.Hash, "error", err)
		}

		for _, t := range b.Transactions {
			senderAddress, err := wallet.Address(t.SenderPublicKey)
			if err != nil {
				log.Error("node: failed to derive sender address for balance update", "tx", t.ID, "error", err)
				continue
			}
			amount := uint256.NewInt(t.Amount)
			if err := n.Ledger.UpsertBalanceDelta(senderAddress, amount, true); err != nil {
				log.Error("node: failed to debit sender balance", "tx", t.ID, "error", err)
			}
			if err := n.Ledger.UpsertBalanceDelta(t.RecipientAddress, amount, false); err != nil {
				log.Error("node: failed to credit recipient balance", "tx", t.ID, "error", err)
			}
		}
	}()
}
