// Package ingress is the signed-transaction HTTP entry point: it
// reconstructs a transaction from the POST body, verifies its signature
// and the sender's ledger balance, and on success pushes it into the
// mempool.
package ingress

import (
	"encoding/json"
	"net/http"

	"github.com/holiman/uint256"

	"github.com/ledgerline/node/ledger"
	"github.com/ledgerline/node/log"
	"github.com/ledgerline/node/mempool"
	"github.com/ledgerline/node/tx"
	"github.com/ledgerline/node/wallet"
)

// wireTransaction is the POST body shape for a signed transaction.
type wireTransaction struct {
	SenderPublicKey  string `json:"sender_public_key"`
	RecipientAddress string `json:"recipient_address"`
	ID               string `json:"id"`
	Timestamp        int64  `json:"timestamp"`
	Amount           uint64 `json:"amount"`
	Signature        string `json:"signature"`
}

// Handler builds the POST /transactions handler backed by pool and
// ledger.
func Handler(pool *mempool.Mempool, led ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var wire wireTransaction
		if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
			http.Error(w, "Malformed transaction", http.StatusBadRequest)
			return
		}
		transaction := tx.Transaction{
			SenderPublicKey:  wire.SenderPublicKey,
			RecipientAddress: wire.RecipientAddress,
			Amount:           wire.Amount,
			Timestamp:        wire.Timestamp,
			ID:               wire.ID,
			Signature:        wire.Signature,
		}

		valid, err := transaction.VerifySignature()
		if err != nil || !valid {
			http.Error(w, "Invalid signature", http.StatusBadRequest)
			return
		}

		senderAddress, err := wallet.Address(transaction.SenderPublicKey)
		if err != nil {
			http.Error(w, "Invalid signature", http.StatusBadRequest)
			return
		}
		balance, err := led.GetBalance(senderAddress)
		if err != nil {
			balance = uint256.NewInt(0)
		}
		if balance.Cmp(uint256.NewInt(transaction.Amount)) < 0 {
			http.Error(w, "Insufficient funds", http.StatusBadRequest)
			return
		}

		pool.Add(transaction)
		log.Info("ingress: accepted transaction", "id", transaction.ID, "amount", transaction.Amount)
		w.WriteHeader(http.StatusOK)
	}
}
