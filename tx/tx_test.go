package tx_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/node/tx"
	"github.com/ledgerline/node/wallet"
)

func signedTransaction(t *testing.T, amount uint64) (tx.Transaction, *wallet.Wallet) {
	t.Helper()
	w, err := wallet.New()
	require.NoError(t, err)

	signed, err := w.SignTransaction(tx.Transaction{
		RecipientAddress: "some-recipient-address",
		Amount:           amount,
		Timestamp:        1700000000,
	})
	require.NoError(t, err)
	return signed, w
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	signed, _ := signedTransaction(t, 100)
	ok, err := signed.VerifySignature()
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyRejectsTamperedAmount(t *testing.T) {
	signed, _ := signedTransaction(t, 100)
	signed.Amount = 999
	ok, err := signed.VerifySignature()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	signed, _ := signedTransaction(t, 100)
	signed.Signature = signed.Signature[:len(signed.Signature)-2] + "00"
	_, err := signed.VerifySignature()
	require.Error(t, err)
}

func TestVerifyRejectsMalformedPublicKey(t *testing.T) {
	signed, _ := signedTransaction(t, 100)
	signed.SenderPublicKey = "not-hex"
	_, err := signed.VerifySignature()
	require.ErrorIs(t, err, tx.ErrMalformedPublicKey)
}

func TestHashExcludesIDAndSignature(t *testing.T) {
	signed, _ := signedTransaction(t, 100)
	withoutIDOrSig := signed
	withoutIDOrSig.ID = "different"
	withoutIDOrSig.Signature = "different"

	h1, err := signed.Hash()
	require.NoError(t, err)
	h2, err := withoutIDOrSig.Hash()
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}
