package wallet_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/node/tx"
	"github.com/ledgerline/node/wallet"
)

func TestLoadReconstructsSameKeyAndAddress(t *testing.T) {
	original, err := wallet.New()
	require.NoError(t, err)

	reloaded, err := wallet.Load(original.PrivateKeyHex())
	require.NoError(t, err)

	require.Equal(t, original.PublicKeyHex(), reloaded.PublicKeyHex())

	addr1, err := original.Address()
	require.NoError(t, err)
	addr2, err := reloaded.Address()
	require.NoError(t, err)
	require.Equal(t, addr1, addr2)
}

func TestDistinctWalletsHaveDistinctAddresses(t *testing.T) {
	a, err := wallet.New()
	require.NoError(t, err)
	b, err := wallet.New()
	require.NoError(t, err)

	addrA, err := a.Address()
	require.NoError(t, err)
	addrB, err := b.Address()
	require.NoError(t, err)
	require.NotEqual(t, addrA, addrB)
}

func TestSignTransactionFillsSenderAndVerifies(t *testing.T) {
	w, err := wallet.New()
	require.NoError(t, err)

	signed, err := w.SignTransaction(tx.Transaction{
		RecipientAddress: "recipient",
		Amount:           50,
		Timestamp:        1700000000,
	})
	require.NoError(t, err)
	require.Equal(t, w.PublicKeyHex(), signed.SenderPublicKey)
	require.NotEmpty(t, signed.ID)
	require.NotEmpty(t, signed.Signature)

	ok, err := signed.VerifySignature()
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMarshalIdentityNeverIncludesPrivateKey(t *testing.T) {
	w, err := wallet.New()
	require.NoError(t, err)

	out, err := w.MarshalIdentity()
	require.NoError(t, err)
	require.NotContains(t, out, w.PrivateKeyHex())
	require.Contains(t, out, w.PublicKeyHex())
}
