package p2p_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/node/p2p"
)

func TestPutIsIdempotentPerAddress(t *testing.T) {
	tbl := p2p.NewTable()
	a, _ := pipeLinks(t)

	require.True(t, tbl.Put("peer-1", a))
	require.False(t, tbl.Put("peer-1", a))
	require.Equal(t, 1, tbl.Len())
}

func TestRemoveDropsPeer(t *testing.T) {
	tbl := p2p.NewTable()
	a, _ := pipeLinks(t)
	tbl.Put("peer-1", a)

	tbl.Remove("peer-1")
	require.False(t, tbl.Has("peer-1"))
	require.Equal(t, 0, tbl.Len())
}

func TestAddressesAndLinksSnapshot(t *testing.T) {
	tbl := p2p.NewTable()
	a, b := pipeLinks(t)
	tbl.Put("peer-1", a)
	tbl.Put("peer-2", b)

	require.ElementsMatch(t, []string{"peer-1", "peer-2"}, tbl.Addresses())
	require.Len(t, tbl.Links(), 2)
}
