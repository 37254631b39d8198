package inheritchain

import (
	"testing"

	"github.com/EnzoRoselli/InheritChain/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeMintIntoCustody(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.SafeMint(adminAddr, "https://gateway/deed-1")
	require.NoError(t, err)
	_, err = l.SafeMint(adminAddr, "https://gateway/deed-2")
	require.NoError(t, err)

	assert.EqualValues(t, 2, l.GetLastTokenId())

	uri, err := l.TokenURI(1)
	require.NoError(t, err)
	assert.Equal(t, "https://gateway/deed-1", uri)

	_, err = l.TokenURI(99)
	assert.ErrorIs(t, err, ErrTokenNotExist)

	last, err := l.GetLastElement()
	require.NoError(t, err)
	assert.EqualValues(t, 2, last.TokenId)
	assert.Equal(t, adminAddr, last.Administrator)

	// minted deeds are held by the registry, not the administrator
	owner, err := l.OwnerOf(1)
	require.NoError(t, err)
	assert.NotEqual(t, adminAddr, owner)

	nfts := l.GetAdministratorNFTs(adminAddr)
	require.Len(t, nfts, 2)
	assert.EqualValues(t, 1, nfts[0].TokenId)
	assert.EqualValues(t, 2, nfts[1].TokenId)
}

func TestExecuteInheritanceRequiresDeath(t *testing.T) {
	l, clock, addr := newDeployedInheritance(t, 100)

	_, err := l.SafeMint(adminAddr, "https://gateway/deed-1")
	require.NoError(t, err)
	_, err = l.RequestInheritance(heirAddr, addr)
	require.NoError(t, err)
	_, err = l.AcceptInheritanceRequest(adminAddr, addr, 0, heirAddr, 100)
	require.NoError(t, err)
	_, err = l.AddNFTDeed(adminAddr, addr, 1, heirAddr)
	require.NoError(t, err)

	_, err = l.ExecuteInheritance(heirAddr, addr)
	assertReverts(t, err, schema.ReasonOwnerStillAlive)

	clock.Advance(101)

	receipt, err := l.ExecuteInheritance(heirAddr, addr)
	require.NoError(t, err)
	ev := receipt.Event(schema.EventInheritanceExecuted)
	require.NotNil(t, ev)
	assert.EqualValues(t, 1, ev.Value(0).Int64())

	deed, err := l.GetElementByTokenId(1)
	require.NoError(t, err)
	assert.Equal(t, heirAddr, deed.Administrator)

	owner, err := l.OwnerOf(1)
	require.NoError(t, err)
	assert.Equal(t, heirAddr, owner)

	nfts := l.GetAdministratorNFTs(heirAddr)
	require.Len(t, nfts, 1)
	assert.Empty(t, l.GetAdministratorNFTs(adminAddr))
}
