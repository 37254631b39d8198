package inheritchain

import (
	"testing"

	"github.com/EnzoRoselli/InheritChain/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInheritanceOncePerAdmin(t *testing.T) {
	l, _ := newTestLedger(t)

	receipt, err := l.CreateInheritance(adminAddr, 3600, usdcAddr)
	require.NoError(t, err)
	ev := receipt.Event(schema.EventInheritanceCreated)
	require.NotNil(t, ev)
	assert.EqualValues(t, 1, ev.Value(0).Int64())

	_, err = l.CreateInheritance(adminAddr, 3600, usdcAddr)
	assertReverts(t, err, schema.ReasonAlreadyDeployed)

	assert.Equal(t, 1, l.DeployedInheritancesCount())
	assert.True(t, l.IsAdmin(adminAddr))
	assert.False(t, l.IsAdmin(heirAddr))
}

func TestInheritanceOfUnknownAdmin(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.InheritanceOf(adminAddr)
	assert.ErrorIs(t, err, ErrNoInheritance)
}

func TestCreatedAddressesAreDistinct(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.CreateInheritance(adminAddr, 3600, usdcAddr)
	require.NoError(t, err)
	_, err = l.CreateInheritance(heirAddr, 600, usdcAddr)
	require.NoError(t, err)

	first, err := l.InheritanceOf(adminAddr)
	require.NoError(t, err)
	second, err := l.InheritanceOf(heirAddr)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, l.DeployedInheritancesCount())
}
