package inheritchain

import (
	"fmt"
	"testing"

	"github.com/EnzoRoselli/InheritChain/schema"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingInheritanceCap(t *testing.T) {
	l, _ := newTestLedger(t)

	for i := 0; i < MaxPendingInheritances; i++ {
		target := common.HexToAddress(fmt.Sprintf("0x%040x", i+1))
		_, err := l.AddPendingInheritance(heirAddr, target)
		require.NoError(t, err)
	}

	_, err := l.AddPendingInheritance(heirAddr, usdcAddr)
	assertReverts(t, err, schema.ReasonPendingLimit)

	// withdrawing one frees a slot immediately
	first := common.HexToAddress(fmt.Sprintf("0x%040x", 1))
	_, err = l.RemovePendingInheritance(heirAddr, first)
	require.NoError(t, err)
	_, err = l.AddPendingInheritance(heirAddr, usdcAddr)
	require.NoError(t, err)

	assert.Len(t, l.GetPendingInheritances(heirAddr), 3)
	assert.Equal(t, []common.Address{first}, l.GetRejectedInheritances(heirAddr))
}

func TestDuplicatePendingTargetsCountTowardCap(t *testing.T) {
	l, _, addr := newDeployedInheritance(t, 3600)

	// the cap counts entries, not distinct targets
	for i := 0; i < MaxPendingInheritances; i++ {
		_, err := l.AddPendingInheritance(heirAddr, addr)
		require.NoError(t, err)
	}
	_, err := l.AddPendingInheritance(heirAddr, addr)
	assertReverts(t, err, schema.ReasonPendingLimit)
	assert.Equal(t, []common.Address{addr, addr, addr}, l.GetPendingInheritances(heirAddr))

	// every duplicate entry resolves against the same target
	_, err = l.AcceptInheritanceRequest(adminAddr, addr, 0, heirAddr, 40)
	require.NoError(t, err)
	_, err = l.UpdatePendingInheritances(heirAddr)
	require.NoError(t, err)
	assert.Empty(t, l.GetPendingInheritances(heirAddr))
	assert.Equal(t, []common.Address{addr, addr, addr}, l.GetApprovedInheritances(heirAddr))
}

func TestRemovePendingNotThere(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.RemovePendingInheritance(heirAddr, usdcAddr)
	assertReverts(t, err, schema.ReasonNotPending)
}

func TestAddPendingForwardsRequestToExistingTarget(t *testing.T) {
	l, _, addr := newDeployedInheritance(t, 3600)

	_, err := l.AddPendingInheritance(heirAddr, addr)
	require.NoError(t, err)

	requests, err := l.GetInheritanceRequests(addr)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{heirAddr}, requests)

	// a second fan-out to the same target has no pending slot left to take,
	// but forwarding to a queue that holds the request is a silent no-op
	_, err = l.RemovePendingInheritance(heirAddr, addr)
	require.NoError(t, err)
	_, err = l.AddPendingInheritance(heirAddr, addr)
	require.NoError(t, err)
	requests, err = l.GetInheritanceRequests(addr)
	require.NoError(t, err)
	assert.Len(t, requests, 1)
}

func TestUpdatePendingInheritances(t *testing.T) {
	l, _, addr := newDeployedInheritance(t, 3600)
	unknown := common.HexToAddress("0x9999999999999999999999999999999999999999")

	_, err := l.AddPendingInheritance(heirAddr, addr)
	require.NoError(t, err)
	_, err = l.AddPendingInheritance(heirAddr, unknown)
	require.NoError(t, err)

	// still queued at the target: stays pending
	_, err = l.UpdatePendingInheritances(heirAddr)
	require.NoError(t, err)
	assert.Len(t, l.GetPendingInheritances(heirAddr), 2)
	assert.Empty(t, l.GetApprovedInheritances(heirAddr))

	_, err = l.AcceptInheritanceRequest(adminAddr, addr, 0, heirAddr, 40)
	require.NoError(t, err)

	receipt, err := l.UpdatePendingInheritances(heirAddr)
	require.NoError(t, err)
	ev := receipt.Event(schema.EventPendingUpdated)
	require.NotNil(t, ev)
	assert.EqualValues(t, 1, ev.Value(0).Int64()) // approved
	assert.EqualValues(t, 0, ev.Value(1).Int64()) // rejected

	assert.Equal(t, []common.Address{addr}, l.GetApprovedInheritances(heirAddr))
	// the unknown target cannot be judged and stays pending
	assert.Equal(t, []common.Address{unknown}, l.GetPendingInheritances(heirAddr))
}

func TestUpdatePendingMarksRejected(t *testing.T) {
	l, _, addr := newDeployedInheritance(t, 3600)

	_, err := l.AddPendingInheritance(heirAddr, addr)
	require.NoError(t, err)
	_, err = l.RejectInheritanceRequest(adminAddr, addr, 0, heirAddr)
	require.NoError(t, err)

	_, err = l.UpdatePendingInheritances(heirAddr)
	require.NoError(t, err)

	assert.Empty(t, l.GetPendingInheritances(heirAddr))
	assert.Equal(t, []common.Address{addr}, l.GetRejectedInheritances(heirAddr))
	assert.True(t, l.HasRejectedInheritances(heirAddr))
	assert.False(t, l.HasPendingInheritances(heirAddr))
}

func TestRegistryHeirs(t *testing.T) {
	l, _ := newTestLedger(t)

	assert.Empty(t, l.RegistryHeirs())

	_, err := l.AddPendingInheritance(heirAddr, usdcAddr)
	require.NoError(t, err)
	_, err = l.AddPendingInheritance(heirAddr2, usdcAddr)
	require.NoError(t, err)

	assert.ElementsMatch(t, []common.Address{heirAddr, heirAddr2}, l.RegistryHeirs())

	_, err = l.RemovePendingInheritance(heirAddr, usdcAddr)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{heirAddr2}, l.RegistryHeirs())
}
