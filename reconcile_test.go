package inheritchain

import (
	"testing"

	"github.com/EnzoRoselli/InheritChain/schema"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(t *testing.T) (*Reconciler, *Ledger, *testClock) {
	t.Helper()
	l, clock := newTestLedger(t)
	r, err := NewReconciler(NewClient(l, nil), 4)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r, l, clock
}

func TestReconcilerSignalAlive(t *testing.T) {
	r, l, clock := newTestReconciler(t)
	_, err := l.CreateInheritance(adminAddr, 100, usdcAddr)
	require.NoError(t, err)
	addr, err := l.InheritanceOf(adminAddr)
	require.NoError(t, err)

	clock.Advance(101)
	view, err := r.SignalAlive(adminAddr, addr)
	require.NoError(t, err)
	assert.False(t, view.Dead)
	assert.EqualValues(t, 100, view.AliveTimeOut)
	assert.EqualValues(t, clock.Now().Unix(), view.LastAlive)
}

func TestReconcilerShortenWindowSurfacesDead(t *testing.T) {
	r, l, clock := newTestReconciler(t)
	_, err := l.CreateInheritance(adminAddr, 3600, usdcAddr)
	require.NoError(t, err)
	addr, err := l.InheritanceOf(adminAddr)
	require.NoError(t, err)

	clock.Advance(500)
	view, err := r.UpdateAliveTimeOut(adminAddr, addr, 100)
	require.NoError(t, err)
	assert.True(t, view.Dead)
}

func TestReconcilerDepositLiftsBalanceFromReceipt(t *testing.T) {
	r, l, _ := newTestReconciler(t)
	_, err := l.CreateInheritance(adminAddr, 3600, usdcAddr)
	require.NoError(t, err)
	addr, err := l.InheritanceOf(adminAddr)
	require.NoError(t, err)

	funds, err := ParseEther("10")
	require.NoError(t, err)
	l.Fund(adminAddr, funds)

	view, err := r.Deposit(adminAddr, addr, "2.5")
	require.NoError(t, err)
	assert.Equal(t, "2.5", FormatEther(view.Ether))
	assert.Equal(t, "0", FormatUSDC(view.USDC))

	view, err = r.Withdraw(adminAddr, addr, "1")
	require.NoError(t, err)
	assert.Equal(t, "1.5", FormatEther(view.Ether))
}

func TestAcceptRequestByAddressSurvivesQueueShift(t *testing.T) {
	r, l, _ := newTestReconciler(t)
	_, err := l.CreateInheritance(adminAddr, 3600, usdcAddr)
	require.NoError(t, err)
	addr, err := l.InheritanceOf(adminAddr)
	require.NoError(t, err)

	for _, requester := range []common.Address{heirAddr, heirAddr2, heirAddr3} {
		_, err = l.RequestInheritance(requester, addr)
		require.NoError(t, err)
	}

	// a reject shifts the queue before the accept resolves its index
	_, err = l.RejectInheritanceRequest(adminAddr, addr, 0, heirAddr)
	require.NoError(t, err)

	view, err := r.AcceptRequestByAddress(adminAddr, addr, heirAddr2, 40)
	require.NoError(t, err)
	require.Len(t, view.Heirs, 1)
	assert.Equal(t, heirAddr2, view.Heirs[0].Address)
	assert.EqualValues(t, 40, view.TotalShares)
	assert.Equal(t, []common.Address{heirAddr3}, view.Requests)
}

func TestAcceptRequestByAddressFatalShare(t *testing.T) {
	r, l, _ := newTestReconciler(t)
	_, err := l.CreateInheritance(adminAddr, 3600, usdcAddr)
	require.NoError(t, err)
	addr, err := l.InheritanceOf(adminAddr)
	require.NoError(t, err)

	_, err = l.RequestInheritance(heirAddr, addr)
	require.NoError(t, err)
	_, err = l.AcceptInheritanceRequest(adminAddr, addr, 0, heirAddr, 70)
	require.NoError(t, err)
	_, err = l.RequestInheritance(heirAddr2, addr)
	require.NoError(t, err)

	// over-allocating shares cannot be fixed by retrying the same intent
	_, err = r.AcceptRequestByAddress(adminAddr, addr, heirAddr2, 31)
	assertReverts(t, err, schema.ReasonShareOverflow)
	assert.True(t, IsFatalInput(err))

	view, err := r.AcceptRequestByAddress(adminAddr, addr, heirAddr2, 30)
	require.NoError(t, err)
	assert.EqualValues(t, 100, view.TotalShares)
}

func TestRejectRequestByAddressUnknownRequester(t *testing.T) {
	r, l, _ := newTestReconciler(t)
	_, err := l.CreateInheritance(adminAddr, 3600, usdcAddr)
	require.NoError(t, err)
	addr, err := l.InheritanceOf(adminAddr)
	require.NoError(t, err)

	_, err = r.RejectRequestByAddress(adminAddr, addr, heirAddr)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReconcilerClaimView(t *testing.T) {
	r, l, clock := newTestReconciler(t)
	_, err := l.CreateInheritance(adminAddr, 0, usdcAddr)
	require.NoError(t, err)
	addr, err := l.InheritanceOf(adminAddr)
	require.NoError(t, err)

	funds, err := ParseEther("1")
	require.NoError(t, err)
	l.Fund(adminAddr, funds)
	_, err = l.Deposit(adminAddr, addr, funds)
	require.NoError(t, err)

	_, err = l.RequestInheritance(heirAddr, addr)
	require.NoError(t, err)
	_, err = l.AcceptInheritanceRequest(adminAddr, addr, 0, heirAddr, 50)
	require.NoError(t, err)

	clock.Advance(1)

	view, err := r.Claim(heirAddr, addr)
	require.NoError(t, err)
	assert.True(t, view.Claimed)
	assert.Equal(t, "0.5", FormatEther(view.EtherClaimed))
	assert.Equal(t, "0", FormatUSDC(view.USDCClaimed))
}

func TestReconcilerRequestInheritanceRegistryView(t *testing.T) {
	r, l, _ := newTestReconciler(t)
	_, err := l.CreateInheritance(adminAddr, 3600, usdcAddr)
	require.NoError(t, err)
	addr, err := l.InheritanceOf(adminAddr)
	require.NoError(t, err)

	view, err := r.RequestInheritance(heirAddr, addr, 5)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addr}, view.Pending)
	assert.Empty(t, view.Approved)
	assert.Empty(t, view.Rejected)
}

func TestReconcilerBatchUpdate(t *testing.T) {
	r, l, _ := newTestReconciler(t)
	_, err := l.CreateInheritance(adminAddr, 3600, usdcAddr)
	require.NoError(t, err)
	addr, err := l.InheritanceOf(adminAddr)
	require.NoError(t, err)

	for _, caller := range []common.Address{heirAddr, heirAddr2} {
		_, err = l.AddPendingInheritance(caller, addr)
		require.NoError(t, err)
	}
	_, err = l.AcceptInheritanceRequest(adminAddr, addr, 0, heirAddr, 30)
	require.NoError(t, err)
	_, err = l.RejectInheritanceRequest(adminAddr, addr, 0, heirAddr2)
	require.NoError(t, err)

	views, err := r.UpdatePendingInheritances([]common.Address{heirAddr, heirAddr2}, 5)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, []common.Address{addr}, views[heirAddr].Approved)
	assert.Empty(t, views[heirAddr].Pending)
	assert.Equal(t, []common.Address{addr}, views[heirAddr2].Rejected)
	assert.Empty(t, views[heirAddr2].Pending)
}

func TestRegistryViewSurfacesRecentRejectedOnly(t *testing.T) {
	r, l, _ := newTestReconciler(t)

	targets := make([]common.Address, 0, 7)
	for i := 1; i <= 7; i++ {
		target := common.Address{byte(i)}
		targets = append(targets, target)
		_, err := l.AddPendingInheritance(heirAddr, target)
		require.NoError(t, err)
		_, err = l.RemovePendingInheritance(heirAddr, target)
		require.NoError(t, err)
	}

	view := r.registryView(heirAddr, 5)
	assert.Equal(t, targets[2:], view.Rejected)

	// the full history stays retained underneath
	assert.Len(t, l.GetRejectedInheritances(heirAddr), 7)
}
