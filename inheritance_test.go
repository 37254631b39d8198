package inheritchain

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/EnzoRoselli/InheritChain/schema"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	adminAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	heirAddr  = common.HexToAddress("0x2222222222222222222222222222222222222222")
	heirAddr2 = common.HexToAddress("0x3333333333333333333333333333333333333333")
	heirAddr3 = common.HexToAddress("0x4444444444444444444444444444444444444444")
	usdcAddr  = common.HexToAddress("0x5555555555555555555555555555555555555555")
)

type testClock struct {
	mu  sync.Mutex
	now int64
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Unix(c.now, 0)
}

func (c *testClock) Advance(seconds int64) {
	c.mu.Lock()
	c.now += seconds
	c.mu.Unlock()
}

func newTestLedger(t *testing.T) (*Ledger, *testClock) {
	t.Helper()
	clock := &testClock{now: 1_700_000_000}
	return NewLedger(WithClock(clock.Now)), clock
}

func newDeployedInheritance(t *testing.T, aliveTimeOut int64) (*Ledger, *testClock, common.Address) {
	t.Helper()
	l, clock := newTestLedger(t)
	_, err := l.CreateInheritance(adminAddr, aliveTimeOut, usdcAddr)
	require.NoError(t, err)
	addr, err := l.InheritanceOf(adminAddr)
	require.NoError(t, err)
	return l, clock, addr
}

func assertReverts(t *testing.T, err error, reason string) {
	t.Helper()
	got, ok := RevertReason(err)
	require.True(t, ok, "expected a revert, got: %v", err)
	assert.Equal(t, reason, got)
}

func TestRequestInheritanceDuplicate(t *testing.T) {
	l, _, addr := newDeployedInheritance(t, 3600)

	_, err := l.RequestInheritance(heirAddr, addr)
	require.NoError(t, err)

	_, err = l.RequestInheritance(heirAddr, addr)
	assertReverts(t, err, schema.ReasonDuplicateRequest)

	requests, err := l.GetInheritanceRequests(addr)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{heirAddr}, requests)
}

func TestRequestsKeepArrivalOrder(t *testing.T) {
	l, _, addr := newDeployedInheritance(t, 3600)

	for _, requester := range []common.Address{heirAddr, heirAddr2, heirAddr3} {
		_, err := l.RequestInheritance(requester, addr)
		require.NoError(t, err)
	}

	requests, err := l.GetInheritanceRequests(addr)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{heirAddr, heirAddr2, heirAddr3}, requests)
}

func TestConcurrentWritesSerialize(t *testing.T) {
	l, _, addr := newDeployedInheritance(t, 3600)

	one, err := ParseEther("1")
	require.NoError(t, err)
	l.Fund(adminAddr, new(big.Int).Mul(one, big.NewInt(8)))

	requesters := make([]common.Address, 8)
	for i := range requesters {
		requesters[i] = common.Address{0xaa, byte(i + 1)}
	}

	var wg sync.WaitGroup
	errs := make([]error, len(requesters)*2)
	for i, requester := range requesters {
		i, requester := i, requester
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[2*i] = l.RequestInheritance(requester, addr)
		}()
		go func() {
			defer wg.Done()
			_, errs[2*i+1] = l.Deposit(adminAddr, addr, one)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	// every request landed exactly once, every deposit applied in full
	requests, err := l.GetInheritanceRequests(addr)
	require.NoError(t, err)
	assert.ElementsMatch(t, requesters, requests)

	balance, err := l.GetEtherBalance(addr)
	require.NoError(t, err)
	assert.Equal(t, "8", FormatEther(balance))
	assert.Equal(t, "0", FormatEther(l.BalanceOf(adminAddr)))
}

func TestAcceptRequestGuards(t *testing.T) {
	l, _, addr := newDeployedInheritance(t, 3600)
	_, err := l.RequestInheritance(heirAddr, addr)
	require.NoError(t, err)

	_, err = l.AcceptInheritanceRequest(heirAddr, addr, 0, heirAddr, 50)
	assertReverts(t, err, schema.ReasonNotAdministrator)

	_, err = l.AcceptInheritanceRequest(adminAddr, addr, 5, heirAddr, 50)
	assertReverts(t, err, schema.ReasonIndexOutOfRange)

	_, err = l.AcceptInheritanceRequest(adminAddr, addr, 0, heirAddr2, 50)
	assertReverts(t, err, schema.ReasonAddressMismatch)

	_, err = l.AcceptInheritanceRequest(adminAddr, addr, 0, heirAddr, 50)
	require.NoError(t, err)

	heirs, err := l.GetHeirs(addr)
	require.NoError(t, err)
	require.Len(t, heirs, 1)
	assert.Equal(t, heirAddr, heirs[0].Address)
	assert.EqualValues(t, 50, heirs[0].Share)

	// requester re-queues and is caught by the heir duplicate check
	_, err = l.RequestInheritance(heirAddr, addr)
	require.NoError(t, err)
	_, err = l.AcceptInheritanceRequest(adminAddr, addr, 0, heirAddr, 10)
	assertReverts(t, err, schema.ReasonDuplicateHeir)
}

func TestAcceptRequestShareOverflow(t *testing.T) {
	l, _, addr := newDeployedInheritance(t, 3600)
	_, err := l.RequestInheritance(heirAddr, addr)
	require.NoError(t, err)
	_, err = l.RequestInheritance(heirAddr2, addr)
	require.NoError(t, err)

	_, err = l.AcceptInheritanceRequest(adminAddr, addr, 0, heirAddr, 70)
	require.NoError(t, err)

	_, err = l.AcceptInheritanceRequest(adminAddr, addr, 0, heirAddr2, 31)
	assertReverts(t, err, schema.ReasonShareOverflow)

	_, err = l.AcceptInheritanceRequest(adminAddr, addr, 0, heirAddr2, 30)
	require.NoError(t, err)

	total, err := l.GetTotalShares(addr)
	require.NoError(t, err)
	assert.EqualValues(t, 100, total)
}

func TestRejectRequestSwapsLastIntoSlot(t *testing.T) {
	l, _, addr := newDeployedInheritance(t, 3600)
	for _, requester := range []common.Address{heirAddr, heirAddr2, heirAddr3} {
		_, err := l.RequestInheritance(requester, addr)
		require.NoError(t, err)
	}

	_, err := l.RejectInheritanceRequest(adminAddr, addr, 0, heirAddr)
	require.NoError(t, err)

	requests, err := l.GetInheritanceRequests(addr)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{heirAddr3, heirAddr2}, requests)

	// the stale index/address pair from before the removal no longer matches
	_, err = l.RejectInheritanceRequest(adminAddr, addr, 0, heirAddr2)
	assertReverts(t, err, schema.ReasonAddressMismatch)
}

func TestLivenessDerivedFromWindow(t *testing.T) {
	l, clock, addr := newDeployedInheritance(t, 100)

	dead, err := l.IsAdministratorDead(addr)
	require.NoError(t, err)
	assert.False(t, dead)

	// the boundary itself still counts as alive
	clock.Advance(100)
	dead, err = l.IsAdministratorDead(addr)
	require.NoError(t, err)
	assert.False(t, dead)

	clock.Advance(1)
	dead, err = l.IsAdministratorDead(addr)
	require.NoError(t, err)
	assert.True(t, dead)

	_, err = l.SignalAlive(adminAddr, addr)
	require.NoError(t, err)
	dead, err = l.IsAdministratorDead(addr)
	require.NoError(t, err)
	assert.False(t, dead)
}

func TestShortenedWindowFlipsDeadImmediately(t *testing.T) {
	l, clock, addr := newDeployedInheritance(t, 3600)

	clock.Advance(200)
	dead, err := l.IsAdministratorDead(addr)
	require.NoError(t, err)
	assert.False(t, dead)

	_, err = l.UpdateAliveTimeOut(adminAddr, addr, 100)
	require.NoError(t, err)

	dead, err = l.IsAdministratorDead(addr)
	require.NoError(t, err)
	assert.True(t, dead)
}

func TestAliveTimeOutOwnerOnly(t *testing.T) {
	l, _, addr := newDeployedInheritance(t, 3600)

	_, err := l.GetAliveTimeOut(heirAddr, addr)
	assertReverts(t, err, schema.ReasonNotAdministrator)

	timeout, err := l.GetAliveTimeOut(adminAddr, addr)
	require.NoError(t, err)
	assert.EqualValues(t, 3600, timeout)

	_, err = l.UpdateAliveTimeOut(adminAddr, addr, -1)
	assert.ErrorIs(t, err, ErrInvalidNumericInput)
}

func TestDepositAndWithdraw(t *testing.T) {
	l, _, addr := newDeployedInheritance(t, 3600)
	oneEther := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	_, err := l.Deposit(adminAddr, addr, oneEther)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	l.Fund(adminAddr, new(big.Int).Mul(oneEther, big.NewInt(3)))
	receipt, err := l.Deposit(adminAddr, addr, oneEther)
	require.NoError(t, err)
	ev := receipt.Event(schema.EventDeposit)
	require.NotNil(t, ev)
	assert.Equal(t, oneEther, ev.Value(0))
	assert.Equal(t, oneEther, ev.Value(1))

	balance, err := l.GetEtherBalance(addr)
	require.NoError(t, err)
	assert.Equal(t, oneEther, balance)

	_, err = l.Withdraw(heirAddr, addr, oneEther)
	assertReverts(t, err, schema.ReasonNotAdministrator)

	_, err = l.Withdraw(adminAddr, addr, new(big.Int).Mul(oneEther, big.NewInt(2)))
	assertReverts(t, err, schema.ReasonInsufficientBalance)

	_, err = l.Withdraw(adminAddr, addr, oneEther)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Mul(oneEther, big.NewInt(3)), l.BalanceOf(adminAddr))
}

func TestClaimFlow(t *testing.T) {
	l, clock, addr := newDeployedInheritance(t, 100)
	oneEther := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	usdcUnits := big.NewInt(1_000_000) // 1 USDC

	l.Fund(adminAddr, oneEther)
	l.MintUSDC(adminAddr, usdcUnits)
	_, err := l.Deposit(adminAddr, addr, oneEther)
	require.NoError(t, err)
	_, err = l.DepositUSDC(adminAddr, addr, usdcUnits)
	require.NoError(t, err)

	_, err = l.RequestInheritance(heirAddr, addr)
	require.NoError(t, err)
	_, err = l.AcceptInheritanceRequest(adminAddr, addr, 0, heirAddr, 50)
	require.NoError(t, err)

	_, err = l.ClaimInheritance(heirAddr2, addr)
	assertReverts(t, err, schema.ReasonNotHeir)

	_, err = l.ClaimInheritance(heirAddr, addr)
	assertReverts(t, err, schema.ReasonNotYetDead)

	clock.Advance(101)

	receipt, err := l.ClaimInheritance(heirAddr, addr)
	require.NoError(t, err)
	ev := receipt.Event(schema.EventHeirClaiming)
	require.NotNil(t, ev)

	halfEther := new(big.Int).Div(oneEther, big.NewInt(2))
	halfUSDC := big.NewInt(500_000)
	assert.EqualValues(t, 50, ev.Value(0).Int64())
	assert.Equal(t, halfEther, ev.Value(1))
	assert.Equal(t, halfUSDC, ev.Value(2))

	assert.Equal(t, halfEther, l.BalanceOf(heirAddr))
	assert.Equal(t, halfUSDC, l.USDCBalanceOf(heirAddr))

	poolEther, err := l.GetEtherBalance(addr)
	require.NoError(t, err)
	assert.Equal(t, halfEther, poolEther)

	claimed, err := l.GetIsInheritanceClaimed(heirAddr, addr)
	require.NoError(t, err)
	assert.True(t, claimed)

	_, err = l.ClaimInheritance(heirAddr, addr)
	assertReverts(t, err, schema.ReasonAlreadyClaimed)
}

func TestClaimTruncatesOddAmounts(t *testing.T) {
	l, clock, addr := newDeployedInheritance(t, 0)

	l.Fund(adminAddr, big.NewInt(101))
	_, err := l.Deposit(adminAddr, addr, big.NewInt(101))
	require.NoError(t, err)

	_, err = l.RequestInheritance(heirAddr, addr)
	require.NoError(t, err)
	_, err = l.AcceptInheritanceRequest(adminAddr, addr, 0, heirAddr, 33)
	require.NoError(t, err)

	clock.Advance(1)

	_, err = l.ClaimInheritance(heirAddr, addr)
	require.NoError(t, err)

	// 101 * 33 / 100 = 33.33 truncated to 33, the remainder stays pooled
	assert.EqualValues(t, 33, l.BalanceOf(heirAddr).Int64())
	poolEther, err := l.GetEtherBalance(addr)
	require.NoError(t, err)
	assert.EqualValues(t, 68, poolEther.Int64())
}

func TestClaimPayoutsComputedPerClaim(t *testing.T) {
	l, clock, addr := newDeployedInheritance(t, 0)

	l.Fund(adminAddr, big.NewInt(100))
	_, err := l.Deposit(adminAddr, addr, big.NewInt(100))
	require.NoError(t, err)

	for _, requester := range []common.Address{heirAddr, heirAddr2} {
		_, err = l.RequestInheritance(requester, addr)
		require.NoError(t, err)
		_, err = l.AcceptInheritanceRequest(adminAddr, addr, 0, requester, 50)
		require.NoError(t, err)
	}

	clock.Advance(1)

	_, err = l.ClaimInheritance(heirAddr, addr)
	require.NoError(t, err)
	_, err = l.ClaimInheritance(heirAddr2, addr)
	require.NoError(t, err)

	// the second claim divides the already shrunk pool
	assert.EqualValues(t, 50, l.BalanceOf(heirAddr).Int64())
	assert.EqualValues(t, 25, l.BalanceOf(heirAddr2).Int64())
}

func TestNFTDeedAssignment(t *testing.T) {
	l, _, addr := newDeployedInheritance(t, 3600)
	_, err := l.RequestInheritance(heirAddr, addr)
	require.NoError(t, err)
	_, err = l.AcceptInheritanceRequest(adminAddr, addr, 0, heirAddr, 50)
	require.NoError(t, err)
	_, err = l.RequestInheritance(heirAddr2, addr)
	require.NoError(t, err)
	_, err = l.AcceptInheritanceRequest(adminAddr, addr, 0, heirAddr2, 50)
	require.NoError(t, err)

	_, err = l.AddNFTDeed(adminAddr, addr, 7, heirAddr3)
	assertReverts(t, err, schema.ReasonNoMatchingHeir)

	_, err = l.AddNFTDeed(adminAddr, addr, 7, heirAddr)
	require.NoError(t, err)

	// reassignment moves the deed, it is never assigned twice
	_, err = l.AddNFTDeed(adminAddr, addr, 7, heirAddr2)
	require.NoError(t, err)

	ids, err := l.GetNFTDeedsByHeirAddress(addr, heirAddr)
	require.NoError(t, err)
	assert.Empty(t, ids)
	ids, err = l.GetNFTDeedsByHeirAddress(addr, heirAddr2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{7}, ids)

	_, err = l.RemoveNFTDeed(adminAddr, addr, 7, heirAddr2)
	require.NoError(t, err)
	ids, err = l.GetNFTDeedsByHeirAddress(addr, heirAddr2)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStateSnapshot(t *testing.T) {
	l, clock, addr := newDeployedInheritance(t, 100)
	_, err := l.RequestInheritance(heirAddr, addr)
	require.NoError(t, err)

	clock.Advance(101)

	state, err := l.InheritanceState(addr)
	require.NoError(t, err)
	assert.Equal(t, addr, state.Address)
	assert.Equal(t, adminAddr, state.Administrator.Address)
	assert.Equal(t, []common.Address{heirAddr}, state.Requests)
	assert.True(t, state.Dead)
}
