package inheritchain

import (
	"math/big"
	"sync"

	"github.com/EnzoRoselli/InheritChain/schema"
	"github.com/ethereum/go-ethereum/common"
	"github.com/panjf2000/ants/v2"
)

// Reconciler re-derives local view state from the ledger after every
// successful write. Shares, indices and balances are server-computed, so
// nothing is mutated optimistically: each write is followed by the minimal
// dependent read set, or by lifting the value straight out of the receipt
// events when the event already carries it.
type Reconciler struct {
	cli  *Client
	pool *ants.Pool
}

func NewReconciler(cli *Client, poolSize int) (*Reconciler, error) {
	if poolSize <= 0 {
		poolSize = 10
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	return &Reconciler{cli: cli, pool: pool}, nil
}

func (r *Reconciler) Close() {
	r.pool.Release()
}

// LivenessView is the dependent read set of signalAlive/updateAliveTimeOut.
type LivenessView struct {
	LastAlive    int64
	AliveTimeOut int64
	Dead         bool
}

// HeirsView is the dependent read set of accept/reject: both lists plus the
// share total, because a removal shifts the queue indices.
type HeirsView struct {
	Requests    []common.Address
	Heirs       []schema.Heir
	TotalShares uint64
}

// BalancesView carries pool balances in smallest units.
type BalancesView struct {
	Ether *big.Int
	USDC  *big.Int
}

// RegistryView is the coordinator state for one requesting address.
type RegistryView struct {
	Pending  []common.Address
	Approved []common.Address
	Rejected []common.Address
}

// ClaimView is what a heir sees after claiming.
type ClaimView struct {
	Claimed      bool
	EtherClaimed *big.Int
	USDCClaimed  *big.Int
}

func (r *Reconciler) livenessView(caller, inheritance common.Address) (LivenessView, error) {
	lastAlive, err := r.cli.GetLastAlive(inheritance)
	if err != nil {
		return LivenessView{}, err
	}
	timeout, err := r.cli.GetAliveTimeOut(caller, inheritance)
	if err != nil {
		return LivenessView{}, err
	}
	dead, err := r.cli.IsAdministratorDead(inheritance)
	if err != nil {
		return LivenessView{}, err
	}
	return LivenessView{LastAlive: lastAlive, AliveTimeOut: timeout, Dead: dead}, nil
}

func (r *Reconciler) heirsView(inheritance common.Address) (HeirsView, error) {
	requests, err := r.cli.GetInheritanceRequests(inheritance)
	if err != nil {
		return HeirsView{}, err
	}
	heirs, err := r.cli.GetHeirs(inheritance)
	if err != nil {
		return HeirsView{}, err
	}
	shares, err := r.cli.GetTotalShares(inheritance)
	if err != nil {
		return HeirsView{}, err
	}
	return HeirsView{Requests: requests, Heirs: heirs, TotalShares: shares}, nil
}

func (r *Reconciler) registryView(caller common.Address, surfacedRejected int) RegistryView {
	rejected := r.cli.GetRejectedInheritances(caller)
	if surfacedRejected > 0 && len(rejected) > surfacedRejected {
		rejected = rejected[len(rejected)-surfacedRejected:]
	}
	return RegistryView{
		Pending:  r.cli.GetPendingInheritances(caller),
		Approved: r.cli.GetApprovedInheritances(caller),
		Rejected: rejected,
	}
}

// SignalAlive writes the liveness renewal and re-reads lastAlive plus the
// derived dead flag.
func (r *Reconciler) SignalAlive(caller, inheritance common.Address) (LivenessView, error) {
	if _, err := r.cli.SignalAlive(caller, inheritance); err != nil {
		return LivenessView{}, err
	}
	return r.livenessView(caller, inheritance)
}

// UpdateAliveTimeOut replaces the window and re-reads the liveness set; a
// shortened window can flip the dead flag in the same view.
func (r *Reconciler) UpdateAliveTimeOut(caller, inheritance common.Address, seconds int64) (LivenessView, error) {
	if _, err := r.cli.UpdateAliveTimeOut(caller, inheritance, seconds); err != nil {
		return LivenessView{}, err
	}
	return r.livenessView(caller, inheritance)
}

// Deposit submits the transfer and takes the resulting pool balance from the
// receipt event, which already carries it.
func (r *Reconciler) Deposit(caller, inheritance common.Address, ether string) (BalancesView, error) {
	receipt, err := r.cli.Deposit(caller, inheritance, ether)
	if err != nil {
		return BalancesView{}, err
	}
	view := BalancesView{USDC: new(big.Int)}
	if ev := receipt.Event(schema.EventDeposit); ev != nil && ev.Value(1) != nil {
		view.Ether = ev.Value(1)
	} else if view.Ether, err = r.cli.GetEtherBalance(inheritance); err != nil {
		return BalancesView{}, err
	}
	if view.USDC, err = r.cli.GetUSDCBalance(inheritance); err != nil {
		return BalancesView{}, err
	}
	return view, nil
}

func (r *Reconciler) Withdraw(caller, inheritance common.Address, ether string) (BalancesView, error) {
	if _, err := r.cli.Withdraw(caller, inheritance, ether); err != nil {
		return BalancesView{}, err
	}
	return r.balancesView(inheritance)
}

func (r *Reconciler) DepositUSDC(caller, inheritance common.Address, usdc string) (BalancesView, error) {
	if _, err := r.cli.DepositUSDC(caller, inheritance, usdc); err != nil {
		return BalancesView{}, err
	}
	return r.balancesView(inheritance)
}

func (r *Reconciler) WithdrawUSDC(caller, inheritance common.Address, usdc string) (BalancesView, error) {
	if _, err := r.cli.WithdrawUSDC(caller, inheritance, usdc); err != nil {
		return BalancesView{}, err
	}
	return r.balancesView(inheritance)
}

func (r *Reconciler) balancesView(inheritance common.Address) (BalancesView, error) {
	ether, err := r.cli.GetEtherBalance(inheritance)
	if err != nil {
		return BalancesView{}, err
	}
	usdc, err := r.cli.GetUSDCBalance(inheritance)
	if err != nil {
		return BalancesView{}, err
	}
	return BalancesView{Ether: ether, USDC: usdc}, nil
}

// AcceptRequestByAddress re-fetches the queue, resolves the requester's
// current index and issues the accept with the index/address pair. A queue
// that shifted between the read and the write surfaces as AddressMismatch
// and is retried once against a fresh queue; positions are not stable
// identifiers.
func (r *Reconciler) AcceptRequestByAddress(caller, inheritance, requester common.Address, share uint64) (HeirsView, error) {
	for attempt := 0; attempt < 2; attempt++ {
		index, err := r.requestIndex(inheritance, requester)
		if err != nil {
			return HeirsView{}, err
		}
		_, err = r.cli.AcceptInheritanceRequest(caller, inheritance, index, requester, share)
		if err == nil {
			return r.heirsView(inheritance)
		}
		if IsFatalInput(err) {
			// no retry can fix the input itself
			return HeirsView{}, err
		}
		if reason, ok := RevertReason(err); !ok || reason != schema.ReasonAddressMismatch {
			return HeirsView{}, err
		}
	}
	return HeirsView{}, Revert(schema.ReasonAddressMismatch)
}

func (r *Reconciler) RejectRequestByAddress(caller, inheritance, requester common.Address) (HeirsView, error) {
	for attempt := 0; attempt < 2; attempt++ {
		index, err := r.requestIndex(inheritance, requester)
		if err != nil {
			return HeirsView{}, err
		}
		_, err = r.cli.RejectInheritanceRequest(caller, inheritance, index, requester)
		if err == nil {
			return r.heirsView(inheritance)
		}
		if reason, ok := RevertReason(err); !ok || reason != schema.ReasonAddressMismatch {
			return HeirsView{}, err
		}
	}
	return HeirsView{}, Revert(schema.ReasonAddressMismatch)
}

func (r *Reconciler) requestIndex(inheritance, requester common.Address) (int, error) {
	requests, err := r.cli.GetInheritanceRequests(inheritance)
	if err != nil {
		return 0, err
	}
	for idx, addr := range requests {
		if addr == requester {
			return idx, nil
		}
	}
	return 0, ErrNotFound
}

// Claim submits the claim and reads the payout from the LogHeirClaiming
// event rather than re-deriving it from the shrunken pools.
func (r *Reconciler) Claim(caller, inheritance common.Address) (ClaimView, error) {
	receipt, err := r.cli.ClaimInheritance(caller, inheritance)
	if err != nil {
		return ClaimView{}, err
	}
	view := ClaimView{Claimed: true, EtherClaimed: new(big.Int), USDCClaimed: new(big.Int)}
	if ev := receipt.Event(schema.EventHeirClaiming); ev != nil {
		if v := ev.Value(1); v != nil {
			view.EtherClaimed = v
		}
		if v := ev.Value(2); v != nil {
			view.USDCClaimed = v
		}
	}
	return view, nil
}

// RequestInheritance fans the intent through the registry coordinator and
// returns the refreshed registry view.
func (r *Reconciler) RequestInheritance(caller, inheritance common.Address, surfacedRejected int) (RegistryView, error) {
	if _, err := r.cli.AddPendingInheritance(caller, inheritance); err != nil {
		return RegistryView{}, err
	}
	return r.registryView(caller, surfacedRejected), nil
}

// UpdatePendingInheritances runs the pull-based reconciliation for a batch of
// requesting addresses, fanning the per-caller writes out on the worker pool.
func (r *Reconciler) UpdatePendingInheritances(callers []common.Address, surfacedRejected int) (map[common.Address]RegistryView, error) {
	views := make(map[common.Address]RegistryView, len(callers))
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	for _, caller := range callers {
		caller := caller
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			_, err := r.cli.UpdatePendingInheritances(caller)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			views[caller] = r.registryView(caller, surfacedRejected)
		})
		if err != nil {
			wg.Done()
			return nil, err
		}
	}
	wg.Wait()
	return views, firstErr
}
